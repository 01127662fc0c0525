// Package config holds application configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the public Powerdrill team API.
const DefaultEndpoint = "https://ai.data.cloud/api/v2/team"

// Config holds application configuration
type Config struct {
	API struct {
		Endpoint string `yaml:"endpoint"`
		UserID   string `yaml:"user_id"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"api"`
	LogLevel string `yaml:"log_level"`
}

// Load loads configuration from file, then applies .env and environment
// overrides. A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(Path()); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	// .env in the working directory, then the real environment, win over the file.
	_ = godotenv.Load()
	if v := os.Getenv("POWERDRILL_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv("POWERDRILL_USER_ID"); v != "" {
		cfg.API.UserID = v
	}
	if v := os.Getenv("POWERDRILL_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	configDir := filepath.Dir(Path())
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file carries the API key.
	return os.WriteFile(Path(), data, 0600)
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(os.Getenv("HOME"), ".drill", "config.yaml")
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}
	cfg.API.Endpoint = DefaultEndpoint
	cfg.LogLevel = "info"
	return cfg
}
