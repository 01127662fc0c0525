package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drill-ai/cli/config"
	"github.com/drill-ai/cli/internal/powerdrill"
)

var rootCmd = &cobra.Command{
	Use:           "drill",
	Short:         "Terminal client for the Powerdrill data-analysis API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cfg := loadConfig()

	// Set up slog
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := rootCmd.Execute(); err != nil {
		var authErr *powerdrill.AuthError
		if errors.As(err, &authErr) {
			fmt.Fprintln(os.Stderr, "Error: invalid credentials")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newClient builds an API client from config, requiring credentials.
func newClient(cfg *config.Config) (*powerdrill.Client, error) {
	if cfg.API.UserID == "" || cfg.API.APIKey == "" {
		return nil, fmt.Errorf("no credentials configured; run 'drill login' or set POWERDRILL_USER_ID and POWERDRILL_API_KEY")
	}
	return powerdrill.NewClient(cfg.API.Endpoint, cfg.API.UserID, cfg.API.APIKey), nil
}
