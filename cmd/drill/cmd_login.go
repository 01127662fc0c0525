package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drill-ai/cli/internal/powerdrill"
)

var (
	loginUserID string
	loginAPIKey string
)

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginUserID, "user-id", "", "Powerdrill user id")
	loginCmd.Flags().StringVar(&loginAPIKey, "api-key", "", "Powerdrill API key")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify credentials and save them to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if loginUserID != "" {
			cfg.API.UserID = loginUserID
		}
		if loginAPIKey != "" {
			cfg.API.APIKey = loginAPIKey
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		// Listing datasets is the cheapest call that exercises the credentials.
		if _, err := client.ListDatasets(context.Background()); err != nil {
			var authErr *powerdrill.AuthError
			if errors.As(err, &authErr) {
				return err
			}
			return fmt.Errorf("verifying credentials: %w", err)
		}

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Println("Authentication successful.")
		return nil
	},
}
