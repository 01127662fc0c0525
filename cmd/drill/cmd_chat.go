package main

import (
	"github.com/spf13/cobra"

	"github.com/drill-ai/cli/internal/tui"
)

var chatDatasetID string

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.RunE = chatCmd.RunE // bare 'drill' opens the TUI
	chatCmd.Flags().StringVar(&chatDatasetID, "dataset", "", "skip the picker and chat against this dataset")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(loadConfig(), chatDatasetID)
	},
}
