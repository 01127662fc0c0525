package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drill-ai/cli/internal/conversation"
)

var askDatasetID string

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askDatasetID, "dataset", "", "dataset id to ask against (required)")
	askCmd.MarkFlagRequired("dataset")
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and stream the answer to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		ctx := context.Background()
		conv := conversation.New(client)
		if err := conv.SelectDataset(ctx, askDatasetID); err != nil {
			return err
		}

		// The checkpoint carries the full accumulated text; print only the
		// part we have not written yet.
		printed := 0
		result, err := conv.Ask(ctx, args[0], func(accumulated string) {
			fmt.Print(accumulated[printed:])
			printed = len(accumulated)
		})
		if err != nil {
			return err
		}
		if len(result.Text) > printed {
			fmt.Print(result.Text[printed:])
		}
		fmt.Println()

		if len(result.Tables) > 0 {
			fmt.Println("\nTables:")
			for _, t := range result.Tables {
				fmt.Printf("  %s: %s\n", t.Name, t.URL)
			}
		}
		if len(result.Images) > 0 {
			fmt.Println("\nImages:")
			for _, img := range result.Images {
				fmt.Printf("  %s: %s\n", img.Name, img.URL)
			}
		}
		return nil
	},
}
