package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/drill-ai/cli/internal/uploader"
)

var (
	uploadName        string
	uploadDescription string
)

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "dataset name (default: Dataset_<timestamp>)")
	uploadCmd.Flags().StringVar(&uploadDescription, "description", "", "dataset description")
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Create a dataset from local files and wait for ingestion",
	Long: "Create a dataset from local files and wait for ingestion.\n\n" +
		"Supported file types: " + strings.Join(uploader.SupportedExtensions(), " "),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		name := uploadName
		if name == "" {
			name = "Dataset_" + time.Now().Format("20060102_150405")
		}

		up := uploader.New(client)
		datasetID, ready, err := up.Upload(context.Background(), name, uploadDescription, args,
			func(fileName string, index, total int) {
				fmt.Printf("Uploaded %s (%d/%d)\n", fileName, index, total)
			})
		if err != nil {
			return err
		}

		if ready {
			fmt.Printf("Dataset %s is ready.\n", datasetID)
		} else {
			fmt.Printf("Dataset %s is still processing; check 'drill dataset status %s' later.\n", datasetID, datasetID)
		}
		return nil
	},
}
