package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	datasetCreateName        string
	datasetCreateDescription string
)

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetListCmd, datasetCreateCmd, datasetDeleteCmd, datasetOverviewCmd, datasetStatusCmd)
	datasetCreateCmd.Flags().StringVar(&datasetCreateName, "name", "", "dataset name (required)")
	datasetCreateCmd.Flags().StringVar(&datasetCreateDescription, "description", "", "dataset description")
	datasetCreateCmd.MarkFlagRequired("name")
}

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage datasets",
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		datasets, err := client.ListDatasets(context.Background())
		if err != nil {
			return err
		}
		if len(datasets) == 0 {
			fmt.Println("No datasets found. Run 'drill upload' to create one.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED")
		for _, d := range datasets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Description, d.CreatedAt)
		}
		return w.Flush()
	},
}

var datasetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		id, err := client.CreateDataset(context.Background(), datasetCreateName, datasetCreateDescription)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var datasetDeleteCmd = &cobra.Command{
	Use:   "delete <dataset-id>",
	Short: "Delete a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		if err := client.DeleteDataset(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Println("Dataset deleted.")
		return nil
	},
}

var datasetOverviewCmd = &cobra.Command{
	Use:   "overview <dataset-id>",
	Short: "Show the dataset summary and suggested questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		overview, err := client.GetDatasetOverview(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Println(overview.Name)
		if overview.Description != "" {
			fmt.Println(overview.Description)
		}
		if overview.Summary != "" {
			fmt.Println()
			fmt.Println(overview.Summary)
		}
		if len(overview.Keywords) > 0 {
			fmt.Printf("\nKeywords: %s\n", strings.Join(overview.Keywords, ", "))
		}
		if len(overview.ExplorationQuestions) > 0 {
			fmt.Println("\nSuggested questions:")
			for _, q := range overview.ExplorationQuestions {
				fmt.Printf("  - %s\n", q)
			}
		}
		return nil
	},
}

var datasetStatusCmd = &cobra.Command{
	Use:   "status <dataset-id>",
	Short: "Show ingestion status counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		status, err := client.GetDatasetStatus(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("synching: %d\ninvalid: %d\n", status.SynchingCount, status.InvalidCount)
		if status.SynchingCount == 0 && status.InvalidCount == 0 {
			fmt.Println("Dataset is ready.")
		}
		return nil
	},
}
