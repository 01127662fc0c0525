package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourceCmd)
	sourceCmd.AddCommand(sourceListCmd, sourceDeleteCmd)
}

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage data sources within a dataset",
}

var sourceListCmd = &cobra.Command{
	Use:   "list <dataset-id>",
	Short: "List the data sources of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		sources, err := client.ListDataSources(context.Background(), args[0])
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No data sources found in this dataset.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS")
		for _, s := range sources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Type, s.Status)
		}
		return w.Flush()
	},
}

var sourceDeleteCmd = &cobra.Command{
	Use:   "delete <dataset-id> <data-source-id>",
	Short: "Delete a data source from a dataset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(loadConfig())
		if err != nil {
			return err
		}

		if err := client.DeleteDataSource(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Data source deleted.")
		return nil
	},
}
