// Package index implements index management commands for the report
// store: create, delete, and list.
package index

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medialab/tfcharvest/cmd/common"
	"github.com/medialab/tfcharvest/internal/storage"
)

// Command returns the index command with its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage Elasticsearch indices",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(deleteCommand())
	cmd.AddCommand(listCommand())

	return cmd
}

func createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create an index with the report mapping",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Setup()
			if err != nil {
				return err
			}

			name := deps.Config.GetElasticsearchConfig().IndexName
			if len(args) > 0 {
				name = args[0]
			}

			exists, err := deps.Storage.IndexExists(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("failed to check if index exists: %w", err)
			}
			if exists {
				deps.Logger.Info("Index already exists", "index", name)
				return nil
			}

			if createErr := deps.Storage.CreateIndex(cmd.Context(), name, storage.ReportMapping); createErr != nil {
				return fmt.Errorf("failed to create index: %w", createErr)
			}
			fmt.Printf("Created index %s\n", name)
			return nil
		},
	}
}

func deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Setup()
			if err != nil {
				return err
			}

			if deleteErr := deps.Storage.DeleteIndex(cmd.Context(), args[0]); deleteErr != nil {
				return fmt.Errorf("failed to delete index: %w", deleteErr)
			}
			fmt.Printf("Deleted index %s\n", args[0])
			return nil
		},
	}
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indices in the cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Setup()
			if err != nil {
				return err
			}

			indices, err := deps.Storage.ListIndices(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list indices: %w", err)
			}

			for _, name := range indices {
				fmt.Println(name)
			}
			return nil
		},
	}
}
