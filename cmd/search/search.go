// Package search implements a phrase search against the report index.
package search

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medialab/tfcharvest/cmd/common"
)

// Command returns the search command.
func Command() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search harvested reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, strings.Join(args, " "), size)
		},
	}

	cmd.Flags().IntVar(&size, "size", 10, "maximum number of hits")

	return cmd
}

func run(cmd *cobra.Command, queryText string, size int) error {
	deps, err := common.Setup()
	if err != nil {
		return err
	}

	index := deps.Config.GetElasticsearchConfig().IndexName
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  queryText,
				"fields": []string{"title", "summary", "full_content"},
			},
		},
		"size":    size,
		"_source": []string{"pid", "title", "date", "label", "link"},
	}

	hits, err := deps.Storage.SearchHits(cmd.Context(), index, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for _, hit := range hits {
		title, _ := hit.Source["title"].(string)
		date, _ := hit.Source["date"].(string)
		label, _ := hit.Source["label"].(string)
		link, _ := hit.Source["link"].(string)
		fmt.Printf("%s  [%s] %s\n    %s\n", date, label, title, link)
	}
	return nil
}
