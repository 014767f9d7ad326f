// Package harvest implements the harvest command, the pipeline entry
// point.
package harvest

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/medialab/tfcharvest/cmd/common"
	"github.com/medialab/tfcharvest/internal/crawler"
	"github.com/medialab/tfcharvest/internal/embedding"
	"github.com/medialab/tfcharvest/internal/ledger"
	"github.com/medialab/tfcharvest/internal/storage"
)

// Command returns the harvest command.
func Command() *cobra.Command {
	var maxPages int

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest new fact-check reports and upsert them into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, maxPages)
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0,
		"pagination ceiling for this run (default from config)")

	return cmd
}

func run(cmd *cobra.Command, maxPages int) error {
	deps, err := common.Setup()
	if err != nil {
		return err
	}

	if validateErr := deps.Config.Validate(); validateErr != nil {
		return fmt.Errorf("invalid configuration: %w", validateErr)
	}

	crawlerCfg := deps.Config.GetCrawlerConfig()
	esCfg := deps.Config.GetElasticsearchConfig()
	if maxPages <= 0 {
		maxPages = crawlerCfg.MaxPages
	}

	embedder, err := embedding.NewOpenAIEmbedder(deps.Config.GetOpenAIConfig(), deps.Logger)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	uploader := storage.NewUploader(
		deps.Storage,
		deps.Logger,
		esCfg.IndexName,
		storage.WithRetry(esCfg.Retry.MaxRetries, esCfg.Retry.InitialWait),
	)

	pipeline := crawler.NewPipeline(crawler.PipelineParams{
		Config:   crawlerCfg,
		Fetcher:  crawler.NewHTTPFetcher(&http.Client{Timeout: crawlerCfg.FetchTimeout}, crawlerCfg.UserAgent),
		Builder:  crawler.NewBuilder(crawlerCfg.LegacyRandomPid),
		Embedder: embedder,
		Ledger:   ledger.NewFileStore(crawlerCfg.HistoryFile, crawlerCfg.BackupFile),
		Upserter: uploader,
		Logger:   deps.Logger,
	})

	stats, err := pipeline.Run(cmd.Context(), maxPages)

	fmt.Println("Harvest summary:")
	fmt.Printf("  processed: %d\n", stats.Processed)
	fmt.Printf("  succeeded: %d\n", stats.Succeeded)
	fmt.Printf("  skipped:   %d\n", stats.Skipped)
	fmt.Printf("  failed:    %d\n", stats.Failed)
	fmt.Printf("  backed up: %d\n", stats.BackedUp)

	if err != nil {
		return fmt.Errorf("harvest run failed: %w", err)
	}
	return nil
}
