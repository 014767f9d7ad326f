// Package crawler implements the incremental harvest pipeline: paginate
// the fact-check listing newest-first, build report records, embed and
// back up each one, and upsert it into the document store, stopping at
// the first title already ingested by a prior run.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/medialab/tfcharvest/internal/config"
	"github.com/medialab/tfcharvest/internal/domain"
	"github.com/medialab/tfcharvest/internal/embedding"
	"github.com/medialab/tfcharvest/internal/ledger"
	"github.com/medialab/tfcharvest/internal/logger"
)

// Upserter hands one finished record to the document store.
type Upserter interface {
	UploadReport(ctx context.Context, report *domain.Report) domain.UploadResult
}

// Pipeline drives the harvest. Strictly sequential: one page, one
// entry at a time; it owns the stop decision and the cursor update.
type Pipeline struct {
	cfg      *config.CrawlerConfig
	fetcher  Fetcher
	builder  *Builder
	embedder embedding.Embedder
	ledger   ledger.Store
	upserter Upserter
	logger   logger.Interface
	sleep    func(time.Duration)
}

// PipelineParams contains the pipeline's collaborators.
type PipelineParams struct {
	Config   *config.CrawlerConfig
	Fetcher  Fetcher
	Builder  *Builder
	Embedder embedding.Embedder
	Ledger   ledger.Store
	Upserter Upserter
	Logger   logger.Interface
}

// NewPipeline creates a pipeline from its collaborators.
func NewPipeline(p PipelineParams) *Pipeline {
	return &Pipeline{
		cfg:      p.Config,
		fetcher:  p.Fetcher,
		builder:  p.Builder,
		embedder: p.Embedder,
		ledger:   p.Ledger,
		upserter: p.Upserter,
		logger:   p.Logger,
		sleep:    time.Sleep,
	}
}

// Run harvests up to maxPages listing pages and returns the run
// statistics. A listing page that fails to fetch is fatal for the run;
// per-entry failures are counted and skipped.
func (p *Pipeline) Run(ctx context.Context, maxPages int) (domain.RunStats, error) {
	stats := domain.RunStats{}
	log := p.logger.With("run_id", uuid.NewString())

	cursor, err := p.ledger.ReadCursor()
	if err != nil {
		return stats, fmt.Errorf("failed to read harvest cursor: %w", err)
	}
	if cursor.LastTitle != "" {
		log.Info("Resuming after previous run", "last_title", cursor.LastTitle)
	}

	var firstTitle string
	duplicateFound := false

	for page := 1; page <= maxPages && !duplicateFound; page++ {
		url := p.cfg.BaseURL
		if page > 1 {
			url = fmt.Sprintf("%s?pg=%d", p.cfg.BaseURL, page)
		}
		log.Info("Fetching listing page", "page", page, "url", url)

		doc, fetchErr := p.fetcher.FetchDocument(ctx, url)
		if fetchErr != nil {
			return stats, fmt.Errorf("failed to fetch listing page %d: %w", page, fetchErr)
		}

		entries := doc.Find(entrySelector)
		if entries.Length() == 0 {
			log.Info("Listing page has no entries, stopping", "page", page)
			break
		}
		log.Info("Found entries", "page", page, "count", entries.Length())

		entries.EachWithBreak(func(i int, entry *goquery.Selection) bool {
			outcome := p.processEntry(ctx, log, entry, cursor.LastTitle, &stats, &firstTitle)
			if outcome == entryStop {
				duplicateFound = true
				return false
			}
			if outcome == entryProcessed {
				p.sleep(p.cfg.EntryDelay)
			}
			return true
		})

		if duplicateFound {
			break
		}

		if doc.Find(nextPageSelector).Length() == 0 {
			log.Info("No next page indicator, harvest complete", "page", page)
			break
		}
		p.sleep(p.cfg.PageDelay)
	}

	// Advance the cursor only when the run is contiguous with history:
	// something was processed and the previous boundary was never hit.
	// When the stop condition fired, the stored cursor is already the
	// correct newest boundary.
	if stats.Processed > 0 && firstTitle != "" && !duplicateFound {
		writeErr := p.ledger.WriteCursor(ledger.Cursor{
			LastTitle: firstTitle,
			LastTime:  time.Now(),
		})
		if writeErr != nil {
			log.Error("Failed to write harvest cursor", "error", writeErr)
		} else {
			log.Info("Recorded newest processed title", "title", firstTitle)
		}
	}

	return stats, nil
}

// entryOutcome tells the page loop what one entry did.
type entryOutcome int

const (
	entrySkipped entryOutcome = iota
	entryProcessed
	entryStop
)

// processEntry handles one listing entry end to end: dedup checks,
// record build, detail enrichment, embedding, backup, upsert.
func (p *Pipeline) processEntry(
	ctx context.Context,
	log logger.Interface,
	entry *goquery.Selection,
	lastTitle string,
	stats *domain.RunStats,
	firstTitle *string,
) entryOutcome {
	title := p.builder.ExtractTitle(entry)
	if title == "" {
		return entrySkipped
	}

	// Intra-run dedup: pagination overlap re-surfaces entries already
	// handled earlier in this very run.
	seen, scanErr := p.ledger.ScanForTitle(title)
	if scanErr != nil {
		log.Warn("Backup ledger scan failed", "title", title, "error", scanErr)
	}
	if seen {
		log.Info("Already processed in this run, skipping", "title", title)
		return entrySkipped
	}

	// Cross-run stop: everything from here on is older than the
	// previous run's newest article.
	if lastTitle != "" && title == lastTitle {
		log.Info("Reached previous harvest boundary, stopping", "title", title)
		return entryStop
	}

	report := p.buildReport(ctx, log, entry, title)

	stats.Processed++
	if *firstTitle == "" {
		*firstTitle = title
	}

	if report.FullContent != "" {
		vector, embedErr := p.embedder.Embed(ctx, report.FullContent)
		if embedErr != nil {
			log.Error("Failed to embed report content", "title", title, "error", embedErr)
			stats.Failed++
			return entryProcessed
		}
		report.Embeddings = vector
	} else {
		report.Embeddings = []float32{}
	}

	if appendErr := p.ledger.Append(report); appendErr != nil {
		log.Warn("Failed to back up report", "title", title, "error", appendErr)
	} else {
		stats.BackedUp++
	}

	result := p.upserter.UploadReport(ctx, report)
	switch result.Status {
	case domain.UploadSucceeded:
		log.Info("Report uploaded",
			"title", title,
			"pid", report.Pid,
			"operation", result.Operation,
			"doc_id", result.DocumentID)
		stats.Succeeded++
	case domain.UploadSkipped:
		log.Info("Report already in store, skipped",
			"title", title,
			"existing_id", result.DocumentID)
		stats.Skipped++
	case domain.UploadFailed:
		log.Error("Report upload failed", "title", title, "message", result.Message)
		stats.Failed++
	}

	return entryProcessed
}

// buildReport builds the record from the listing entry and, when a
// detail link exists, enriches it from the detail page. Detail fetch
// failure degrades to listing-only fields.
func (p *Pipeline) buildReport(
	ctx context.Context,
	log logger.Interface,
	entry *goquery.Selection,
	title string,
) *domain.Report {
	report := p.builder.BuildFromListing(entry, title)

	if report.Link != "" {
		detail, err := p.fetcher.FetchDocument(ctx, report.Link)
		if err != nil {
			log.Warn("Failed to fetch detail page, keeping listing fields",
				"link", report.Link,
				"error", err)
			return report
		}
		p.builder.EnrichFromDetail(report, detail)
	}

	return report
}
