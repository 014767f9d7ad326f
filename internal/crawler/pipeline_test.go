package crawler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medialab/tfcharvest/internal/config"
	"github.com/medialab/tfcharvest/internal/domain"
	"github.com/medialab/tfcharvest/internal/ledger"
	"github.com/medialab/tfcharvest/internal/logger"
)

const listingURL = "http://listing.test/reports/"

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) FetchDocument(_ context.Context, url string) (*goquery.Document, error) {
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page registered for %s", url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeUpserter struct {
	status  domain.UploadStatus
	reports []*domain.Report
}

func (u *fakeUpserter) UploadReport(_ context.Context, report *domain.Report) domain.UploadResult {
	u.reports = append(u.reports, report)
	status := u.status
	if status == "" {
		status = domain.UploadSucceeded
	}
	return domain.UploadResult{Status: status}
}

func (u *fakeUpserter) titles() []string {
	out := make([]string, 0, len(u.reports))
	for _, r := range u.reports {
		out = append(out, r.Title)
	}
	return out
}

// listingPage renders a minimal listing page with one entry per title,
// newest first, optionally carrying a next-page indicator.
func listingPage(withNext bool, titles ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i, title := range titles {
		fmt.Fprintf(&b, `<li class="kb-query-item fact-check-reporter-%d">`, 100+i)
		fmt.Fprintf(&b, `<div class="kb-dynamic-html">%s</div>`, title)
		b.WriteString(`<div class="kt-adv-heading1">2024-03-07</div></li>`)
	}
	b.WriteString("</ul>")
	if withNext {
		b.WriteString(`<a class="next page-numbers" href="#">2</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newTestPipeline(
	fetcher *fakeFetcher,
	store *ledger.MemoryStore,
	embedder *fakeEmbedder,
	upserter *fakeUpserter,
) *Pipeline {
	return NewPipeline(PipelineParams{
		Config:   &config.CrawlerConfig{BaseURL: listingURL},
		Fetcher:  fetcher,
		Builder:  NewBuilder(false),
		Embedder: embedder,
		Ledger:   store,
		Upserter: upserter,
		Logger:   logger.NewNoop(),
	})
}

func TestRun_FreshHarvest(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: listingPage(false, "報告C", "報告B", "報告A"),
	}}
	store := ledger.NewMemoryStore()
	upserter := &fakeUpserter{}

	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{}, upserter)
	stats, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 3, stats.BackedUp)
	assert.Equal(t, []string{"報告C", "報告B", "報告A"}, upserter.titles())

	// The newest processed title becomes the next run's boundary.
	require.True(t, store.CursorWritten())
	cursor, _ := store.ReadCursor()
	assert.Equal(t, "報告C", cursor.LastTitle)
}

func TestRun_StopsAtPreviousBoundary(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: listingPage(false, "報告C", "報告B", "報告A"),
	}}
	store := ledger.NewMemoryStore()
	require.NoError(t, store.WriteCursor(ledger.Cursor{LastTitle: "報告B"}))
	upserter := &fakeUpserter{}

	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{}, upserter)
	stats, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)

	// Only the one article newer than the boundary is processed; the
	// boundary entry stops the run and older entries are never reached.
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, []string{"報告C"}, upserter.titles())

	// The stored boundary is kept, not advanced past a stopped run.
	cursor, _ := store.ReadCursor()
	assert.Equal(t, "報告B", cursor.LastTitle)
}

func TestRun_PaginationOverlapDedup(t *testing.T) {
	t.Parallel()

	// Page 2 re-surfaces the last entry of page 1.
	page2URL := listingURL + "?pg=2"
	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: listingPage(true, "報告C", "報告B"),
		page2URL:   listingPage(false, "報告B", "報告A"),
	}}
	store := ledger.NewMemoryStore()
	upserter := &fakeUpserter{}

	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{}, upserter)
	stats, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, []string{"報告C", "報告B", "報告A"}, upserter.titles())
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: listingPage(false, "報告B", "報告A"),
	}}
	store := ledger.NewMemoryStore()
	upserter := &fakeUpserter{}

	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{}, upserter)

	first, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Processed)

	// Nothing new appeared, so the second run processes nothing: every
	// entry is already in the backup ledger.
	second, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Len(t, upserter.reports, 2)
}

func TestRun_ListingFetchFailureIsFatal(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{}}
	pipeline := newTestPipeline(fetcher, ledger.NewMemoryStore(), &fakeEmbedder{}, &fakeUpserter{})

	_, err := pipeline.Run(context.Background(), 5)
	assert.Error(t, err)
}

func TestRun_EmptyPageStops(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: "<html><body><ul></ul></body></html>",
	}}
	store := ledger.NewMemoryStore()

	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{}, &fakeUpserter{})
	stats, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Processed)
	assert.False(t, store.CursorWritten())
}

func TestRun_RespectsMaxPages(t *testing.T) {
	t.Parallel()

	page2URL := listingURL + "?pg=2"
	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: listingPage(true, "報告B"),
		page2URL:   listingPage(true, "報告A"),
	}}

	pipeline := newTestPipeline(fetcher, ledger.NewMemoryStore(), &fakeEmbedder{}, &fakeUpserter{})
	stats, err := pipeline.Run(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, []string{listingURL}, fetcher.calls)
}

// detailEntry renders one listing entry pointing at a detail page.
func detailEntry(title, link string) string {
	return fmt.Sprintf(`<html><body><ul>
<li class="kb-query-item fact-check-reporter-500">
  <div class="kb-dynamic-html">%s</div>
  <div class="kt-adv-heading1">2024-03-07</div>
  <a class="kb-button" href="%s">閱讀更多</a>
</li>
</ul></body></html>`, title, link)
}

const detailBodyHTML = `<html><body><article>
  <h2>背景說明</h2>
  <p>網傳影片聲稱某地發生大規模事故，引發大量轉傳與討論。</p>
  <p>經比對原始影片與官方公開資料，確認畫面攝於多年以前。</p>
</article></body></html>`

func TestRun_EmbedsDetailContent(t *testing.T) {
	t.Parallel()

	detailURL := "http://listing.test/detail/500"
	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: detailEntry("報告A", detailURL),
		detailURL:  detailBodyHTML,
	}}
	embedder := &fakeEmbedder{}
	upserter := &fakeUpserter{}

	pipeline := newTestPipeline(fetcher, ledger.NewMemoryStore(), embedder, upserter)
	stats, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, embedder.calls)
	require.Len(t, upserter.reports, 1)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, upserter.reports[0].Embeddings)
	assert.Contains(t, upserter.reports[0].FullContent, "背景")
}

func TestRun_EmbedFailureCountsAsFailed(t *testing.T) {
	t.Parallel()

	detailURL := "http://listing.test/detail/500"
	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: detailEntry("報告A", detailURL),
		detailURL:  detailBodyHTML,
	}}
	embedder := &fakeEmbedder{err: fmt.Errorf("embedding api down")}
	upserter := &fakeUpserter{}

	pipeline := newTestPipeline(fetcher, ledger.NewMemoryStore(), embedder, upserter)
	stats, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)

	// The entry still counts as processed, but nothing is upserted.
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, upserter.reports)
}

func TestRun_DetailFetchFailureDegrades(t *testing.T) {
	t.Parallel()

	// The detail URL is not registered, so the detail fetch fails; the
	// listing-only record is still embedded-empty and upserted.
	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: detailEntry("報告A", "http://listing.test/detail/500"),
	}}
	embedder := &fakeEmbedder{}
	upserter := &fakeUpserter{}

	pipeline := newTestPipeline(fetcher, ledger.NewMemoryStore(), embedder, upserter)
	stats, err := pipeline.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 0, embedder.calls)
	require.Len(t, upserter.reports, 1)
	assert.Empty(t, upserter.reports[0].FullContent)
	assert.NotNil(t, upserter.reports[0].Embeddings)
	assert.Empty(t, upserter.reports[0].Embeddings)
}

func TestRun_UpsertSkipAndFailCounters(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		listingURL: listingPage(false, "報告A"),
	}}

	for _, tt := range []struct {
		status domain.UploadStatus
		check  func(t *testing.T, stats domain.RunStats)
	}{
		{domain.UploadSkipped, func(t *testing.T, stats domain.RunStats) {
			assert.Equal(t, 1, stats.Skipped)
		}},
		{domain.UploadFailed, func(t *testing.T, stats domain.RunStats) {
			assert.Equal(t, 1, stats.Failed)
		}},
	} {
		pipeline := newTestPipeline(fetcher, ledger.NewMemoryStore(), &fakeEmbedder{}, &fakeUpserter{status: tt.status})
		stats, err := pipeline.Run(context.Background(), 5)
		require.NoError(t, err)
		tt.check(t, stats)
	}
}
