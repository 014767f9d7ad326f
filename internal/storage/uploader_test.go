package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medialab/tfcharvest/internal/domain"
	"github.com/medialab/tfcharvest/internal/logger"
	"github.com/medialab/tfcharvest/internal/storage"
)

// fakeStorage implements storage.Interface in memory.
type fakeStorage struct {
	exists        bool
	mappingFields []string
	created       []string

	// existing documents
	titleHitID string // id returned for any title phrase query
	pidToID    map[string]string

	// failure injection
	titleSearchErr error
	indexFailsLeft int
	refreshErr     error

	indexed   []indexedCall
	refreshes int
}

type indexedCall struct {
	index    string
	id       string
	document map[string]any
}

var _ storage.Interface = (*fakeStorage)(nil)

func (f *fakeStorage) IndexDocument(
	_ context.Context,
	index, id string,
	document any,
) (*storage.IndexResponse, error) {
	if f.indexFailsLeft > 0 {
		f.indexFailsLeft--
		return nil, errors.New("transient index failure")
	}

	doc, _ := document.(map[string]any)
	f.indexed = append(f.indexed, indexedCall{index: index, id: id, document: doc})

	assigned := id
	if assigned == "" {
		assigned = fmt.Sprintf("auto-%d", len(f.indexed))
	}
	return &storage.IndexResponse{ID: assigned, Index: index, Version: 1, Result: "created"}, nil
}

func (f *fakeStorage) SearchHits(
	_ context.Context,
	_ string,
	query map[string]any,
) ([]storage.SearchHit, error) {
	inner, _ := query["query"].(map[string]any)

	if term, ok := inner["term"].(map[string]any); ok {
		pid, _ := term["pid"].(string)
		if id, found := f.pidToID[pid]; found {
			return []storage.SearchHit{{ID: id}}, nil
		}
		return nil, nil
	}

	// Anything else is the title phrase pre-check.
	if f.titleSearchErr != nil {
		return nil, f.titleSearchErr
	}
	if f.titleHitID != "" {
		return []storage.SearchHit{{ID: f.titleHitID}}, nil
	}
	return nil, nil
}

func (f *fakeStorage) IndexExists(_ context.Context, _ string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStorage) CreateIndex(_ context.Context, index string, _ map[string]any) error {
	f.created = append(f.created, index)
	f.exists = true
	return nil
}

func (f *fakeStorage) DeleteIndex(_ context.Context, _ string) error { return nil }

func (f *fakeStorage) ListIndices(_ context.Context) ([]string, error) { return nil, nil }

func (f *fakeStorage) MappingFields(_ context.Context, _ string) ([]string, error) {
	return f.mappingFields, nil
}

func (f *fakeStorage) Refresh(_ context.Context, _ string) error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeStorage) TestConnection(_ context.Context) error { return nil }

func newUploader(fake *fakeStorage) *storage.Uploader {
	return storage.NewUploader(
		fake,
		logger.NewNoop(),
		"test_reports",
		storage.WithRetry(3, time.Millisecond),
		storage.WithSleep(func(time.Duration) {}),
	)
}

func TestUpload_EmptyDocument(t *testing.T) {
	t.Parallel()

	uploader := newUploader(&fakeStorage{exists: true})
	result := uploader.Upload(context.Background(), nil, false)

	assert.Equal(t, domain.UploadFailed, result.Status)
}

func TestUpload_MissingPid(t *testing.T) {
	t.Parallel()

	uploader := newUploader(&fakeStorage{exists: true})
	result := uploader.Upload(context.Background(), map[string]any{"title": "x"}, false)

	assert.Equal(t, domain.UploadFailed, result.Status)
}

func TestUpload_CreatesMissingIndex(t *testing.T) {
	t.Parallel()

	fake := &fakeStorage{exists: false}
	uploader := newUploader(fake)

	result := uploader.Upload(context.Background(), map[string]any{
		"pid":   "20240307001",
		"title": "報告",
	}, false)

	require.Equal(t, domain.UploadSucceeded, result.Status)
	assert.Equal(t, []string{"test_reports"}, fake.created)
}

func TestUpload_StrictFieldFiltering(t *testing.T) {
	t.Parallel()

	fake := &fakeStorage{
		exists:        true,
		mappingFields: []string{"pid", "title"},
	}
	uploader := newUploader(fake)

	result := uploader.Upload(context.Background(), map[string]any{
		"pid":         "20240307001",
		"title":       "報告",
		"extra_field": "dropped",
	}, true)

	require.Equal(t, domain.UploadSucceeded, result.Status)
	assert.Equal(t, []string{"extra_field"}, result.IgnoredFields)

	require.Len(t, fake.indexed, 1)
	assert.NotContains(t, fake.indexed[0].document, "extra_field")
	assert.Contains(t, fake.indexed[0].document, "pid")
}

func TestUpload_UpdateWhenPidExists(t *testing.T) {
	t.Parallel()

	fake := &fakeStorage{
		exists:  true,
		pidToID: map[string]string{"20240307001": "existing-internal-id"},
	}
	uploader := newUploader(fake)

	result := uploader.Upload(context.Background(), map[string]any{
		"pid":   "20240307001",
		"title": "報告",
	}, false)

	require.Equal(t, domain.UploadSucceeded, result.Status)
	assert.Equal(t, "updated", result.Operation)
	require.Len(t, fake.indexed, 1)
	assert.Equal(t, "existing-internal-id", fake.indexed[0].id)
	assert.Equal(t, 1, fake.refreshes)
}

func TestUpload_CreateWhenPidAbsent(t *testing.T) {
	t.Parallel()

	fake := &fakeStorage{exists: true}
	uploader := newUploader(fake)

	result := uploader.Upload(context.Background(), map[string]any{
		"pid":   "20240307001",
		"title": "報告",
	}, false)

	require.Equal(t, domain.UploadSucceeded, result.Status)
	assert.Equal(t, "created", result.Operation)
	require.Len(t, fake.indexed, 1)
	assert.Empty(t, fake.indexed[0].id)
}

func TestUploadReport_SkipsExistingTitle(t *testing.T) {
	t.Parallel()

	fake := &fakeStorage{exists: true, titleHitID: "store-id-42"}
	uploader := newUploader(fake)

	report := &domain.Report{Pid: "20240307001", Title: "已存在的報告", Date: "2024-3-7"}
	result := uploader.UploadReport(context.Background(), report)

	assert.Equal(t, domain.UploadSkipped, result.Status)
	assert.Equal(t, "store-id-42", result.DocumentID)
	// The store must not be written a second time.
	assert.Empty(t, fake.indexed)
}

func TestUploadReport_CheckFailedProceedsToWrite(t *testing.T) {
	t.Parallel()

	// The title pre-check is best effort: exhausting its retries must
	// not block the write.
	fake := &fakeStorage{exists: true, titleSearchErr: errors.New("search down")}
	uploader := newUploader(fake)

	report := &domain.Report{Pid: "20240307001", Title: "報告", Date: "2024-3-7"}
	result := uploader.UploadReport(context.Background(), report)

	assert.Equal(t, domain.UploadSucceeded, result.Status)
	assert.Len(t, fake.indexed, 1)
}

func TestUploadReport_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeStorage{exists: true, indexFailsLeft: 2}
	uploader := newUploader(fake)

	report := &domain.Report{Pid: "20240307001", Title: "報告", Date: "2024-3-7"}
	result := uploader.UploadReport(context.Background(), report)

	assert.Equal(t, domain.UploadSucceeded, result.Status)
	assert.Len(t, fake.indexed, 1)
}

func TestUploadReport_FailsAfterRetryExhaustion(t *testing.T) {
	t.Parallel()

	fake := &fakeStorage{exists: true, indexFailsLeft: 10}
	uploader := newUploader(fake)

	report := &domain.Report{Pid: "20240307001", Title: "報告", Date: "2024-3-7"}
	result := uploader.UploadReport(context.Background(), report)

	assert.Equal(t, domain.UploadFailed, result.Status)
	assert.Contains(t, result.Message, "after 3 attempts")
}

func TestUploadReport_FillsDateAndFallbackPid(t *testing.T) {
	t.Parallel()

	fake := &fakeStorage{exists: true}
	uploader := newUploader(fake)

	report := &domain.Report{Title: "test"}
	result := uploader.UploadReport(context.Background(), report)

	require.Equal(t, domain.UploadSucceeded, result.Status)

	// Empty date falls back to today; the deterministic serial for
	// "test" is 326.
	wantPid := time.Now().Format("20060102") + "326"
	assert.Equal(t, wantPid, report.Pid)
}

func TestUploadReport_EmptyTitle(t *testing.T) {
	t.Parallel()

	uploader := newUploader(&fakeStorage{exists: true})
	result := uploader.UploadReport(context.Background(), &domain.Report{Pid: "x"})

	assert.Equal(t, domain.UploadFailed, result.Status)
}
