package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/medialab/tfcharvest/internal/domain"
	"github.com/medialab/tfcharvest/internal/logger"
)

// Uploader implements the search-then-write upsert protocol against
// one report index. It owns no persistent state.
type Uploader struct {
	storage    Interface
	logger     logger.Interface
	index      string
	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithRetry sets the retry count and delay for transient failures.
func WithRetry(maxRetries int, delay time.Duration) UploaderOption {
	return func(u *Uploader) {
		u.maxRetries = maxRetries
		u.retryDelay = delay
	}
}

// WithSleep overrides the retry sleep function. Used in tests.
func WithSleep(sleep func(time.Duration)) UploaderOption {
	return func(u *Uploader) {
		u.sleep = sleep
	}
}

// NewUploader creates an uploader bound to the given index.
func NewUploader(stor Interface, log logger.Interface, index string, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		storage:    stor,
		logger:     log,
		index:      index,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// CheckTitleExists runs the best-effort phrase-match duplicate check.
// A check that fails after retries is reported as CheckFailed, not as
// NotFound; callers proceed to write but log it distinctly.
func (u *Uploader) CheckTitleExists(ctx context.Context, title string) domain.DuplicateCheck {
	if strings.TrimSpace(title) == "" {
		return domain.DuplicateCheck{Outcome: domain.DuplicateNotFound}
	}

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match_phrase": map[string]any{"title": title}},
				},
			},
		},
		"size":    1,
		"_source": []string{"title", "pid"},
	}

	var lastErr error
	for attempt := 0; attempt < u.maxRetries; attempt++ {
		if attempt > 0 {
			u.sleep(u.retryDelay)
		}

		hits, err := u.storage.SearchHits(ctx, u.index, query)
		if err != nil {
			lastErr = err
			u.logger.Warn("Title duplicate check failed",
				"attempt", attempt+1,
				"max_retries", u.maxRetries,
				"error", err)
			continue
		}

		if len(hits) > 0 {
			return domain.DuplicateCheck{
				Outcome:    domain.DuplicateFound,
				ExistingID: hits[0].ID,
			}
		}
		return domain.DuplicateCheck{Outcome: domain.DuplicateNotFound}
	}

	return domain.DuplicateCheck{
		Outcome: domain.DuplicateCheckFailed,
		Err:     lastErr,
	}
}

// Upload performs one validate / sanitize / ensure-index / filter /
// lookup / write pass for a document. It does not retry; see
// UploadReport for the retry wrapper.
func (u *Uploader) Upload(
	ctx context.Context,
	document map[string]any,
	strictFields bool,
) domain.UploadResult {
	if len(document) == 0 {
		return domain.UploadResult{
			Status:  domain.UploadFailed,
			Message: "document cannot be empty",
		}
	}

	pid, _ := document["pid"].(string)
	if pid == "" {
		return domain.UploadResult{
			Status:  domain.UploadFailed,
			Message: "document must contain a pid field",
		}
	}

	cleaned, badDates := SanitizeDocument(document)
	for _, field := range badDates {
		u.logger.Warn("Unparseable date passed through unchanged",
			"field", field,
			"value", cleaned[field])
	}

	if err := u.ensureIndex(ctx); err != nil {
		return domain.UploadResult{
			Status:  domain.UploadFailed,
			Message: fmt.Sprintf("failed to ensure index: %v", err),
		}
	}

	filtered, ignored, err := u.filterFields(ctx, cleaned, strictFields)
	if err != nil {
		return domain.UploadResult{
			Status:  domain.UploadFailed,
			Message: fmt.Sprintf("failed to filter fields: %v", err),
		}
	}

	existingID, err := u.findByPid(ctx, pid)
	if err != nil {
		return domain.UploadResult{
			Status:  domain.UploadFailed,
			Message: fmt.Sprintf("failed to look up existing document: %v", err),
		}
	}

	operation := "created"
	if existingID != "" {
		operation = "updated"
	}

	res, err := u.storage.IndexDocument(ctx, u.index, existingID, filtered)
	if err != nil {
		return domain.UploadResult{
			Status:  domain.UploadFailed,
			Message: fmt.Sprintf("failed to index document: %v", err),
		}
	}

	// Later iterations dedup against this write, so it must be
	// visible immediately.
	if refreshErr := u.storage.Refresh(ctx, u.index); refreshErr != nil {
		u.logger.Warn("Failed to refresh index after write",
			"index", u.index,
			"error", refreshErr)
	}

	message := fmt.Sprintf("Document successfully %s", operation)
	if len(ignored) > 0 {
		message += fmt.Sprintf(" (ignored fields: %s)", strings.Join(ignored, ", "))
	}

	return domain.UploadResult{
		Status:        domain.UploadSucceeded,
		Message:       message,
		DocumentID:    res.ID,
		Operation:     operation,
		Version:       res.Version,
		IgnoredFields: ignored,
	}
}

// UploadReport runs the title pre-check and the full upload flow for a
// report record, retrying transient failures. This is the coordinator
// the pipeline driver calls.
func (u *Uploader) UploadReport(ctx context.Context, report *domain.Report) domain.UploadResult {
	if strings.TrimSpace(report.Title) == "" {
		return domain.UploadResult{
			Status:  domain.UploadFailed,
			Message: "report title cannot be empty",
		}
	}

	// A missing date breaks pid derivation and the store's date
	// handling; fall back to today.
	if strings.TrimSpace(report.Date) == "" {
		report.Date = time.Now().Format("2006-01-02")
		u.logger.Info("Report has no date, using today", "date", report.Date)
	}
	report.AssignFallbackPid()

	check := u.CheckTitleExists(ctx, report.Title)
	switch check.Outcome {
	case domain.DuplicateFound:
		u.logger.Info("Title already exists, skipping",
			"title", report.Title,
			"existing_id", check.ExistingID)
		return domain.UploadResult{
			Status:     domain.UploadSkipped,
			Message:    "document with same title already exists",
			DocumentID: check.ExistingID,
		}
	case domain.DuplicateCheckFailed:
		u.logger.Warn("Duplicate check exhausted retries, proceeding to upload",
			"title", report.Title,
			"error", check.Err)
	case domain.DuplicateNotFound:
	}

	document, err := reportToDocument(report)
	if err != nil {
		return domain.UploadResult{
			Status:  domain.UploadFailed,
			Message: fmt.Sprintf("failed to encode report: %v", err),
		}
	}

	var result domain.UploadResult
	for attempt := 0; attempt < u.maxRetries; attempt++ {
		if attempt > 0 {
			u.sleep(u.retryDelay)
		}

		result = u.Upload(ctx, document, false)
		if result.Status == domain.UploadSucceeded || result.Status == domain.UploadSkipped {
			return result
		}

		u.logger.Warn("Upload failed",
			"attempt", attempt+1,
			"max_retries", u.maxRetries,
			"message", result.Message)
	}

	result.Message = fmt.Sprintf("upload failed after %d attempts: %s", u.maxRetries, result.Message)
	return result
}

// ensureIndex creates the report index with its minimal mapping when
// it does not exist yet.
func (u *Uploader) ensureIndex(ctx context.Context) error {
	exists, err := u.storage.IndexExists(ctx, u.index)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return u.storage.CreateIndex(ctx, u.index, ReportMapping)
}

// filterFields drops document fields unknown to the index when strict
// mode is on, returning the names it dropped.
func (u *Uploader) filterFields(
	ctx context.Context,
	document map[string]any,
	strictFields bool,
) (map[string]any, []string, error) {
	if !strictFields {
		return document, nil, nil
	}

	fields, err := u.storage.MappingFields(ctx, u.index)
	if err != nil {
		return nil, nil, err
	}

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}

	filtered := make(map[string]any, len(document))
	var ignored []string
	for key, value := range document {
		if known[key] {
			filtered[key] = value
		} else {
			ignored = append(ignored, key)
		}
	}

	return filtered, ignored, nil
}

// findByPid returns the store-internal id of the document with the
// given pid, or empty when none exists. Term-level match, not
// full-text.
func (u *Uploader) findByPid(ctx context.Context, pid string) (string, error) {
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				"pid": pid,
			},
		},
	}

	hits, err := u.storage.SearchHits(ctx, u.index, query)
	if err != nil {
		return "", err
	}
	if len(hits) > 0 {
		return hits[0].ID, nil
	}
	return "", nil
}

// reportToDocument converts a report to the generic document shape the
// sanitizer and strict-field filter operate on.
func reportToDocument(report *domain.Report) (map[string]any, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	var document map[string]any
	if unmarshalErr := json.Unmarshal(data, &document); unmarshalErr != nil {
		return nil, unmarshalErr
	}
	return document, nil
}
