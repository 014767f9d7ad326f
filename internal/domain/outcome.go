package domain

// UploadStatus is the tagged outcome of one upload attempt. Expected
// paths (duplicate, validation) are statuses, not errors.
type UploadStatus string

const (
	// UploadSucceeded means the document was created or updated.
	UploadSucceeded UploadStatus = "Y"
	// UploadSkipped means a document with the same title already exists.
	UploadSkipped UploadStatus = "SKIP"
	// UploadFailed means the upload could not complete.
	UploadFailed UploadStatus = "N"
)

// UploadResult describes the outcome of one upsert against the store.
type UploadResult struct {
	Status  UploadStatus `json:"result"`
	Message string       `json:"message"`
	// DocumentID is the store-internal id that was written or, on
	// SKIP, the id of the existing document.
	DocumentID string `json:"document_id,omitempty"`
	// Operation is "created" or "updated" on success.
	Operation string `json:"operation,omitempty"`
	// Version is the store document version after a successful write.
	Version int64 `json:"version,omitempty"`
	// IgnoredFields lists record fields dropped by strict-field filtering.
	IgnoredFields []string `json:"ignored_fields,omitempty"`
}

// DuplicateOutcome is the result of the best-effort title pre-check.
type DuplicateOutcome int

const (
	// DuplicateNotFound means no document with the title exists.
	DuplicateNotFound DuplicateOutcome = iota
	// DuplicateFound means an existing document was located.
	DuplicateFound
	// DuplicateCheckFailed means the check itself failed; callers
	// proceed to write but log this distinctly from NotFound.
	DuplicateCheckFailed
)

// DuplicateCheck carries the pre-check outcome and, when found, the
// existing document id.
type DuplicateCheck struct {
	Outcome    DuplicateOutcome
	ExistingID string
	Err        error
}

// RunStats aggregates counters for one pipeline invocation.
type RunStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	BackedUp  int `json:"backed_up"`
}
