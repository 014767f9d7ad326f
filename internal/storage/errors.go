package storage

import "errors"

var (
	// ErrIndexNotFound is returned when the target index does not exist.
	ErrIndexNotFound = errors.New("index not found")
	// ErrClientNotInitialized is returned when the Elasticsearch client is nil.
	ErrClientNotInitialized = errors.New("elasticsearch client is not initialized")
)
