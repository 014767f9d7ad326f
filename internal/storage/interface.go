package storage

import "context"

// IndexResponse is the subset of the store's write response the
// application cares about.
type IndexResponse struct {
	ID      string `json:"_id"`
	Index   string `json:"_index"`
	Version int64  `json:"_version"`
	Result  string `json:"result"`
}

// SearchHit is one hit from a search response.
type SearchHit struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}

// Interface defines the document store capabilities the application
// consumes. Implemented by Storage; faked in tests.
type Interface interface {
	// IndexDocument writes a document. An empty id creates a new
	// document with a store-assigned id; a non-empty id updates in
	// place.
	IndexDocument(ctx context.Context, index, id string, document any) (*IndexResponse, error)
	// SearchHits runs a query and returns the raw hits.
	SearchHits(ctx context.Context, index string, query map[string]any) ([]SearchHit, error)
	// IndexExists checks whether the index exists.
	IndexExists(ctx context.Context, index string) (bool, error)
	// CreateIndex creates an index with the given mapping.
	CreateIndex(ctx context.Context, index string, mapping map[string]any) error
	// DeleteIndex deletes an index.
	DeleteIndex(ctx context.Context, index string) error
	// ListIndices lists index names in the cluster.
	ListIndices(ctx context.Context) ([]string, error)
	// MappingFields returns the set of field names known to the index.
	MappingFields(ctx context.Context, index string) ([]string, error)
	// Refresh makes recent writes visible to subsequent reads.
	Refresh(ctx context.Context, index string) error
	// TestConnection pings the store.
	TestConnection(ctx context.Context) error
}
