package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/medialab/tfcharvest/internal/logger"
)

// Constants for timeout durations
const (
	DefaultIndexTimeout          = 10 * time.Second
	DefaultSearchTimeout         = 10 * time.Second
	DefaultTestConnectionTimeout = 5 * time.Second
)

// Storage implements the storage interface against Elasticsearch.
type Storage struct {
	client *es.Client
	logger logger.Interface
}

// Ensure Storage implements Interface
var _ Interface = (*Storage)(nil)

// NewStorage creates a new storage instance.
func NewStorage(client *es.Client, log logger.Interface) *Storage {
	return &Storage{
		client: client,
		logger: log,
	}
}

// IndexDocument indexes a document in Elasticsearch. An empty id lets
// the store assign one (create); a non-empty id overwrites (update).
func (s *Storage) IndexDocument(
	ctx context.Context,
	index, id string,
	document any,
) (*IndexResponse, error) {
	if s.client == nil {
		return nil, ErrClientNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	body, err := json.Marshal(document)
	if err != nil {
		s.logger.Error("Failed to marshal document for indexing",
			"error", err,
			"index", index,
			"docID", id)
		return nil, fmt.Errorf("failed to marshal document for indexing: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		s.client.Index.WithContext(ctx),
	}
	if id != "" {
		opts = append(opts, s.client.Index.WithDocumentID(id))
	}

	res, err := s.client.Index(index, bytes.NewReader(body), opts...)
	if err != nil {
		s.logger.Error("Failed to index document",
			"error", err,
			"index", index,
			"docID", id)
		return nil, fmt.Errorf("failed to index document: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			s.logger.Error("Failed to close response body", "error", closeErr)
		}
	}()

	if res.IsError() {
		s.logger.Error("Elasticsearch returned error response",
			"error", res.String(),
			"index", index,
			"docID", id)
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var indexRes IndexResponse
	if decodeErr := json.NewDecoder(res.Body).Decode(&indexRes); decodeErr != nil {
		return nil, fmt.Errorf("error decoding index response: %w", decodeErr)
	}

	return &indexRes, nil
}

// SearchHits performs a search query and returns the hits array.
func (s *Storage) SearchHits(
	ctx context.Context,
	index string,
	query map[string]any,
) ([]SearchHit, error) {
	if s.client == nil {
		return nil, ErrClientNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("error marshaling search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []SearchHit `json:"hits"`
		} `json:"hits"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&result); decodeErr != nil {
		return nil, fmt.Errorf("error decoding search response: %w", decodeErr)
	}

	return result.Hits.Hits, nil
}

// IndexExists checks if the specified index exists.
func (s *Storage) IndexExists(ctx context.Context, index string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTestConnectionTimeout)
	defer cancel()

	res, err := s.client.Indices.Exists([]string{index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index existence: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			s.logger.Error("Error closing response body", "error", closeErr)
		}
	}()

	return res.StatusCode == http.StatusOK, nil
}

// CreateIndex creates a new index with the specified mapping.
func (s *Storage) CreateIndex(ctx context.Context, index string, mapping map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	var buf bytes.Buffer
	if encodeErr := json.NewEncoder(&buf).Encode(mapping); encodeErr != nil {
		return fmt.Errorf("error encoding mapping: %w", encodeErr)
	}

	res, err := s.client.Indices.Create(
		index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		s.logger.Error("Failed to create index", "index", index, "error", err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			s.logger.Error("Error closing response body", "error", closeErr)
		}
	}()

	if res.IsError() {
		s.logger.Error("Failed to create index", "index", index, "error", res.String())
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	s.logger.Info("Created index", "index", index)
	return nil
}

// DeleteIndex deletes an index.
func (s *Storage) DeleteIndex(ctx context.Context, index string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	res, err := s.client.Indices.Delete(
		[]string{index},
		s.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		s.logger.Error("Failed to delete index", "error", err)
		return fmt.Errorf("error deleting index: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			s.logger.Error("Error closing response body", "error", closeErr)
		}
	}()

	if res.IsError() {
		s.logger.Error("Failed to delete index", "error", res.String())
		return fmt.Errorf("error deleting index: %s", res.String())
	}

	s.logger.Info("Deleted index", "index", index)
	return nil
}

// ListIndices lists all indices in the cluster.
func (s *Storage) ListIndices(ctx context.Context) ([]string, error) {
	res, err := s.client.Cat.Indices(
		s.client.Cat.Indices.WithContext(ctx),
		s.client.Cat.Indices.WithFormat("json"),
	)
	if err != nil {
		s.logger.Error("Failed to list indices", "error", err)
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			s.logger.Error("Error closing response body", "error", closeErr)
		}
	}()

	if res.IsError() {
		return nil, fmt.Errorf("error listing indices: %s", res.String())
	}

	var indices []struct {
		Index string `json:"index"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&indices); decodeErr != nil {
		return nil, fmt.Errorf("error decoding indices: %w", decodeErr)
	}

	result := make([]string, len(indices))
	for i, idx := range indices {
		result[i] = idx.Index
	}

	return result, nil
}

// MappingFields returns the top-level field names known to the index.
func (s *Storage) MappingFields(ctx context.Context, index string) ([]string, error) {
	res, err := s.client.Indices.GetMapping(
		s.client.Indices.GetMapping.WithContext(ctx),
		s.client.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		s.logger.Error("Failed to get mapping", "error", err)
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			s.logger.Error("Error closing response body", "error", closeErr)
		}
	}()

	if res.IsError() {
		return nil, fmt.Errorf("error getting mapping: %s", res.String())
	}

	var mapping map[string]struct {
		Mappings struct {
			Properties map[string]any `json:"properties"`
		} `json:"mappings"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&mapping); decodeErr != nil {
		return nil, fmt.Errorf("error decoding mapping: %w", decodeErr)
	}

	entry, ok := mapping[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}

	fields := make([]string, 0, len(entry.Mappings.Properties))
	for name := range entry.Mappings.Properties {
		fields = append(fields, name)
	}
	return fields, nil
}

// Refresh forces a refresh so recent writes are visible to searches.
func (s *Storage) Refresh(ctx context.Context, index string) error {
	res, err := s.client.Indices.Refresh(
		s.client.Indices.Refresh.WithContext(ctx),
		s.client.Indices.Refresh.WithIndex(index),
	)
	if err != nil {
		return fmt.Errorf("failed to refresh index: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			s.logger.Error("Error closing response body", "error", closeErr)
		}
	}()

	if res.IsError() {
		return fmt.Errorf("error refreshing index: %s", res.String())
	}

	return nil
}

// TestConnection tests the connection to the storage backend.
func (s *Storage) TestConnection(ctx context.Context) error {
	if s.client == nil {
		return errors.New("elasticsearch client is nil")
	}

	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error pinging storage: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error pinging storage: %s", res.String())
	}

	return nil
}
