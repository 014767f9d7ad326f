// Package embedding generates semantic vectors for report content,
// truncating oversized text to the provider's token ceiling first.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/medialab/tfcharvest/internal/config"
	"github.com/medialab/tfcharvest/internal/logger"
)

// Embedder produces a vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder implements Embedder against the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	tokenizer Tokenizer
	logger    logger.Interface
	model     string
	maxTokens int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder for the configured model.
func NewOpenAIEmbedder(cfg *config.OpenAIConfig, log logger.Interface) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	tokenizer, err := NewTokenizerForModel(cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		tokenizer: tokenizer,
		logger:    log,
		model:     cfg.EmbeddingModel,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Embed returns the embedding vector for text. Empty input yields an
// empty vector without calling the provider.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}

	truncated, tokenCount := Truncate(e.tokenizer, text, e.maxTokens)
	if truncated != text {
		e.logger.Warn("Content exceeds token ceiling, truncated",
			"tokens", tokenCount,
			"max_tokens", e.maxTokens)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{truncated},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	return resp.Data[0].Embedding, nil
}
