package config

import "fmt"

// Embedding defaults
const (
	DefaultEmbeddingModel = "text-embedding-3-large"
	DefaultMaxTokens      = 8000
)

// OpenAIConfig represents embedding provider configuration settings.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// BaseURL overrides the API endpoint (for compatible providers)
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// EmbeddingModel is the embedding model name
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
	// MaxTokens is the token ceiling applied before requesting an embedding
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Validate checks if the configuration is valid.
func (c *OpenAIConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("openai configuration is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("openai API key is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("openai max tokens must be positive")
	}
	return nil
}

// NewOpenAIConfig creates an OpenAIConfig with default values.
func NewOpenAIConfig() *OpenAIConfig {
	return &OpenAIConfig{
		EmbeddingModel: DefaultEmbeddingModel,
		MaxTokens:      DefaultMaxTokens,
	}
}
