// Package config provides configuration management for the harvester.
// It handles loading, validation, and access to configuration values
// from YAML files and environment variables via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/medialab/tfcharvest/internal/logger"
)

// Interface defines the interface for configuration management.
type Interface interface {
	// GetCrawlerConfig returns the crawler configuration.
	GetCrawlerConfig() *CrawlerConfig
	// GetElasticsearchConfig returns the Elasticsearch configuration.
	GetElasticsearchConfig() *ElasticsearchConfig
	// GetOpenAIConfig returns the embedding provider configuration.
	GetOpenAIConfig() *OpenAIConfig
	// GetLoggerConfig returns the logger configuration.
	GetLoggerConfig() *logger.Config
	// Validate validates the configuration.
	Validate() error
}

// Ensure Config implements Interface
var _ Interface = (*Config)(nil)

// Config represents the application configuration.
type Config struct {
	// Crawler holds crawler-specific configuration
	Crawler *CrawlerConfig `yaml:"crawler" mapstructure:"crawler"`
	// Elasticsearch holds Elasticsearch configuration
	Elasticsearch *ElasticsearchConfig `yaml:"elasticsearch" mapstructure:"elasticsearch"`
	// OpenAI holds embedding provider configuration
	OpenAI *OpenAIConfig `yaml:"openai" mapstructure:"openai"`
	// Logger holds logger configuration
	Logger *logger.Config `yaml:"logger" mapstructure:"logger"`
}

// GetCrawlerConfig returns the crawler configuration.
func (c *Config) GetCrawlerConfig() *CrawlerConfig {
	return c.Crawler
}

// GetElasticsearchConfig returns the Elasticsearch configuration.
func (c *Config) GetElasticsearchConfig() *ElasticsearchConfig {
	return c.Elasticsearch
}

// GetOpenAIConfig returns the embedding provider configuration.
func (c *Config) GetOpenAIConfig() *OpenAIConfig {
	return c.OpenAI
}

// GetLoggerConfig returns the logger configuration.
func (c *Config) GetLoggerConfig() *logger.Config {
	return c.Logger
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Crawler.Validate(); err != nil {
		return fmt.Errorf("crawler: %w", err)
	}
	if err := c.Elasticsearch.Validate(); err != nil {
		return fmt.Errorf("elasticsearch: %w", err)
	}
	if err := c.OpenAI.Validate(); err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	return nil
}

// Load builds the configuration from the current Viper state.
// Defaults are applied for any section the config file and
// environment left unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	if cfg.Crawler == nil {
		cfg.Crawler = NewCrawlerConfig()
	}
	if cfg.Elasticsearch == nil {
		cfg.Elasticsearch = NewElasticsearchConfig()
	}
	if cfg.OpenAI == nil {
		cfg.OpenAI = NewOpenAIConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = &logger.Config{Level: "info", Encoding: "console"}
	}

	if cfg.Crawler.BaseURL == "" {
		cfg.Crawler.BaseURL = DefaultBaseURL
	}
	if cfg.Crawler.MaxPages == 0 {
		cfg.Crawler.MaxPages = DefaultMaxPages
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = DefaultUserAgent
	}
	if cfg.Crawler.EntryDelay == 0 {
		cfg.Crawler.EntryDelay = DefaultEntryDelay
	}
	if cfg.Crawler.PageDelay == 0 {
		cfg.Crawler.PageDelay = DefaultPageDelay
	}
	if cfg.Crawler.FetchTimeout == 0 {
		cfg.Crawler.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Crawler.HistoryFile == "" {
		cfg.Crawler.HistoryFile = DefaultHistoryFile
	}
	if cfg.Crawler.BackupFile == "" {
		cfg.Crawler.BackupFile = DefaultBackupFile
	}

	// Addresses bound from an environment variable arrive as a single
	// comma-separated string.
	if len(cfg.Elasticsearch.Addresses) == 1 && strings.Contains(cfg.Elasticsearch.Addresses[0], ",") {
		cfg.Elasticsearch.Addresses = ParseAddressesFromString(cfg.Elasticsearch.Addresses[0])
	}
	if len(cfg.Elasticsearch.Addresses) == 0 && cfg.Elasticsearch.CloudID == "" {
		cfg.Elasticsearch.Addresses = []string{DefaultAddresses}
	}
	if cfg.Elasticsearch.IndexName == "" {
		cfg.Elasticsearch.IndexName = DefaultIndexName
	}
	if cfg.Elasticsearch.Retry.InitialWait == 0 {
		cfg.Elasticsearch.Retry.InitialWait = DefaultInitialWait
	}
	if cfg.Elasticsearch.Retry.MaxRetries == 0 {
		cfg.Elasticsearch.Retry.MaxRetries = DefaultMaxRetries
	}

	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = DefaultMaxTokens
	}
}
