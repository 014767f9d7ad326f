package config

import (
	"fmt"
	"time"
)

// Crawler defaults
const (
	DefaultBaseURL      = "https://tfc-taiwan.org.tw/fact-check-reports-all/"
	DefaultMaxPages     = 40
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultEntryDelay   = 500 * time.Millisecond
	DefaultPageDelay    = 1 * time.Second
	DefaultFetchTimeout = 30 * time.Second
	DefaultHistoryFile  = "tfc_crawler_history.json"
	DefaultBackupFile   = "report_uploaded.jsonl"
)

// CrawlerConfig represents crawler configuration settings.
type CrawlerConfig struct {
	// BaseURL is the listing page URL, newest reports first
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// MaxPages is the pagination ceiling for one run
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages"`
	// UserAgent is sent on every listing and detail fetch
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// EntryDelay is the pause between processed entries
	EntryDelay time.Duration `yaml:"entry_delay" mapstructure:"entry_delay"`
	// PageDelay is the pause between listing pages
	PageDelay time.Duration `yaml:"page_delay" mapstructure:"page_delay"`
	// FetchTimeout bounds a single HTTP fetch
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	// HistoryFile is the cursor file path
	HistoryFile string `yaml:"history_file" mapstructure:"history_file"`
	// BackupFile is the append-only JSONL backup path
	BackupFile string `yaml:"backup_file" mapstructure:"backup_file"`
	// LegacyRandomPid restores the original random pid fallback for
	// entries without a stable article id. Non-deterministic; the
	// hash fallback is used when false.
	LegacyRandomPid bool `yaml:"legacy_random_pid" mapstructure:"legacy_random_pid"`
}

// Validate checks if the configuration is valid.
func (c *CrawlerConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("crawler configuration is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("crawler base URL is required")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("crawler max pages must be positive")
	}
	return nil
}

// NewCrawlerConfig creates a CrawlerConfig with default values.
func NewCrawlerConfig() *CrawlerConfig {
	return &CrawlerConfig{
		BaseURL:      DefaultBaseURL,
		MaxPages:     DefaultMaxPages,
		UserAgent:    DefaultUserAgent,
		EntryDelay:   DefaultEntryDelay,
		PageDelay:    DefaultPageDelay,
		FetchTimeout: DefaultFetchTimeout,
		HistoryFile:  DefaultHistoryFile,
		BackupFile:   DefaultBackupFile,
	}
}
