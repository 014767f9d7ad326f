package config

import (
	"fmt"
	"strings"
	"time"
)

// Elasticsearch defaults
const (
	DefaultAddresses    = "http://127.0.0.1:9200"
	DefaultIndexName    = "fact_check_reports"
	DefaultRetryEnabled = true
	DefaultInitialWait  = 2 * time.Second
	DefaultMaxRetries   = 3
)

// ElasticsearchConfig represents Elasticsearch configuration settings.
type ElasticsearchConfig struct {
	// Addresses is a list of Elasticsearch node addresses
	Addresses []string `yaml:"addresses" mapstructure:"addresses"`
	// APIKey is the base64 encoded API key for authentication
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// Username is the username for authentication
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the password for authentication
	Password string `yaml:"password" mapstructure:"password"`
	// IndexName is the name of the report index
	IndexName string `yaml:"index_name" mapstructure:"index_name"`
	// CloudID is the Elastic Cloud deployment ID
	CloudID string `yaml:"cloud_id" mapstructure:"cloud_id"`
	// Retry contains retry configuration for uploads
	Retry struct {
		Enabled     bool          `yaml:"enabled"      mapstructure:"enabled"`
		InitialWait time.Duration `yaml:"initial_wait" mapstructure:"initial_wait"`
		MaxRetries  int           `yaml:"max_retries"  mapstructure:"max_retries"`
	} `yaml:"retry" mapstructure:"retry"`
	// InsecureSkipVerify disables TLS certificate verification
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// Validate checks if the configuration is valid.
func (c *ElasticsearchConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("elasticsearch configuration is required")
	}
	if len(c.Addresses) == 0 && c.CloudID == "" {
		return fmt.Errorf("at least one elasticsearch address is required")
	}
	if c.IndexName == "" {
		return fmt.Errorf("elasticsearch index name is required")
	}
	if c.Retry.Enabled {
		if c.Retry.InitialWait < 0 || c.Retry.MaxRetries < 0 {
			return fmt.Errorf("elasticsearch retry configuration must be non-negative")
		}
	}
	return nil
}

// NewElasticsearchConfig creates an ElasticsearchConfig with default values.
func NewElasticsearchConfig() *ElasticsearchConfig {
	cfg := &ElasticsearchConfig{
		Addresses: []string{DefaultAddresses},
		IndexName: DefaultIndexName,
	}
	cfg.Retry.Enabled = DefaultRetryEnabled
	cfg.Retry.InitialWait = DefaultInitialWait
	cfg.Retry.MaxRetries = DefaultMaxRetries
	return cfg
}

// ParseAddressesFromString parses comma-separated addresses from a string.
func ParseAddressesFromString(addrStr string) []string {
	addresses := strings.Split(addrStr, ",")
	filtered := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			filtered = append(filtered, addr)
		}
	}
	return filtered
}
