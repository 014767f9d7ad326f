// Package storage provides the Elasticsearch storage implementation.
package storage

import (
	"crypto/tls"
	"fmt"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/medialab/tfcharvest/internal/config"
	"github.com/medialab/tfcharvest/internal/logger"
)

// NewClient creates a new Elasticsearch client and verifies the
// connection with a ping.
func NewClient(cfg *config.ElasticsearchConfig, log logger.Interface) (*es.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("elasticsearch configuration is required")
	}

	if len(cfg.Addresses) > 0 {
		log.Debug("Connecting to Elasticsearch", "addresses", cfg.Addresses)
	}

	client, err := es.NewClient(*buildClientConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error pinging Elasticsearch: %s", res.String())
	}

	return client, nil
}

// buildClientConfig assembles the go-elasticsearch configuration from
// application settings.
func buildClientConfig(cfg *config.ElasticsearchConfig) *es.Config {
	clientConfig := es.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.InsecureSkipVerify {
		clientConfig.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				//nolint:gosec // configurable for development environments
				InsecureSkipVerify: true,
			},
		}
	}

	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	if cfg.CloudID != "" {
		clientConfig.CloudID = cfg.CloudID
	}

	return &clientConfig
}
