// Package common wires the dependencies shared by the CLI commands.
package common

import (
	"fmt"

	"github.com/medialab/tfcharvest/internal/config"
	"github.com/medialab/tfcharvest/internal/logger"
	"github.com/medialab/tfcharvest/internal/storage"
)

// Deps bundles the collaborators every command needs.
type Deps struct {
	Config  config.Interface
	Logger  logger.Interface
	Storage storage.Interface
}

// Setup loads configuration, builds the logger, and connects storage.
func Setup() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.GetLoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := storage.NewClient(cfg.GetElasticsearchConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	return &Deps{
		Config:  cfg,
		Logger:  log,
		Storage: storage.NewStorage(client, log),
	}, nil
}
