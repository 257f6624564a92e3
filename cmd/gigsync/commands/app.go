package commands

import (
	"errors"
	"fmt"

	"gigsync/internal/config"
	"gigsync/internal/crawler"
	"gigsync/internal/extractor"
	"gigsync/internal/logger"
	"gigsync/internal/notify"
	"gigsync/internal/pipeline"
	"gigsync/internal/sheets"
)

// app is the wired set of components shared by the subcommands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	pipeline *pipeline.Pipeline
	close    func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Debug("configuration loaded", "config", cfg.String())

	fetcher := crawler.NewFetcher(&cfg.Fetch, log)

	deps := pipeline.Deps{
		Source: crawler.NewStaticSource(fetcher, &cfg.Listing),
		Chat:   extractor.NewOpenAIClient(&cfg.Extraction, log),
	}

	if cfg.Notify.Enabled() {
		deps.Sender = notify.NewSMTPSender(&cfg.Notify)
	}

	client, closeSheets, err := sheets.NewClient(&cfg.Sheets, log)
	switch {
	case errors.Is(err, sheets.ErrBackendDisabled):
		log.Info("sheets backend disabled, only the ledger will be updated")
	case err != nil:
		return nil, fmt.Errorf("failed to open sheets backend: %w", err)
	default:
		deps.Sheets = client
	}

	return &app{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline.New(cfg, deps, log),
		close:    closeSheets,
	}, nil
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		a.log.Warn("failed to close sheets backend", "err", err)
	}
}
