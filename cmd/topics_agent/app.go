package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/interview-topics/internal/config"
	"github.com/jonathan/interview-topics/internal/logging"
	"github.com/jonathan/interview-topics/internal/storage"
)

// app bundles what every command needs after configuration is resolved.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	flush  func()
}

// loadApp resolves configuration, builds the logger and installs the Sentry hook.
// Callers must defer a.close().
func loadApp(verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	flush, err := logging.InitSentry(logger, logging.SentrySettings{DSN: cfg.SentryDSN})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	return &app{cfg: cfg, logger: logger, flush: flush}, nil
}

func (a *app) close() {
	a.flush()
}

// openStore builds the configured backend and connects it. The caller owns Close.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.CreateClient(a.cfg.StoreConfig(), a.logger)
	if err != nil {
		return nil, err
	}
	if err := store.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", store.Provider(), err)
	}
	return store, nil
}

// withStore opens the store, runs fn and closes the store.
func (a *app) withStore(ctx context.Context, fn func(storage.Store) error) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)
	return fn(store)
}
