// Package app assembles the broker and its collaborators from configuration.
package app

import (
	"fmt"

	"barcache/internal/broker"
	"barcache/internal/config"
	"barcache/internal/gateway/binance"
	"barcache/internal/journal"
	"barcache/internal/logger"
)

// App owns everything built from one configuration.
type App struct {
	Config  *config.Config
	Broker  *broker.Broker
	Fetcher *binance.Source
	// Journal is nil when journaling is disabled.
	Journal *journal.Journal
	Summary *StartupSummary

	cleanup func()
}

// New builds the application without fetching anything.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)
	a, cleanup, err := buildAppWithWire(cfg)
	if err != nil {
		return nil, err
	}
	a.cleanup = cleanup
	return a, nil
}

// Close flushes the broker and releases the journal.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var err error
	if a.Broker != nil {
		err = a.Broker.Close()
	}
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	return err
}

func newApp(cfg *config.Config, b *broker.Broker, src *binance.Source, j *journal.Journal) *App {
	return &App{
		Config:  cfg,
		Broker:  b,
		Fetcher: src,
		Journal: j,
		Summary: newSummary(cfg, b, src),
	}
}

func closeJournal(j *journal.Journal) {
	if j == nil {
		return
	}
	if err := j.Close(); err != nil {
		logger.Warnf("[app] close journal: %v", err)
	}
}
