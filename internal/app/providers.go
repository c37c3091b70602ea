package app

import (
	"barcache/internal/broker"
	"barcache/internal/config"
	"barcache/internal/gateway/binance"
	"barcache/internal/journal"
	"barcache/internal/logger"
	"barcache/internal/market"

	"github.com/google/wire"
)

var providerSet = wire.NewSet(
	provideFileTable,
	provideFetcher,
	provideJournal,
	provideBroker,
	newApp,
)

func provideFileTable(cfg *config.Config) (market.FileTable, error) {
	return cfg.Cache.FileTable()
}

func provideFetcher(cfg *config.Config) (*binance.Source, error) {
	f := cfg.Fetcher
	return binance.New(binance.Config{
		RESTBaseURL:      f.RESTBaseURL,
		HTTPTimeout:      f.Timeout(),
		ProxyEnabled:     f.Proxy.Enabled,
		RESTProxyURL:     f.Proxy.URL,
		RateLimitPerMin:  f.RateLimitPerMin,
		MaxBatch:         f.MaxBatch,
		Concurrency:      f.Concurrency,
		BreakerThreshold: f.Breaker.Threshold,
		BreakerCooldown:  f.Breaker.Cooldown(),
	})
}

// provideJournal returns a nil journal when journaling is disabled.
func provideJournal(cfg *config.Config) (*journal.Journal, func(), error) {
	if !cfg.Journal.Enabled {
		return nil, func() {}, nil
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Debugf("[app] journal=%s", cfg.Journal.Path)
	return j, func() { closeJournal(j) }, nil
}

func provideBroker(cfg *config.Config, files market.FileTable, src *binance.Source, j *journal.Journal) (*broker.Broker, error) {
	bc := broker.Config{
		Root:    cfg.Cache.Root,
		Files:   files,
		Fetcher: src,
	}
	// A typed nil would make the interface non-nil.
	if j != nil {
		bc.Journal = j
	}
	return broker.New(bc)
}
