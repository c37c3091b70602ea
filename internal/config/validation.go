package config

import (
	"fmt"
	"strings"

	"barcache/internal/logger"
)

const maxFetchBatch = 1500

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Fetcher.validate(); err != nil {
		return err
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	for _, p := range c.Chart.EMAPeriods {
		if p <= 0 {
			return fmt.Errorf("chart.ema_periods must be positive, got %d", p)
		}
	}
	return nil
}

func (a *AppConfig) validate() error {
	if !logger.ValidLevel(a.LogLevel) {
		return fmt.Errorf("app.log_level %q is not one of debug/info/warn/error", a.LogLevel)
	}
	switch a.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.Root == "" {
		return fmt.Errorf("cache.root cannot be empty")
	}
	if _, err := c.FileTable(); err != nil {
		return fmt.Errorf("cache.files: %w", err)
	}
	return nil
}

func (f *FetcherConfig) validate() error {
	if f.Source != "binance" {
		return fmt.Errorf("fetcher.source %q is not supported", f.Source)
	}
	if f.MaxBatch > maxFetchBatch {
		return fmt.Errorf("fetcher.max_batch must be <= %d", maxFetchBatch)
	}
	if f.Proxy.Enabled && f.Proxy.URL == "" {
		return fmt.Errorf("fetcher.proxy.url is required when the proxy is enabled")
	}
	return nil
}
