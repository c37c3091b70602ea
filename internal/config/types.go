package config

import (
	"strings"
	"time"

	"barcache/internal/market"
)

// Config is the full barcache configuration.
type Config struct {
	App     AppConfig     `toml:"app" yaml:"app"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Fetcher FetcherConfig `toml:"fetcher" yaml:"fetcher"`
	Journal JournalConfig `toml:"journal" yaml:"journal"`
	Export  ExportConfig  `toml:"export" yaml:"export"`
	Chart   ChartConfig   `toml:"chart" yaml:"chart"`
}

type AppConfig struct {
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
	// LogPath is teed with stdout; empty logs to stdout only.
	LogPath string `toml:"log_path" yaml:"log_path"`
}

type CacheConfig struct {
	Root string `toml:"root" yaml:"root"`
	// Files overrides file names by timeframe key or name, e.g. {"1d": "daily.json"}.
	Files map[string]string `toml:"files" yaml:"files"`
}

// FileTable returns the default file table with Files applied.
func (c CacheConfig) FileTable() (market.FileTable, error) {
	return market.DefaultFileTable().WithOverrides(c.Files)
}

type FetcherConfig struct {
	Source          string        `toml:"source" yaml:"source"`
	RESTBaseURL     string        `toml:"rest_base_url" yaml:"rest_base_url"`
	TimeoutSeconds  int           `toml:"timeout_seconds" yaml:"timeout_seconds"`
	RateLimitPerMin int           `toml:"rate_limit_per_min" yaml:"rate_limit_per_min"`
	MaxBatch        int           `toml:"max_batch" yaml:"max_batch"`
	Concurrency     int           `toml:"concurrency" yaml:"concurrency"`
	Proxy           ProxyConfig   `toml:"proxy" yaml:"proxy"`
	Breaker         BreakerConfig `toml:"breaker" yaml:"breaker"`
}

func (f FetcherConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	URL     string `toml:"url" yaml:"url"`
}

func (p *ProxyConfig) normalize() {
	p.URL = strings.TrimSpace(p.URL)
}

type BreakerConfig struct {
	Threshold       int `toml:"threshold" yaml:"threshold"`
	CooldownSeconds int `toml:"cooldown_seconds" yaml:"cooldown_seconds"`
}

func (b BreakerConfig) Cooldown() time.Duration {
	return time.Duration(b.CooldownSeconds) * time.Second
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

type ExportConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
}

type ChartConfig struct {
	Dir        string `toml:"dir" yaml:"dir"`
	EMAPeriods []int  `toml:"ema_periods" yaml:"ema_periods"`
	PNG        bool   `toml:"png" yaml:"png"`
}

// keySet tracks the field paths explicitly set in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
