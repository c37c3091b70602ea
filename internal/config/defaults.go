package config

import (
	"strings"
)

const (
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultCacheRoot       = "@data"
	defaultFetcherSource   = "binance"
	defaultFetcherREST     = "https://fapi.binance.com"
	defaultFetcherTimeout  = 15
	defaultFetcherRate     = 480
	defaultFetcherBatch    = 1000
	defaultFetcherWorkers  = 2
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30
	defaultJournalPath     = "@data/journal.db"
	defaultExportDir       = "export"
	defaultChartDir        = "charts"
)

var defaultEMAPeriods = []int{20, 50}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Cache.applyDefaults(keys)
	c.Fetcher.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	applyFieldDefaults(keys,
		stringFieldDefault("export.dir", &c.Export.Dir, defaultExportDir),
		stringFieldDefault("chart.dir", &c.Chart.Dir, defaultChartDir),
		fieldDefault{
			key:   "chart.ema_periods",
			need:  func() bool { return len(c.Chart.EMAPeriods) == 0 },
			apply: func() { c.Chart.EMAPeriods = append([]int(nil), defaultEMAPeriods...) },
		},
	)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultLogFormat),
	)
	a.LogFormat = strings.ToLower(strings.TrimSpace(a.LogFormat))
}

func (c *CacheConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("cache.root", &c.Root, defaultCacheRoot),
	)
	c.Root = strings.TrimSpace(c.Root)
}

func (f *FetcherConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("fetcher.source", &f.Source, defaultFetcherSource),
		stringFieldDefault("fetcher.rest_base_url", &f.RESTBaseURL, defaultFetcherREST),
		intFieldDefault("fetcher.timeout_seconds", &f.TimeoutSeconds, defaultFetcherTimeout),
		intFieldDefault("fetcher.rate_limit_per_min", &f.RateLimitPerMin, defaultFetcherRate),
		intFieldDefault("fetcher.max_batch", &f.MaxBatch, defaultFetcherBatch),
		intFieldDefault("fetcher.concurrency", &f.Concurrency, defaultFetcherWorkers),
		intFieldDefault("fetcher.breaker.threshold", &f.Breaker.Threshold, defaultBreakerFailures),
		intFieldDefault("fetcher.breaker.cooldown_seconds", &f.Breaker.CooldownSeconds, defaultBreakerCooldown),
	)
	f.Source = strings.ToLower(strings.TrimSpace(f.Source))
	f.Proxy.normalize()
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("journal.enabled", &j.Enabled, true),
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault only applies when the key is absent, since false is a
// meaningful setting.
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}
