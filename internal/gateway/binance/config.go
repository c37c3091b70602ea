package binance

import (
	"strings"
	"time"
)

// maxKlineLimit is the largest page the futures klines endpoint serves.
const maxKlineLimit = 1500

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration

	ProxyEnabled bool
	RESTProxyURL string

	RateLimitPerMin int
	MaxBatch        int
	Concurrency     int

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	if out.RateLimitPerMin <= 0 {
		out.RateLimitPerMin = 480
	}
	if out.MaxBatch <= 0 || out.MaxBatch > maxKlineLimit {
		out.MaxBatch = 1000
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 2
	}
	if out.BreakerThreshold <= 0 {
		out.BreakerThreshold = 5
	}
	if out.BreakerCooldown <= 0 {
		out.BreakerCooldown = 30 * time.Second
	}
	return out
}
