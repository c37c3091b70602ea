package config

import (
	"os"
	"path/filepath"
	"testing"

	"barcache/internal/cacheerr"
	"barcache/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.Equal(t, "@data", cfg.Cache.Root)
	assert.Equal(t, "binance", cfg.Fetcher.Source)
	assert.Equal(t, 1000, cfg.Fetcher.MaxBatch)
	assert.Equal(t, 5, cfg.Fetcher.Breaker.Threshold)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, []int{20, 50}, cfg.Chart.EMAPeriods)
	require.NoError(t, validate(cfg))
}

func TestLoadOverridesAndIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
cache:
  root: /tmp/bars
fetcher:
  max_batch: 500
`)
	path := writeFile(t, dir, "main.yaml", `
include:
  - base.yaml
app:
  log_level: debug
  log_format: JSON
fetcher:
  concurrency: 4
journal:
  enabled: false
cache:
  files:
    1M: monthly.json
    min15: quarter.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "json", cfg.App.LogFormat)
	assert.Equal(t, "/tmp/bars", cfg.Cache.Root)
	assert.Equal(t, 500, cfg.Fetcher.MaxBatch)
	assert.Equal(t, 4, cfg.Fetcher.Concurrency)
	assert.False(t, cfg.Journal.Enabled)

	ft, err := cfg.Cache.FileTable()
	require.NoError(t, err)
	name, _ := ft.File(market.Month)
	assert.Equal(t, "monthly.json", name)
	name, _ = ft.File(market.Min)
	assert.Equal(t, "min.json", name)
	name, _ = ft.File(market.Min15)
	assert.Equal(t, "quarter.json", name)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", `
cache:
  rooot: /tmp
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, cacheerr.ErrConfig)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"log level":  "app:\n  log_level: loud\n",
		"log format": "app:\n  log_format: xml\n",
		"source":     "fetcher:\n  source: kraken\n",
		"batch":      "fetcher:\n  max_batch: 5000\n",
		"proxy":      "fetcher:\n  proxy:\n    enabled: true\n",
		"file dup":   "cache:\n  files:\n    1d: hour.json\n",
		"ema":        "chart:\n  ema_periods: [10, -1]\n",
	}
	dir := t.TempDir()
	for name, body := range cases {
		path := writeFile(t, dir, "c.yaml", body)
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	path := writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvPath, "")
	cfg, path, err := LoadEnv()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "@data", cfg.Cache.Root)

	file := writeFile(t, t.TempDir(), "env.yaml", "cache:\n  root: elsewhere\n")
	t.Setenv(EnvPath, file)
	cfg, path, err = LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, file, path)
	assert.Equal(t, "elsewhere", cfg.Cache.Root)
}
