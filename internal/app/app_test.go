package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"barcache/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Cache.Root = filepath.Join(dir, "bars")
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	return cfg
}

func TestNewBuildsEverything(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Cache.Root, "ETHUSDT"), 0o755))

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Broker)
	require.NotNil(t, a.Journal)
	assert.Equal(t, "binance", a.Fetcher.Name())
	assert.Equal(t, []string{"ETHUSDT"}, a.Broker.Tickers())
	assert.FileExists(t, cfg.Journal.Path)
}

func TestNewWithoutJournal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Journal.Enabled = false

	a, err := New(cfg)
	require.NoError(t, err)
	assert.Nil(t, a.Journal)
	assert.NoError(t, a.Close())
	assert.NoFileExists(t, cfg.Journal.Path)
}

func TestNewRejectsBadProxy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fetcher.Proxy.Enabled = true
	cfg.Fetcher.Proxy.URL = "://nope"

	_, err := New(cfg)
	assert.Error(t, err)
	_, err = New(nil)
	assert.Error(t, err)
}

func TestCloseTwice(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestSummaryPrint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fetcher.Proxy.Enabled = true
	cfg.Fetcher.Proxy.URL = "http://127.0.0.1:7890"
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	var buf bytes.Buffer
	a.Summary.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "BARCACHE")
	assert.Contains(t, out, cfg.Cache.Root)
	assert.Contains(t, out, "tickers: -")
	assert.Contains(t, out, "1d=day.json")
	assert.Contains(t, out, "http://127.0.0.1:7890")
	assert.Contains(t, out, cfg.Journal.Path)
}
