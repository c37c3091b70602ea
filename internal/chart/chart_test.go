package chart

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"barcache/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBars(n int) []market.Bar {
	out := make([]market.Bar, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = market.Bar{Timestamp: int64(i) * 3600, Open: c - 1, High: c + 2, Low: c - 2, Close: c, Volume: 10}
	}
	return out
}

func TestEMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	got := EMA(closes, 3)
	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)
	assert.Nil(t, EMA(closes, 9))
}

func TestHTMLContainsSeries(t *testing.T) {
	page, err := HTML(sampleBars(30), Options{Symbol: "ethusdt", Timeframe: market.Hour, EMAPeriods: []int{5, 200}})
	require.NoError(t, err)
	body := string(page)
	assert.Contains(t, body, "ETHUSDT 1h")
	assert.Contains(t, body, "EMA5")
	assert.NotContains(t, body, "EMA200")
	assert.Contains(t, body, "Volume 1h")
}

func TestHTMLRejectsEmpty(t *testing.T) {
	_, err := HTML(nil, Options{Symbol: "X", Timeframe: market.Day})
	assert.Error(t, err)
}

func TestWriteHTMLOnly(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	files, err := Write(context.Background(), dir, sampleBars(5), Options{Symbol: "BTCUSDT", Timeframe: market.Day}, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "btcusdt_day.html"), files.HTML)
	assert.Empty(t, files.PNG)
	_, err = os.Stat(files.HTML)
	assert.NoError(t, err)
}
