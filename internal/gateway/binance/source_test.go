package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"barcache/internal/broker"
	"barcache/internal/market"
	"barcache/internal/pkg/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// klineServer answers /fapi/v1/klines with one hourly bar per slot inside
// [startTime,endTime].
func klineServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		from, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		to, _ := strconv.ParseInt(r.URL.Query().Get("endTime"), 10, 64)
		var rows [][]any
		for ts := from; ts <= to; ts += 3_600_000 {
			rows = append(rows, []any{
				ts, "10", "12", "9", "11", "2",
				ts + 3_599_999, "21", 7, "1", "10.5", "0",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPagesAndConverts(t *testing.T) {
	var calls atomic.Int32
	srv := klineServer(t, &calls)
	src, err := New(Config{RESTBaseURL: srv.URL, MaxBatch: 4, Concurrency: 2, RateLimitPerMin: 60_000})
	require.NoError(t, err)

	bars, err := src.Fetch(context.Background(), broker.FetchRequest{
		Symbol: "eth/usdt", Timeframe: market.Hour, Start: 0, End: 9 * 3600,
	})
	require.NoError(t, err)
	require.Len(t, bars, 10)
	assert.EqualValues(t, 3, calls.Load())
	for i, b := range bars {
		assert.Equal(t, int64(i)*3600, b.Timestamp)
	}
	assert.Equal(t, 11.0, bars[0].Close)
	assert.Equal(t, 2.0, bars[0].Volume)
	assert.Equal(t, int64(7), bars[0].TradeCount)
	assert.InDelta(t, 10.5, bars[0].WAP, 1e-9)
}

func TestFetchDropsFormingBar(t *testing.T) {
	var calls atomic.Int32
	srv := klineServer(t, &calls)
	src, err := New(Config{RESTBaseURL: srv.URL, RateLimitPerMin: 60_000})
	require.NoError(t, err)
	src.now = func() time.Time { return time.Unix(2*3600+60, 0) }

	bars, err := src.Fetch(context.Background(), broker.FetchRequest{
		Symbol: "ETHUSDT", Timeframe: market.Hour, Start: 0, End: 2 * 3600,
	})
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestFetchUnsupportedTimeframe(t *testing.T) {
	src, err := New(Config{})
	require.NoError(t, err)
	_, err = src.Fetch(context.Background(), broker.FetchRequest{Symbol: "BTCUSDT", Timeframe: market.Sec5, Start: 0, End: 10})
	assert.Error(t, err)
}

func TestFetchServerErrorTripsBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":-1000,"msg":"boom"}`))
	}))
	t.Cleanup(srv.Close)

	src, err := New(Config{RESTBaseURL: srv.URL, BreakerThreshold: 1, BreakerCooldown: time.Hour, RateLimitPerMin: 60_000})
	require.NoError(t, err)
	req := broker.FetchRequest{Symbol: "ETHUSDT", Timeframe: market.Hour, Start: 0, End: 3600}

	_, err = src.Fetch(context.Background(), req)
	require.Error(t, err)
	_, err = src.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPages(t *testing.T) {
	ps := pages(market.Min15, 0, 10*900, 4)
	require.Len(t, ps, 3)
	assert.Equal(t, page{start: 0, end: 4*900 - 1}, ps[0])
	assert.Equal(t, page{start: 8 * 900, end: 10 * 900}, ps[2])
	assert.Nil(t, pages(market.Min15, 10, 0, 4))
}

func TestSymbolAndInterval(t *testing.T) {
	assert.Equal(t, "ETHUSDT", Symbol(" eth/usdt "))
	assert.Equal(t, "BTCUSDT", Symbol("btc-usdt"))
	iv, ok := Interval(market.Month)
	assert.True(t, ok)
	assert.Equal(t, "1M", iv)
	_, ok = Interval(market.Min20)
	assert.False(t, ok)
}
