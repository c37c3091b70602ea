// Package binance fetches historical bars from the USDT-M futures klines
// endpoint.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"barcache/internal/broker"
	"barcache/internal/logger"
	"barcache/internal/market"
	"barcache/internal/pkg/circuit"
	"barcache/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Source implements broker.Fetcher.
type Source struct {
	cfg     Config
	client  *futures.Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
	now     func() time.Time
}

var _ broker.Fetcher = (*Source)(nil)

// intervals lists the bar sizes the futures endpoint serves.
var intervals = map[market.Timeframe]string{
	market.Min:   "1m",
	market.Min3:  "3m",
	market.Min5:  "5m",
	market.Min15: "15m",
	market.Min30: "30m",
	market.Hour:  "1h",
	market.Hour2: "2h",
	market.Hour4: "4h",
	market.Hour8: "8h",
	market.Day:   "1d",
	market.Week:  "1w",
	market.Month: "1M",
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	perSec := rate.Limit(float64(final.RateLimitPerMin) / 60.0)
	return &Source{
		cfg:     final,
		client:  client,
		limiter: rate.NewLimiter(perSec, final.Concurrency),
		breaker: circuit.New("binance", final.BreakerThreshold, final.BreakerCooldown),
		now:     time.Now,
	}, nil
}

func (s *Source) Name() string { return "binance" }

// Symbol maps a cache ticker such as "eth/usdt" or "ETH-USDT" to "ETHUSDT".
func Symbol(ticker string) string { return symbol.Compact(ticker) }

// Interval returns the klines interval for tf.
func Interval(tf market.Timeframe) (string, bool) {
	iv, ok := intervals[tf]
	return iv, ok
}

type page struct {
	start, end int64
}

// pages splits [start,end] into windows of at most batch bars.
func pages(tf market.Timeframe, start, end int64, batch int) []page {
	step := int64(tf.Duration() / time.Second)
	if step <= 0 || end < start {
		return nil
	}
	span := step * int64(batch)
	var out []page
	for cur := start; cur <= end; cur += span {
		out = append(out, page{start: cur, end: min(cur+span-1, end)})
	}
	return out
}

// Fetch pulls every closed bar opening inside [req.Start, req.End]. Pages
// are requested concurrently under the rate limiter.
func (s *Source) Fetch(ctx context.Context, req broker.FetchRequest) ([]market.Bar, error) {
	pair := Symbol(req.Symbol)
	if pair == "" {
		return nil, errors.New("symbol is required")
	}
	interval, ok := Interval(req.Timeframe)
	if !ok {
		return nil, fmt.Errorf("timeframe %s is not served by binance futures", req.Timeframe)
	}
	start, end := req.Start, req.End
	if end < start {
		start, end = end, start
	}
	windows := pages(req.Timeframe, start, end, s.cfg.MaxBatch)
	results := make([][]market.Bar, len(windows))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Concurrency)
	for i, w := range windows {
		i, w := i, w
		group.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}
			var bars []market.Bar
			err := s.breaker.Do(gctx, func(ctx context.Context) error {
				var err error
				bars, err = s.klines(ctx, pair, interval, w)
				return err
			})
			if err != nil {
				return fmt.Errorf("klines %s %s [%d,%d]: %w", pair, interval, w.start, w.end, err)
			}
			results[i] = bars
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var out []market.Bar
	for _, r := range results {
		out = append(out, r...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	logger.Debugf("[binance] %s %s [%d,%d] pages=%d bars=%d", pair, interval, start, end, len(windows), len(out))
	return out, nil
}

func (s *Source) klines(ctx context.Context, pair, interval string, w page) ([]market.Bar, error) {
	svc := s.client.NewKlinesService().
		Symbol(pair).
		Interval(interval).
		StartTime(w.start * 1000).
		EndTime(w.end * 1000).
		Limit(s.cfg.MaxBatch)
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	nowMs := s.now().UnixMilli()
	out := make([]market.Bar, 0, len(kls))
	for _, kl := range kls {
		if kl == nil || kl.CloseTime > nowMs {
			continue
		}
		bar, err := convertKline(kl)
		if err != nil {
			return nil, err
		}
		out = append(out, bar)
	}
	return out, nil
}

func convertKline(kl *futures.Kline) (market.Bar, error) {
	fields := [...]string{kl.Open, kl.High, kl.Low, kl.Close, kl.Volume, kl.QuoteAssetVolume}
	var vals [len(fields)]decimal.Decimal
	for i, raw := range fields {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return market.Bar{}, fmt.Errorf("kline %d field %d: %w", kl.OpenTime, i, err)
		}
		vals[i] = d
	}
	vol, quote := vals[4], vals[5]
	wap := vals[3]
	if vol.IsPositive() {
		wap = quote.Div(vol)
	}
	return market.Bar{
		Timestamp:  kl.OpenTime / 1000,
		Open:       vals[0].InexactFloat64(),
		High:       vals[1].InexactFloat64(),
		Low:        vals[2].InexactFloat64(),
		Close:      vals[3].InexactFloat64(),
		Volume:     vol.InexactFloat64(),
		TradeCount: kl.TradeNum,
		WAP:        wap.InexactFloat64(),
	}, nil
}
