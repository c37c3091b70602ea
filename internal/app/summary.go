package app

import (
	"fmt"
	"io"
	"strings"

	"barcache/internal/broker"
	"barcache/internal/config"
	"barcache/internal/gateway/binance"
)

type StartupSummary struct {
	Cache   CacheSummary
	Fetcher FetcherSummary
	Journal string
	Export  string
	Charts  string
}

type CacheSummary struct {
	Root    string
	Tickers []string
	Files   []string
}

type FetcherSummary struct {
	Source      string
	BaseURL     string
	RatePerMin  int
	MaxBatch    int
	Concurrency int
	Proxy       string
}

func newSummary(cfg *config.Config, b *broker.Broker, src *binance.Source) *StartupSummary {
	s := &StartupSummary{
		Cache: CacheSummary{
			Root:    b.Root(),
			Tickers: b.Tickers(),
		},
		Fetcher: FetcherSummary{
			Source:      src.Name(),
			BaseURL:     cfg.Fetcher.RESTBaseURL,
			RatePerMin:  cfg.Fetcher.RateLimitPerMin,
			MaxBatch:    cfg.Fetcher.MaxBatch,
			Concurrency: cfg.Fetcher.Concurrency,
		},
		Export: cfg.Export.Dir,
		Charts: cfg.Chart.Dir,
	}
	if ft, err := cfg.Cache.FileTable(); err == nil {
		for _, tf := range ft.Timeframes() {
			name, _ := ft.File(tf)
			s.Cache.Files = append(s.Cache.Files, tf.String()+"="+name)
		}
	}
	if cfg.Fetcher.Proxy.Enabled {
		s.Fetcher.Proxy = cfg.Fetcher.Proxy.URL
	}
	if cfg.Journal.Enabled {
		s.Journal = cfg.Journal.Path
	}
	return s
}

func (s *StartupSummary) Print(w io.Writer) {
	rule := strings.Repeat("=", 80)
	title := "BARCACHE"
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "[CACHE]")
	fmt.Fprintf(w, "  root:    %s\n", s.Cache.Root)
	fmt.Fprintf(w, "  tickers: %s\n", formatList(s.Cache.Tickers))
	fmt.Fprintf(w, "  files:   %s\n", formatList(s.Cache.Files))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[FETCHER]")
	fmt.Fprintf(w, "  source:      %s (%s)\n", s.Fetcher.Source, s.Fetcher.BaseURL)
	fmt.Fprintf(w, "  rate:        %d/min\n", s.Fetcher.RatePerMin)
	fmt.Fprintf(w, "  max batch:   %d\n", s.Fetcher.MaxBatch)
	fmt.Fprintf(w, "  concurrency: %d\n", s.Fetcher.Concurrency)
	fmt.Fprintf(w, "  proxy:       %s\n", orDash(s.Fetcher.Proxy))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[OUTPUT]")
	fmt.Fprintf(w, "  journal: %s\n", orDash(s.Journal))
	fmt.Fprintf(w, "  export:  %s\n", orDash(s.Export))
	fmt.Fprintf(w, "  charts:  %s\n", orDash(s.Charts))
	fmt.Fprintln(w, rule)
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
