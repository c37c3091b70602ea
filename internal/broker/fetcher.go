package broker

import (
	"context"
	"time"

	"barcache/internal/market"
)

// FetchRequest describes one remote bar request. Start and End are unix
// seconds and both inclusive.
type FetchRequest struct {
	Symbol    string
	Timeframe market.Timeframe
	Start     int64
	End       int64
}

// Fetcher pulls bars from a remote source on a cache miss.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]market.Bar, error)
	Name() string
}

// FetchEvent is reported to the Journal after every remote call.
type FetchEvent struct {
	ID        string
	Source    string
	Request   FetchRequest
	Bars      int
	StartedAt time.Time
	Elapsed   time.Duration
	Err       error
}

// Journal records remote fetches. Failures to record are logged and never
// fail the retrieval.
type Journal interface {
	RecordFetch(ctx context.Context, ev FetchEvent) error
}

// Coverage stamps a window the broker has already asked the source for.
// Windows the source had no bars for stay covered, so they are not
// requested again.
type Coverage struct {
	Source    string `json:"source"`
	FetchedAt int64  `json:"fetched_at"`
}
