package market

import (
	"fmt"
	"time"
)

// Bar is one OHLCV record. Timestamp is the bar open in unix seconds and is
// the key bars are cached and merged by.
type Bar struct {
	Timestamp  int64   `json:"timestamp"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	TradeCount int64   `json:"trade_count"`
	WAP        float64 `json:"wap"`
}

// BarKey is the range key of a bar.
func BarKey(b Bar) int64 { return b.Timestamp }

func (b Bar) Time() time.Time { return time.Unix(b.Timestamp, 0).UTC() }

// TimeString formats the bar open for logs and chart axes.
func (b Bar) TimeString() string {
	if b.Timestamp <= 0 {
		return "-"
	}
	return b.Time().Format("2006-01-02 15:04") + "Z"
}

func (b Bar) String() string {
	return fmt.Sprintf("%s o=%.4f h=%.4f l=%.4f c=%.4f v=%.2f n=%d wap=%.4f",
		b.TimeString(), b.Open, b.High, b.Low, b.Close, b.Volume, b.TradeCount, b.WAP)
}

type Bars []Bar

// Bounds returns the lowest and highest timestamps.
func (bs Bars) Bounds() (lo, hi int64, ok bool) {
	if len(bs) == 0 {
		return 0, 0, false
	}
	lo, hi = bs[0].Timestamp, bs[0].Timestamp
	for _, b := range bs[1:] {
		lo = min(lo, b.Timestamp)
		hi = max(hi, b.Timestamp)
	}
	return lo, hi, true
}

// Closes returns the close series in order.
func (bs Bars) Closes() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.Close
	}
	return out
}
