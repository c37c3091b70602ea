package market

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Timeframe is a supported bar size.
type Timeframe int

const (
	Sec Timeframe = iota
	Sec5
	Sec15
	Sec30
	Min
	Min2
	Min3
	Min5
	Min15
	Min20
	Min30
	Hour
	Hour2
	Hour3
	Hour4
	Hour8
	Day
	Week
	Month
)

type timeframeInfo struct {
	Key      string
	Name     string
	Duration time.Duration
	File     string
}

// Month is approximated as 30 days when sizing requests; AlignDown and Next
// follow the calendar.
var timeframes = [...]timeframeInfo{
	Sec:   {Key: "1s", Name: "sec", Duration: time.Second, File: "sec.json"},
	Sec5:  {Key: "5s", Name: "sec5", Duration: 5 * time.Second, File: "sec5.json"},
	Sec15: {Key: "15s", Name: "sec15", Duration: 15 * time.Second, File: "sec15.json"},
	Sec30: {Key: "30s", Name: "sec30", Duration: 30 * time.Second, File: "sec30.json"},
	Min:   {Key: "1m", Name: "min", Duration: time.Minute, File: "min.json"},
	Min2:  {Key: "2m", Name: "min2", Duration: 2 * time.Minute, File: "min2.json"},
	Min3:  {Key: "3m", Name: "min3", Duration: 3 * time.Minute, File: "min3.json"},
	Min5:  {Key: "5m", Name: "min5", Duration: 5 * time.Minute, File: "min5.json"},
	Min15: {Key: "15m", Name: "min15", Duration: 15 * time.Minute, File: "min15.json"},
	Min20: {Key: "20m", Name: "min20", Duration: 20 * time.Minute, File: "min20.json"},
	Min30: {Key: "30m", Name: "min30", Duration: 30 * time.Minute, File: "min30.json"},
	Hour:  {Key: "1h", Name: "hour", Duration: time.Hour, File: "hour.json"},
	Hour2: {Key: "2h", Name: "hour2", Duration: 2 * time.Hour, File: "hour2.json"},
	Hour3: {Key: "3h", Name: "hour3", Duration: 3 * time.Hour, File: "hour3.json"},
	Hour4: {Key: "4h", Name: "hour4", Duration: 4 * time.Hour, File: "hour4.json"},
	Hour8: {Key: "8h", Name: "hour8", Duration: 8 * time.Hour, File: "hour8.json"},
	Day:   {Key: "1d", Name: "day", Duration: 24 * time.Hour, File: "day.json"},
	Week:  {Key: "1w", Name: "week", Duration: 7 * 24 * time.Hour, File: "week.json"},
	Month: {Key: "1M", Name: "month", Duration: 30 * 24 * time.Hour, File: "month.json"},
}

func (tf Timeframe) Valid() bool { return tf >= Sec && tf <= Month }

// String returns the short key, e.g. "15m" or "1d".
func (tf Timeframe) String() string {
	if !tf.Valid() {
		return fmt.Sprintf("timeframe(%d)", int(tf))
	}
	return timeframes[tf].Key
}

func (tf Timeframe) Name() string {
	if !tf.Valid() {
		return ""
	}
	return timeframes[tf].Name
}

func (tf Timeframe) Duration() time.Duration {
	if !tf.Valid() {
		return 0
	}
	return timeframes[tf].Duration
}

// AllTimeframes lists every bar size from finest to coarsest.
func AllTimeframes() []Timeframe {
	out := make([]Timeframe, 0, len(timeframes))
	for tf := Sec; tf <= Month; tf++ {
		out = append(out, tf)
	}
	return out
}

// ParseTimeframe accepts a key ("15m", "1M") or a name ("min15", "month").
// Keys are case sensitive because "1m" and "1M" differ; names are not.
func ParseTimeframe(input string) (Timeframe, error) {
	raw := strings.TrimSpace(input)
	for _, tf := range AllTimeframes() {
		if timeframes[tf].Key == raw {
			return tf, nil
		}
	}
	lower := strings.ToLower(raw)
	for _, tf := range AllTimeframes() {
		if timeframes[tf].Name == lower {
			return tf, nil
		}
	}
	if lower == "1mo" {
		return Month, nil
	}
	return 0, fmt.Errorf("unsupported timeframe: %q", input)
}

// weekOffset moves the week grid from the epoch Thursday to Monday
// 1970-01-05, where exchange weekly bars open.
const weekOffset = 4 * 24 * 60 * 60

// AlignDown snaps a unix-second timestamp to the open of the bar containing
// it. Weeks open on Monday and months on the first calendar day, in UTC.
func (tf Timeframe) AlignDown(ts int64) int64 {
	switch tf {
	case Week:
		return alignStep(ts-weekOffset, tf.step()) + weekOffset
	case Month:
		t := time.Unix(ts, 0).UTC()
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Unix()
	}
	return alignStep(ts, tf.step())
}

// Next returns the open of the bar after the one containing ts.
func (tf Timeframe) Next(ts int64) int64 {
	open := tf.AlignDown(ts)
	if tf == Month {
		return time.Unix(open, 0).UTC().AddDate(0, 1, 0).Unix()
	}
	return open + tf.step()
}

// ExpectedBars is the number of bar opens in [start,end].
func (tf Timeframe) ExpectedBars(start, end int64) int64 {
	step := tf.step()
	if end < start || step <= 0 {
		return 0
	}
	first := tf.AlignDown(start)
	if first < start {
		first = tf.Next(first)
	}
	if first > end {
		return 0
	}
	if tf == Month {
		a, b := time.Unix(first, 0).UTC(), time.Unix(end, 0).UTC()
		return int64((b.Year()-a.Year())*12+int(b.Month())-int(a.Month())) + 1
	}
	return (end-first)/step + 1
}

func (tf Timeframe) step() int64 { return int64(tf.Duration() / time.Second) }

func alignStep(ts, step int64) int64 {
	if step <= 0 {
		return ts
	}
	rem := ts % step
	if rem < 0 {
		rem += step
	}
	return ts - rem
}

// FileTable maps each timeframe to the file name used under a ticker
// directory.
type FileTable map[Timeframe]string

// DefaultFileTable returns the stock names, from sec.json up to month.json.
func DefaultFileTable() FileTable {
	out := make(FileTable, len(timeframes))
	for _, tf := range AllTimeframes() {
		out[tf] = timeframes[tf].File
	}
	return out
}

// WithOverrides returns a copy with names replaced by timeframe key or name.
func (ft FileTable) WithOverrides(overrides map[string]string) (FileTable, error) {
	out := make(FileTable, len(ft))
	for tf, name := range ft {
		out[tf] = name
	}
	for raw, name := range overrides {
		tf, err := ParseTimeframe(raw)
		if err != nil {
			return nil, err
		}
		out[tf] = strings.TrimSpace(name)
	}
	return out, out.Validate()
}

// Validate checks the names are non-empty, unique and plain file names.
func (ft FileTable) Validate() error {
	seen := make(map[string]Timeframe, len(ft))
	for _, tf := range ft.Timeframes() {
		name := ft[tf]
		if name == "" {
			return fmt.Errorf("timeframe %s has an empty file name", tf)
		}
		if name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("timeframe %s file name %q must not contain a path", tf, name)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("file name %q used by both %s and %s", name, prev, tf)
		}
		seen[name] = tf
	}
	return nil
}

func (ft FileTable) File(tf Timeframe) (string, bool) {
	name, ok := ft[tf]
	return name, ok && name != ""
}

// Lookup maps a file name back to its timeframe.
func (ft FileTable) Lookup(name string) (Timeframe, bool) {
	for tf, n := range ft {
		if n == name {
			return tf, true
		}
	}
	return 0, false
}

// Timeframes returns the configured timeframes in order.
func (ft FileTable) Timeframes() []Timeframe {
	out := make([]Timeframe, 0, len(ft))
	for tf := range ft {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
