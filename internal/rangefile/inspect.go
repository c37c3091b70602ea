package rangefile

import (
	"errors"
	"fmt"
	"os"

	"barcache/internal/cacheerr"

	"github.com/tidwall/gjson"
)

// Summary describes a saved document without decoding its points.
type Summary struct {
	Path      string
	Bytes     int
	Version   int64
	Ranges    int
	Points    int
	Intervals int
	// First and Last are the raw JSON keys of the outermost ranges.
	First string
	Last  string
}

func (s Summary) String() string {
	if s.Ranges == 0 {
		return fmt.Sprintf("%s: empty (intervals=%d)", s.Path, s.Intervals)
	}
	return fmt.Sprintf("%s: v%d ranges=%d points=%d intervals=%d span=[%s,%s]",
		s.Path, s.Version, s.Ranges, s.Points, s.Intervals, s.First, s.Last)
}

// Inspect reads document counts with gjson.
func Inspect(path string) (Summary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read %s: %w", path, err)
	}
	if !gjson.ValidBytes(raw) {
		return Summary{}, cacheerr.Parse("inspect", path, errors.New("not valid JSON"))
	}
	doc := gjson.ParseBytes(raw)
	out := Summary{
		Path:      path,
		Bytes:     len(raw),
		Version:   doc.Get("version").Int(),
		Ranges:    int(doc.Get("ranges.#").Int()),
		Intervals: int(doc.Get("intervals.#").Int()),
	}
	first, last := "", ""
	var lo, hi gjson.Result
	doc.Get("ranges").ForEach(func(_, r gjson.Result) bool {
		out.Points += int(r.Get("data.#").Int())
		s, e := r.Get("start"), r.Get("end")
		if first == "" || less(s, lo) {
			lo, first = s, s.Raw
		}
		if last == "" || less(hi, e) {
			hi, last = e, e.Raw
		}
		return true
	})
	out.First, out.Last = first, last
	return out, nil
}

func less(a, b gjson.Result) bool {
	if a.Type == gjson.Number && b.Type == gjson.Number {
		return a.Float() < b.Float()
	}
	return a.String() < b.String()
}
