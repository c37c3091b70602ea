package rangestore

import (
	"cmp"
	"slices"

	"barcache/internal/cacheerr"
)

// Bound is an interval over K. SetRange always writes closed bounds; the
// open flags appear on remainders left behind when a later write cuts an
// older interval.
type Bound[K cmp.Ordered] struct {
	Start     K    `json:"start"`
	End       K    `json:"end"`
	StartOpen bool `json:"start_open,omitempty"`
	EndOpen   bool `json:"end_open,omitempty"`
}

func (b Bound[K]) empty() bool {
	return b.Start > b.End || (b.Start == b.End && (b.StartOpen || b.EndOpen))
}

// Contains reports whether key lies inside the bound.
func (b Bound[K]) Contains(key K) bool {
	afterStart := key > b.Start || (key == b.Start && !b.StartOpen)
	beforeEnd := key < b.End || (key == b.End && !b.EndOpen)
	return afterStart && beforeEnd
}

func (b Bound[K]) intersects(o Bound[K]) bool {
	lo, loOpen := b.Start, b.StartOpen
	if o.Start > lo || (o.Start == lo && o.StartOpen) {
		lo, loOpen = o.Start, o.StartOpen
	}
	hi, hiOpen := b.End, b.EndOpen
	if o.End < hi || (o.End == hi && o.EndOpen) {
		hi, hiOpen = o.End, o.EndOpen
	}
	return lo < hi || (lo == hi && !loOpen && !hiOpen)
}

func compareBounds[K cmp.Ordered](a, b Bound[K]) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	switch {
	case a.StartOpen == b.StartOpen:
		return 0
	case a.StartOpen:
		return 1
	default:
		return -1
	}
}

// Interval is one entry of the overwrite track.
type Interval[K cmp.Ordered, V any] struct {
	Range Bound[K] `json:"range"`
	Value V        `json:"value"`
}

// SetRange assigns value to the closed interval [start,end]. Older intervals
// overlapping it are trimmed, or split in two when the new interval lands
// inside one.
func (s *Store[K, T, V]) SetRange(start, end K, value V) error {
	if end < start {
		return cacheerr.Rangef("set range", "start %v is after end %v", start, end)
	}
	nb := Bound[K]{Start: start, End: end}
	out := make([]Interval[K, V], 0, len(s.intervals)+2)
	for _, iv := range s.intervals {
		if !iv.Range.intersects(nb) {
			out = append(out, iv)
			continue
		}
		left := iv.Range
		left.End, left.EndOpen = start, true
		if !left.empty() {
			out = append(out, Interval[K, V]{Range: left, Value: iv.Value})
		}
		right := iv.Range
		right.Start, right.StartOpen = end, true
		if !right.empty() {
			out = append(out, Interval[K, V]{Range: right, Value: iv.Value})
		}
	}
	out = append(out, Interval[K, V]{Range: nb, Value: value})
	slices.SortFunc(out, func(a, b Interval[K, V]) int { return compareBounds(a.Range, b.Range) })
	s.intervals = out
	return nil
}

// Value returns the value of the interval containing key.
func (s *Store[K, T, V]) Value(key K) (V, bool) {
	for _, iv := range s.intervals {
		if iv.Range.Start > key {
			break
		}
		if iv.Range.Contains(key) {
			return iv.Value, true
		}
	}
	var zero V
	return zero, false
}

// Covered reports whether the intervals together cover every key of the
// closed window [start,end].
func (s *Store[K, T, V]) Covered(start, end K) bool {
	if end < start {
		start, end = end, start
	}
	// keys below pos are covered; need says whether pos itself is not yet.
	pos, need := start, true
	for _, iv := range s.intervals {
		b := iv.Range
		if b.End < pos || (b.End == pos && (b.EndOpen || !need)) {
			continue
		}
		if b.Start > pos || (b.Start == pos && b.StartOpen && need) {
			return false
		}
		pos, need = b.End, b.EndOpen
		if pos > end || (pos == end && !need) {
			return true
		}
	}
	return false
}

// IntervalLen is the number of intervals in the overwrite track.
func (s *Store[K, T, V]) IntervalLen() int { return len(s.intervals) }

// Intervals returns a copy of the overwrite track in key order.
func (s *Store[K, T, V]) Intervals() []Interval[K, V] {
	return slices.Clone(s.intervals)
}

// Uncovered returns the parts of [start,end] outside every interval. Like
// Gaps, each window includes the neighbouring interval boundary keys. It is
// empty exactly when Covered(start,end) holds.
func (s *Store[K, T, V]) Uncovered(start, end K) []Window[K] {
	if end < start {
		start, end = end, start
	}
	var out []Window[K]
	pos, need := start, true
	for _, iv := range s.intervals {
		b := iv.Range
		if b.End < pos || (b.End == pos && (b.EndOpen || !need)) {
			continue
		}
		if b.Start > end {
			break
		}
		if b.Start > pos || (b.Start == pos && b.StartOpen && need) {
			out = append(out, Window[K]{Start: pos, End: b.Start})
		}
		pos, need = b.End, b.EndOpen
		if pos > end || (pos == end && !need) {
			return out
		}
	}
	return append(out, Window[K]{Start: pos, End: end})
}
