// Package rangestore keeps disjoint key ranges of ordered points in memory.
//
// A Store has two tracks sharing one key space. AddRange merges point sets
// into coalesced entries (touching ranges always merge), and SetRange writes
// single values over intervals with last-write-wins. Neither track does I/O;
// see package rangefile for persistence.
package rangestore

import (
	"cmp"
	"slices"
	"sort"

	"barcache/internal/cacheerr"
)

// Entry is one coalesced range. Start and End are the min and max key in
// Data, and Data is sorted and unique by key.
type Entry[K cmp.Ordered, T any] struct {
	Start K   `json:"start"`
	End   K   `json:"end"`
	Data  []T `json:"data"`
}

// Contains reports whether [start,end] lies inside the entry.
func (e Entry[K, T]) Contains(start, end K) bool {
	return e.Start <= start && e.End >= end
}

// Overlaps treats shared boundary keys as overlap.
func (e Entry[K, T]) Overlaps(start, end K) bool {
	return !(e.End < start || end < e.Start)
}

// Window is a closed key span.
type Window[K cmp.Ordered] struct {
	Start K `json:"start"`
	End   K `json:"end"`
}

// Store holds the merge track of points keyed by K and the overwrite track
// of V values over intervals. It is not safe for concurrent use.
type Store[K cmp.Ordered, T any, V any] struct {
	keyOf     func(T) K
	entries   []Entry[K, T]
	intervals []Interval[K, V]
}

// New returns an empty store whose points are keyed by keyOf.
func New[K cmp.Ordered, T any, V any](keyOf func(T) K) *Store[K, T, V] {
	if keyOf == nil {
		panic("rangestore: nil key function")
	}
	return &Store[K, T, V]{keyOf: keyOf}
}

// NewOrdered returns a store whose points are their own keys.
func NewOrdered[K cmp.Ordered]() *Store[K, K, K] {
	return New[K, K, K](Identity[K])
}

func Identity[K cmp.Ordered](k K) K { return k }

// KeyOf exposes the key function so a restored store can be rebuilt with it.
func (s *Store[K, T, V]) KeyOf() func(T) K { return s.keyOf }

// AddRange merges points into the store. Every entry overlapping or touching
// [min,max] of points is absorbed into a single new entry. On duplicate keys
// the incoming point replaces the stored one.
func (s *Store[K, T, V]) AddRange(points []T) error {
	if len(points) == 0 {
		return cacheerr.Rangef("add range", "points must not be empty")
	}
	start, end := s.keyOf(points[0]), s.keyOf(points[0])
	for _, p := range points[1:] {
		k := s.keyOf(p)
		start = min(start, k)
		end = max(end, k)
	}

	byKey := make(map[K]T, len(points))
	kept := make([]Entry[K, T], 0, len(s.entries)+1)
	for _, e := range s.entries {
		if !e.Overlaps(start, end) {
			kept = append(kept, e)
			continue
		}
		for _, p := range e.Data {
			byKey[s.keyOf(p)] = p
		}
	}
	for _, p := range points {
		byKey[s.keyOf(p)] = p
	}

	data := make([]T, 0, len(byKey))
	for _, p := range byKey {
		data = append(data, p)
	}
	slices.SortFunc(data, func(a, b T) int { return cmp.Compare(s.keyOf(a), s.keyOf(b)) })
	merged := Entry[K, T]{Start: s.keyOf(data[0]), End: s.keyOf(data[len(data)-1]), Data: data}

	idx := sort.Search(len(kept), func(i int) bool { return kept[i].Start > merged.Start })
	kept = slices.Insert(kept, idx, merged)
	s.entries = kept
	return nil
}

// Query classifies [start,end] against the stored entries. An inverted window
// is swapped first. When several entries contain the window (not possible
// while the store is disjoint) the one with the lowest start wins.
func (s *Store[K, T, V]) Query(start, end K) Result[T] {
	if end < start {
		start, end = end, start
	}
	var (
		points   []T
		overlaps int
	)
	for _, e := range s.entries {
		if e.Contains(start, end) {
			return Result[T]{Status: Found, Points: s.subrange(e, start, end)}
		}
		if e.Overlaps(start, end) {
			points = append(points, s.subrange(e, start, end)...)
			overlaps++
		}
	}
	switch {
	case overlaps == 1:
		return Result[T]{Status: Partial, Points: points}
	case overlaps > 1:
		slices.SortStableFunc(points, func(a, b T) int { return cmp.Compare(s.keyOf(a), s.keyOf(b)) })
		return Result[T]{Status: SpansMultiple, Points: points}
	default:
		return Result[T]{Status: NotFound}
	}
}

func (s *Store[K, T, V]) subrange(e Entry[K, T], start, end K) []T {
	lo := sort.Search(len(e.Data), func(i int) bool { return s.keyOf(e.Data[i]) >= start })
	hi := sort.Search(len(e.Data), func(i int) bool { return s.keyOf(e.Data[i]) > end })
	if lo >= hi {
		return nil
	}
	out := make([]T, hi-lo)
	copy(out, e.Data[lo:hi])
	return out
}

// Point returns the stored point with exactly this key.
func (s *Store[K, T, V]) Point(key K) (T, bool) {
	var zero T
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].End >= key })
	if i == len(s.entries) || s.entries[i].Start > key {
		return zero, false
	}
	data := s.entries[i].Data
	j := sort.Search(len(data), func(j int) bool { return s.keyOf(data[j]) >= key })
	if j == len(data) || s.keyOf(data[j]) != key {
		return zero, false
	}
	return data[j], true
}

// Gaps returns the parts of [start,end] not inside any entry. Each gap
// includes the neighbouring entry boundary keys, so refetching a gap never
// leaves a hole and the overlap is absorbed by AddRange.
func (s *Store[K, T, V]) Gaps(start, end K) []Window[K] {
	if end < start {
		start, end = end, start
	}
	var gaps []Window[K]
	pos, covered := start, false
	for _, e := range s.entries {
		if !e.Overlaps(start, end) {
			continue
		}
		if e.Start > pos {
			gaps = append(gaps, Window[K]{Start: pos, End: e.Start})
		}
		pos = max(pos, e.End)
		covered = true
	}
	if !covered || pos < end {
		gaps = append(gaps, Window[K]{Start: pos, End: end})
	}
	return gaps
}

// Len is the number of disjoint entries.
func (s *Store[K, T, V]) Len() int { return len(s.entries) }

// TotalLen is the number of points across all entries.
func (s *Store[K, T, V]) TotalLen() int {
	total := 0
	for _, e := range s.entries {
		total += len(e.Data)
	}
	return total
}

// Entries returns a copy of the entries in key order.
func (s *Store[K, T, V]) Entries() []Entry[K, T] {
	out := make([]Entry[K, T], len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry[K, T]{Start: e.Start, End: e.End, Data: slices.Clone(e.Data)}
	}
	return out
}

// Bounds returns the lowest and highest stored key.
func (s *Store[K, T, V]) Bounds() (lo, hi K, ok bool) {
	if len(s.entries) == 0 {
		return lo, hi, false
	}
	return s.entries[0].Start, s.entries[len(s.entries)-1].End, true
}
