package rangestore

import (
	"cmp"
	"fmt"
	"slices"

	"barcache/internal/cacheerr"
)

const DocumentVersion = 1

// Document is the serializable form of a Store.
type Document[K cmp.Ordered, T any, V any] struct {
	Version   int              `json:"version"`
	Ranges    []Entry[K, T]    `json:"ranges"`
	Intervals []Interval[K, V] `json:"intervals"`
}

// Document snapshots the store. The returned slices do not alias the store.
func (s *Store[K, T, V]) Document() Document[K, T, V] {
	return Document[K, T, V]{
		Version:   DocumentVersion,
		Ranges:    s.Entries(),
		Intervals: s.Intervals(),
	}
}

// FromDocument rebuilds a store and checks every invariant a saved store
// holds. A document that breaks one is reported as a parse error rather than
// repaired.
func FromDocument[K cmp.Ordered, T any, V any](doc Document[K, T, V], keyOf func(T) K) (*Store[K, T, V], error) {
	s := New[K, T, V](keyOf)
	if doc.Version > DocumentVersion {
		return nil, restoreErr("unsupported document version %d", doc.Version)
	}

	entries := slices.Clone(doc.Ranges)
	slices.SortFunc(entries, func(a, b Entry[K, T]) int { return cmp.Compare(a.Start, b.Start) })
	for i, e := range entries {
		if len(e.Data) == 0 {
			return nil, restoreErr("range %d [%v,%v] has no data", i, e.Start, e.End)
		}
		if e.Start > e.End {
			return nil, restoreErr("range %d start %v is after end %v", i, e.Start, e.End)
		}
		for j := 1; j < len(e.Data); j++ {
			if keyOf(e.Data[j-1]) >= keyOf(e.Data[j]) {
				return nil, restoreErr("range %d data not strictly ascending at %d", i, j)
			}
		}
		if lo, hi := keyOf(e.Data[0]), keyOf(e.Data[len(e.Data)-1]); lo != e.Start || hi != e.End {
			return nil, restoreErr("range %d bounds [%v,%v] do not match data [%v,%v]", i, e.Start, e.End, lo, hi)
		}
		if i > 0 && entries[i-1].Overlaps(e.Start, e.End) {
			return nil, restoreErr("ranges [%v,%v] and [%v,%v] overlap", entries[i-1].Start, entries[i-1].End, e.Start, e.End)
		}
		entries[i].Data = slices.Clone(e.Data)
	}

	intervals := slices.Clone(doc.Intervals)
	slices.SortFunc(intervals, func(a, b Interval[K, V]) int { return compareBounds(a.Range, b.Range) })
	for i, iv := range intervals {
		if iv.Range.empty() {
			return nil, restoreErr("interval %d [%v,%v] is empty", i, iv.Range.Start, iv.Range.End)
		}
		if i > 0 && intervals[i-1].Range.intersects(iv.Range) {
			return nil, restoreErr("intervals %d and %d overlap", i-1, i)
		}
	}

	s.entries = entries
	s.intervals = intervals
	return s, nil
}

func restoreErr(format string, args ...any) error {
	return cacheerr.Parse("restore", "", fmt.Errorf(format, args...))
}
