package rangestore

// Status classifies a range query by how much of the window is stored.
type Status int

const (
	NotFound Status = iota
	// Found means one stored entry fully contains the window.
	Found
	// Partial means exactly one entry overlaps without containing.
	Partial
	// SpansMultiple means two or more entries overlap the window.
	SpansMultiple
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Partial:
		return "partial"
	case SpansMultiple:
		return "spans_multiple"
	default:
		return "not_found"
	}
}

// Result is the outcome of Store.Query. Points are sorted by key.
type Result[T any] struct {
	Status Status
	Points []T
}

func (r Result[T]) Len() int { return len(r.Points) }

// Complete reports whether the whole window came from a single entry.
func (r Result[T]) Complete() bool { return r.Status == Found }
