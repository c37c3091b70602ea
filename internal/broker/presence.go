package broker

// Presence tracks how much the broker knows about a ticker or a timeframe.
type Presence int

const (
	// Absent: nothing on disk and nothing in memory.
	Absent Presence = iota
	// KnownUnrealized: present on disk but not read yet.
	KnownUnrealized
	// Realized: loaded into memory. For a ticker this only means its
	// timeframe files have been listed.
	Realized
)

func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case KnownUnrealized:
		return "known"
	case Realized:
		return "realized"
	default:
		return "unknown"
	}
}
