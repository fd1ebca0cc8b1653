package session

import "fmt"

// Policy selects the next card after a review.
type Policy int

const (
	// RoundRobin walks the deck in order regardless of due dates.
	RoundRobin Policy = iota
	// DueFirst shows the most overdue card next and falls back to RoundRobin
	// when nothing is due.
	DueFirst
)

func (p Policy) String() string {
	switch p {
	case RoundRobin:
		return "round-robin"
	case DueFirst:
		return "due-first"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses the names produced by String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "round-robin", "":
		return RoundRobin, nil
	case "due-first":
		return DueFirst, nil
	}
	return 0, fmt.Errorf("unknown review policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
