// Package hand defines the per-hand skeleton model shared by the detector,
// the gesture classifier and the grip tracker.
package hand

import "fmt"

// Side identifies the left or right hand. Every piece of per-hand state in
// the system is indexed by Side.
type Side int

const (
	Left Side = iota
	Right
	// NumSides is the number of hand sides; use it to size per-side arrays.
	NumSides
)

// Sides lists both hand sides in index order.
var Sides = [NumSides]Side{Left, Right}

// String returns "left" or "right".
func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Valid reports whether s is Left or Right.
func (s Side) Valid() bool {
	return s == Left || s == Right
}

// ParseSide parses "left"/"right" (MediaPipe's "Left"/"Right" are accepted too).
func ParseSide(v string) (Side, error) {
	switch v {
	case "left", "Left", "LEFT":
		return Left, nil
	case "right", "Right", "RIGHT":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown hand side %q", v)
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid hand side %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
