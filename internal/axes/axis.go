// Package axes maps the semantic axes of an array (X, Y, Z, time, channel)
// onto the positional tensor axes a transform consumes and produces.
package axes

import (
	"strings"

	"github.com/pkg/errors"
)

// Axis identifies a semantic array dimension.
type Axis int

// Semantic axes.
const (
	Unknown Axis = iota
	X
	Y
	Z
	Time
	Channel
)

// String returns the single-letter axis code.
func (a Axis) String() string {
	switch a {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	case Time:
		return "T"
	case Channel:
		return "C"
	default:
		return "?"
	}
}

// IsSpatial reports whether a is X, Y or Z.
func (a Axis) IsSpatial() bool {
	return a == X || a == Y || a == Z
}

// FromRune parses one axis letter. S and B (sample, batch) are read as Time,
// which is the slot batch dimensions occupy in a transform layout.
func FromRune(r rune) (Axis, error) {
	switch r {
	case 'X', 'x':
		return X, nil
	case 'Y', 'y':
		return Y, nil
	case 'Z', 'z':
		return Z, nil
	case 'T', 't', 'S', 's', 'B', 'b':
		return Time, nil
	case 'C', 'c':
		return Channel, nil
	default:
		return Unknown, errors.Errorf("unknown axis %q", r)
	}
}

// Parse reads an axis string such as "XYZ" or "SYXC".
func Parse(s string) ([]Axis, error) {
	out := make([]Axis, 0, len(s))
	for _, r := range s {
		a, err := FromRune(r)
		if err != nil {
			return nil, errors.WithMessagef(err, "parse axes %q", s)
		}
		out = append(out, a)
	}
	if err := Validate(out); err != nil {
		return nil, errors.WithMessagef(err, "parse axes %q", s)
	}
	return out, nil
}

// MustParse is Parse for constant axis strings.
func MustParse(s string) []Axis {
	out, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return out
}

// Validate checks that no axis is unknown or repeated.
func Validate(list []Axis) error {
	seen := make(map[Axis]bool, len(list))
	for i, a := range list {
		if a == Unknown {
			return errors.Errorf("axis %d is unknown", i)
		}
		if seen[a] {
			return errors.Errorf("axis %s repeated", a)
		}
		seen[a] = true
	}
	return nil
}

// String joins the axis letters of list.
func String(list []Axis) string {
	var b strings.Builder
	for _, a := range list {
		b.WriteString(a.String())
	}
	return b.String()
}

// Index returns the position of a in list, or -1.
func Index(list []Axis, a Axis) int {
	for i, x := range list {
		if x == a {
			return i
		}
	}
	return -1
}

// Contains reports whether a occurs in list.
func Contains(list []Axis, a Axis) bool {
	return Index(list, a) >= 0
}

// Default node axis orders of 2-D and 3-D transforms, slowest to fastest.
var (
	Default2D = []Axis{Time, Y, X, Channel}
	Default3D = []Axis{Time, Z, Y, X, Channel}
)

// Default returns the positional axis order assumed for a transform that only
// declares its rank, ordered slowest to fastest.
func Default(rank int) ([]Axis, error) {
	switch rank {
	case 2:
		return []Axis{Y, X}, nil
	case 3:
		return []Axis{Y, X, Channel}, nil
	case 4:
		return clone(Default2D), nil
	case 5:
		return clone(Default3D), nil
	default:
		return nil, errors.Errorf("no default axis order for rank %d", rank)
	}
}

func clone(list []Axis) []Axis {
	return append([]Axis(nil), list...)
}
