// Package view implements interval arithmetic and boundary-extended views over arrays.
//
// An Interval is a box of inclusive per-dimension bounds. A View pairs an array
// with an Interval that may reach outside the array; coordinates outside the
// array are resolved by the view's Extension (mirror reflection or zeros).
// Views are lazy: no data is copied until Materialize is called.
package view

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
)

// ErrInvalidExtent is returned when an operation would produce a dimension of
// non-positive size or reads outside an array without an extension.
var ErrInvalidExtent = errors.New("invalid extent")

// Interval is an immutable N-dimensional box with inclusive bounds.
type Interval struct {
	min []int
	max []int
}

// NewInterval creates an interval from inclusive bounds.
func NewInterval(min, max []int) (Interval, error) {
	if len(min) != len(max) {
		return Interval{}, errors.Errorf("interval: min has %d dimensions, max has %d", len(min), len(max))
	}
	for d := range min {
		if max[d] < min[d] {
			return Interval{}, errors.Wrapf(ErrInvalidExtent, "dimension %d: max %d < min %d", d, max[d], min[d])
		}
	}
	return Interval{
		min: append([]int(nil), min...),
		max: append([]int(nil), max...),
	}, nil
}

// FromShape returns the interval [0, shape[d]-1] in every dimension.
func FromShape(shape ndarray.Shape) Interval {
	iv := Interval{
		min: make([]int, len(shape)),
		max: make([]int, len(shape)),
	}
	for d, s := range shape {
		iv.max[d] = s - 1
	}
	return iv
}

// Rank returns the number of dimensions.
func (iv Interval) Rank() int {
	return len(iv.min)
}

// Min returns the lower bound in dimension d.
func (iv Interval) Min(d int) int {
	return iv.min[d]
}

// Max returns the inclusive upper bound in dimension d.
func (iv Interval) Max(d int) int {
	return iv.max[d]
}

// Dimension returns the size along dimension d.
func (iv Interval) Dimension(d int) int {
	return iv.max[d] - iv.min[d] + 1
}

// Dimensions returns the size along every dimension.
func (iv Interval) Dimensions() ndarray.Shape {
	dims := make(ndarray.Shape, len(iv.min))
	for d := range dims {
		dims[d] = iv.Dimension(d)
	}
	return dims
}

// Expand grows the interval by border[d] on both sides of dimension d.
// Negative borders shrink it.
func (iv Interval) Expand(border []int) (Interval, error) {
	if len(border) != iv.Rank() {
		return Interval{}, errors.Errorf("expand: border has %d dimensions, interval has %d", len(border), iv.Rank())
	}
	min := make([]int, iv.Rank())
	max := make([]int, iv.Rank())
	for d := range border {
		min[d] = iv.min[d] - border[d]
		max[d] = iv.max[d] + border[d]
	}
	out, err := NewInterval(min, max)
	if err != nil {
		return Interval{}, errors.WithMessagef(err, "expand %v by %v", iv, border)
	}
	return out, nil
}

// WithDim returns a copy with dimension d replaced by [min, max].
func (iv Interval) WithDim(d, min, max int) (Interval, error) {
	lo := append([]int(nil), iv.min...)
	hi := append([]int(nil), iv.max...)
	lo[d], hi[d] = min, max
	return NewInterval(lo, hi)
}

// Translate shifts the interval by offset.
func (iv Interval) Translate(offset []int) Interval {
	out := Interval{
		min: append([]int(nil), iv.min...),
		max: append([]int(nil), iv.max...),
	}
	for d, o := range offset {
		out.min[d] += o
		out.max[d] += o
	}
	return out
}

// ZeroMin translates the interval so its minimum is zero in every dimension.
func (iv Interval) ZeroMin() Interval {
	offset := make([]int, iv.Rank())
	for d := range offset {
		offset[d] = -iv.min[d]
	}
	return iv.Translate(offset)
}

// Contains reports whether other lies entirely inside iv.
func (iv Interval) Contains(other Interval) bool {
	if other.Rank() != iv.Rank() {
		return false
	}
	for d := range iv.min {
		if other.min[d] < iv.min[d] || other.max[d] > iv.max[d] {
			return false
		}
	}
	return true
}

// Equal reports whether both intervals have identical bounds.
func (iv Interval) Equal(other Interval) bool {
	if iv.Rank() != other.Rank() {
		return false
	}
	for d := range iv.min {
		if iv.min[d] != other.min[d] || iv.max[d] != other.max[d] {
			return false
		}
	}
	return true
}

// String formats the interval as [min..max, ...].
func (iv Interval) String() string {
	parts := make([]string, iv.Rank())
	for d := range parts {
		parts[d] = fmt.Sprintf("%d..%d", iv.min[d], iv.max[d])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
