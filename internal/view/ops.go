package view

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
)

// ExpandDimToSize resizes a along dimension d to exactly size elements,
// keeping the minimum fixed. Growing fills the new region by mirror reflection;
// shrinking crops from the high end. Other dimensions are unchanged.
func ExpandDimToSize(a *ndarray.Array, d, size int) (*ndarray.Array, error) {
	if d < 0 || d >= a.Rank() {
		return nil, errors.Errorf("expand: dimension %d out of range for %dD array", d, a.Rank())
	}
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidExtent, "expand dimension %d of %v to size %d", d, a.Shape(), size)
	}
	if size == a.Dim(d) {
		return a, nil
	}
	full := FromShape(a.Shape())
	iv, err := full.WithDim(d, 0, size-1)
	if err != nil {
		return nil, err
	}
	v, err := Mirror(a).Within(iv)
	if err != nil {
		return nil, err
	}
	return v.Materialize(), nil
}

// ExpandZero grows a by border[d] on both sides of every dimension, reading
// zeros outside the array, and re-anchors the result at zero. A negative
// border crops that many elements from each edge instead. A border with no
// positive entry reads through a bounded view.
func ExpandZero(a *ndarray.Array, border []int) (*ndarray.Array, error) {
	iv, err := FromShape(a.Shape()).Expand(border)
	if err != nil {
		return nil, err
	}
	src := Of(a)
	for _, b := range border {
		if b > 0 {
			src = Zero(a)
			break
		}
	}
	v, err := src.Within(iv)
	if err != nil {
		return nil, err
	}
	return v.Materialize(), nil
}
