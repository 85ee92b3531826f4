package ndarray

import (
	"github.com/pkg/errors"
)

// Permute reorders dimensions: dimension i of the result is dimension perm[i] of a.
//
// Example:
//
//	a := Zeros(Shape{2, 3, 4})
//	b, _ := a.Permute([]int{2, 0, 1}) // Shape: [4 2 3]
func (a *Array) Permute(perm []int) (*Array, error) {
	rank := a.Rank()
	if len(perm) != rank {
		return nil, errors.Errorf("permute: got %d axes for %dD array", len(perm), rank)
	}
	seen := make([]bool, rank)
	outShape := make(Shape, rank)
	srcStride := make([]int, rank)
	for i, p := range perm {
		if p < 0 || p >= rank {
			return nil, errors.Errorf("permute: axis %d out of range for %dD array", p, rank)
		}
		if seen[p] {
			return nil, errors.Errorf("permute: axis %d repeated in %v", p, perm)
		}
		seen[p] = true
		outShape[i] = a.shape[p]
		srcStride[i] = a.stride[p]
	}

	out := Zeros(outShape)
	if isIdentity(perm) {
		copy(out.data, a.data)
		return out, nil
	}

	// Walk the output in order and advance the source offset like an odometer.
	pos := make([]int, rank)
	src := 0
	for o := range out.data {
		out.data[o] = a.data[src]
		for d := rank - 1; d >= 0; d-- {
			pos[d]++
			src += srcStride[d]
			if pos[d] < outShape[d] {
				break
			}
			src -= srcStride[d] * outShape[d]
			pos[d] = 0
		}
	}
	return out, nil
}

// Unsqueeze inserts a dimension of size 1 at position dim (0 <= dim <= rank).
// The result shares storage with a.
func (a *Array) Unsqueeze(dim int) (*Array, error) {
	rank := a.Rank()
	if dim < 0 || dim > rank {
		return nil, errors.Errorf("unsqueeze: dimension %d out of range for %dD array (valid: [0, %d])", dim, rank, rank)
	}
	shape := make(Shape, 0, rank+1)
	shape = append(shape, a.shape[:dim]...)
	shape = append(shape, 1)
	shape = append(shape, a.shape[dim:]...)
	return a.Reshape(shape)
}

// Squeeze removes dimension dim, which must have size 1.
// The result shares storage with a.
func (a *Array) Squeeze(dim int) (*Array, error) {
	rank := a.Rank()
	if dim < 0 || dim >= rank {
		return nil, errors.Errorf("squeeze: dimension %d out of range for %dD array", dim, rank)
	}
	if a.shape[dim] != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "squeeze: dimension %d has size %d, must be 1", dim, a.shape[dim])
	}
	shape := make(Shape, 0, rank-1)
	shape = append(shape, a.shape[:dim]...)
	shape = append(shape, a.shape[dim+1:]...)
	return a.Reshape(shape)
}

// Concat joins arrays along dimension dim.
//
// All arrays must have the same rank and the same extent in every other dimension.
//
// Example:
//
//	a := Zeros(Shape{2, 3})
//	b := Zeros(Shape{2, 5})
//	c, _ := Concat([]*Array{a, b}, 1) // Shape: [2 8]
func Concat(arrays []*Array, dim int) (*Array, error) {
	if len(arrays) == 0 {
		return nil, errors.New("concat: at least one array required")
	}
	first := arrays[0].shape
	rank := len(first)
	if dim < 0 || dim >= rank {
		return nil, errors.Errorf("concat: dimension %d out of range for %dD array", dim, rank)
	}

	total := 0
	for i, arr := range arrays {
		if arr.Rank() != rank {
			return nil, errors.Wrapf(ErrShapeMismatch, "concat: array %d has %d dimensions, expected %d", i, arr.Rank(), rank)
		}
		for d := 0; d < rank; d++ {
			if d == dim {
				total += arr.shape[d]
			} else if arr.shape[d] != first[d] {
				return nil, errors.Wrapf(ErrShapeMismatch, "concat: array %d dimension %d is %d, expected %d",
					i, d, arr.shape[d], first[d])
			}
		}
	}

	out := Zeros(first.With(dim, total))
	outer, inner := 1, 1
	for d := 0; d < dim; d++ {
		outer *= first[d]
	}
	for d := dim + 1; d < rank; d++ {
		inner *= first[d]
	}

	dst := 0
	for o := 0; o < outer; o++ {
		for _, arr := range arrays {
			block := arr.shape[dim] * inner
			src := o * block
			copy(out.data[dst:dst+block], arr.data[src:src+block])
			dst += block
		}
	}
	return out, nil
}

func isIdentity(perm []int) bool {
	for i, p := range perm {
		if i != p {
			return false
		}
	}
	return true
}
