package ndarray

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrShapeMismatch reports arrays whose shapes are incompatible for an operation.
var ErrShapeMismatch = errors.New("shape mismatch")

// Array is a dense row-major float32 array with zero-based indexing.
//
// Arrays are treated as values by the tiling engine: operations return new
// arrays and never modify their receivers. Reshape is the only operation that
// shares storage with its source.
type Array struct {
	data   []float32
	shape  Shape
	stride []int
}

// New allocates a zero-filled array of the given shape.
func New(shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}
	return &Array{
		data:   make([]float32, shape.NumElements()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
	}, nil
}

// Zeros allocates a zero-filled array and panics on an invalid shape.
// Intended for shapes derived from already validated arrays.
func Zeros(shape Shape) *Array {
	a, err := New(shape)
	if err != nil {
		panic(fmt.Sprintf("ndarray.Zeros: %v", err))
	}
	return a
}

// FromSlice creates an array from a copy of data.
func FromSlice(data []float32, shape Shape) (*Array, error) {
	a, err := New(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != len(a.data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "data length %d does not match shape %v (%d elements)",
			len(data), shape, len(a.data))
	}
	copy(a.data, data)
	return a, nil
}

// Shape returns the array's shape. The caller must not modify it.
func (a *Array) Shape() Shape {
	return a.shape
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.shape)
}

// Dim returns the extent along dimension d.
func (a *Array) Dim(d int) int {
	return a.shape[d]
}

// Strides returns the row-major strides.
func (a *Array) Strides() []int {
	return a.stride
}

// NumElements returns the total number of elements.
func (a *Array) NumElements() int {
	return len(a.data)
}

// Data returns the underlying storage in row-major order.
// WARNING: Direct access to underlying memory.
func (a *Array) Data() []float32 {
	return a.data
}

// Offset returns the flat index of the coordinate pos.
func (a *Array) Offset(pos ...int) int {
	off := 0
	for d, p := range pos {
		off += p * a.stride[d]
	}
	return off
}

// At returns the element at pos.
func (a *Array) At(pos ...int) float32 {
	return a.data[a.Offset(pos...)]
}

// Set stores v at pos.
func (a *Array) Set(v float32, pos ...int) {
	a.data[a.Offset(pos...)] = v
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return &Array{
		data:   append([]float32(nil), a.data...),
		shape:  a.shape.Clone(),
		stride: append([]int(nil), a.stride...),
	}
}

// Reshape returns an array with a new shape sharing the same storage.
// The number of elements must not change.
func (a *Array) Reshape(shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "reshape")
	}
	if shape.NumElements() != len(a.data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "reshape %v to %v", a.shape, shape)
	}
	return &Array{
		data:   a.data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
	}, nil
}

// String returns a short description, not the contents.
func (a *Array) String() string {
	return fmt.Sprintf("Array%v", a.shape)
}
