package view

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
)

// Extension decides how coordinates outside the source array are resolved.
type Extension int

// Supported extensions.
const (
	// Bounded views may not leave the source array.
	Bounded Extension = iota
	// MirrorSingle reflects at the border without repeating the edge sample
	// (… 2 1 | 0 1 2 3 | 2 1 0 …). The reflection repeats for any distance.
	MirrorSingle
	// ZeroFill reads zeros outside the source array.
	ZeroFill
)

// String returns the extension name.
func (e Extension) String() string {
	switch e {
	case Bounded:
		return "bounded"
	case MirrorSingle:
		return "mirror"
	case ZeroFill:
		return "zero"
	default:
		return "unknown"
	}
}

// View is a lazy window onto an array.
type View struct {
	src *ndarray.Array
	ext Extension
	iv  Interval
}

// Of returns a bounded view covering the whole array.
func Of(a *ndarray.Array) View {
	return View{src: a, ext: Bounded, iv: FromShape(a.Shape())}
}

// Mirror returns a mirror-extended view covering the whole array.
func Mirror(a *ndarray.Array) View {
	return View{src: a, ext: MirrorSingle, iv: FromShape(a.Shape())}
}

// Zero returns a zero-extended view covering the whole array.
func Zero(a *ndarray.Array) View {
	return View{src: a, ext: ZeroFill, iv: FromShape(a.Shape())}
}

// Interval returns the window in source coordinates.
func (v View) Interval() Interval {
	return v.iv
}

// Extension returns the boundary rule of the view.
func (v View) Extension() Extension {
	return v.ext
}

// Within returns a view of the same source restricted (or extended) to iv.
// iv is expressed in source coordinates.
func (v View) Within(iv Interval) (View, error) {
	if iv.Rank() != v.src.Rank() {
		return View{}, errors.Errorf("view: interval rank %d does not match array rank %d", iv.Rank(), v.src.Rank())
	}
	if v.ext == Bounded && !FromShape(v.src.Shape()).Contains(iv) {
		return View{}, errors.Wrapf(ErrInvalidExtent, "interval %v leaves array %v", iv, v.src.Shape())
	}
	return View{src: v.src, ext: v.ext, iv: iv}, nil
}

// Materialize copies the view into a new zero-min array.
func (v View) Materialize() *ndarray.Array {
	rank := v.iv.Rank()
	shape := v.iv.Dimensions()
	out := ndarray.Zeros(shape)
	dst := out.Data()
	src := v.src.Data()
	if rank == 0 {
		dst[0] = src[0]
		return out
	}

	// offsets[d][k] is the source offset contribution of output coordinate k
	// along d, or -1 when the coordinate falls in a zero-filled region.
	strides := v.src.Strides()
	offsets := make([][]int, rank)
	for d := 0; d < rank; d++ {
		n := v.src.Dim(d)
		offsets[d] = make([]int, shape[d])
		for k := range offsets[d] {
			idx := v.resolve(v.iv.Min(d)+k, n)
			if idx < 0 {
				offsets[d][k] = -1
			} else {
				offsets[d][k] = idx * strides[d]
			}
		}
	}

	last := rank - 1
	rowLen := shape[last]
	pos := make([]int, rank)
	for row := 0; row*rowLen < len(dst); row++ {
		base, zero := 0, false
		for d := 0; d < last; d++ {
			o := offsets[d][pos[d]]
			if o < 0 {
				zero = true
				break
			}
			base += o
		}
		if !zero {
			line := dst[row*rowLen : (row+1)*rowLen]
			for k, o := range offsets[last] {
				if o >= 0 {
					line[k] = src[base+o]
				}
			}
		}
		for d := last - 1; d >= 0; d-- {
			pos[d]++
			if pos[d] < shape[d] {
				break
			}
			pos[d] = 0
		}
	}
	return out
}

// resolve maps coordinate i along a dimension of size n to a source index,
// or -1 for a zero-filled coordinate.
func (v View) resolve(i, n int) int {
	if i >= 0 && i < n {
		return i
	}
	switch v.ext {
	case MirrorSingle:
		return MirrorIndex(i, n)
	case ZeroFill:
		return -1
	default:
		// Within rejects bounded intervals that leave the array.
		panic("view: bounded view read outside its source")
	}
}

// MirrorIndex reflects i into [0, n) without repeating the edge sample.
func MirrorIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2*n - 2
	k := i % period
	if k < 0 {
		k += period
	}
	if k >= n {
		k = period - k
	}
	return k
}
