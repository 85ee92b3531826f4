package transform

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/ndarray"
)

type reducer struct {
	name string
	fn   func(line []float64) float64
}

var (
	projectMax  = reducer{name: "project_max", fn: floats.Max}
	projectMean = reducer{name: "project_mean", fn: func(line []float64) float64 {
		return floats.Sum(line) / float64(len(line))
	}}
)

// newProjection builds a rank-reducing transform that collapses the one
// axis of its input layout that its output layout lacks.
func newProjection(r reducer) Factory {
	return func(spec Spec) (Transform, error) {
		in := spec.InputAxes
		if len(in) == 0 {
			in = axes.Default3D
		}
		out := spec.OutputAxes
		if len(out) == 0 {
			out = axes.Default2D
		}
		if len(out) != len(in)-1 {
			return nil, errors.Errorf("%s drops one axis, got %s -> %s", r.name, axes.String(in), axes.String(out))
		}
		sig := Signature{
			Name:       r.name,
			InputAxes:  append([]axes.Axis(nil), in...),
			OutputAxes: append([]axes.Axis(nil), out...),
		}
		return Func{
			Sig:  sig,
			Safe: true,
			Fn: func(_ context.Context, t *ndarray.Array, layout Layout) (*ndarray.Array, error) {
				if err := checkLayout(sig.Name, t, layout); err != nil {
					return nil, err
				}
				k := droppedAxis(layout)
				if k < 0 {
					return nil, errors.Errorf("%s: layout %s -> %s drops no axis",
						sig.Name, axes.String(layout.In), axes.String(layout.Out))
				}
				reduced := reduce(t, k, r.fn)
				rest := append(append([]axes.Axis(nil), layout.In[:k]...), layout.In[k+1:]...)
				return arrange(reduced, rest, layout.Out)
			},
		}, nil
	}
}

// droppedAxis returns the position in layout.In of the axis layout.Out lacks.
func droppedAxis(layout Layout) int {
	if len(layout.Out) != len(layout.In)-1 {
		return -1
	}
	for i, a := range layout.In {
		if !axes.Contains(layout.Out, a) {
			return i
		}
	}
	return -1
}

// reduce collapses dimension k of t with fn.
func reduce(t *ndarray.Array, k int, fn func([]float64) float64) *ndarray.Array {
	shape := t.Shape()
	n := shape[k]
	inner := 1
	for _, s := range shape[k+1:] {
		inner *= s
	}
	outer := t.NumElements() / (n * inner)

	outShape := append(append(ndarray.Shape(nil), shape[:k]...), shape[k+1:]...)
	out := ndarray.Zeros(outShape)
	src, dst := t.Data(), out.Data()
	line := make([]float64, n)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			for j := range line {
				line[j] = float64(src[(o*n+j)*inner+i])
			}
			dst[o*inner+i] = float32(fn(line))
		}
	}
	return out
}
