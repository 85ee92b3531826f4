package transform

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/ndarray"
	"github.com/born-ml/tiled/internal/parallel"
	"github.com/born-ml/tiled/internal/view"
)

// elementwiseSignature resolves the layout of a rank-preserving transform.
func elementwiseSignature(name string, spec Spec) (Signature, error) {
	in := spec.InputAxes
	if len(in) == 0 {
		in = axes.Default2D
	}
	out := spec.OutputAxes
	if len(out) == 0 {
		out = in
	}
	if len(out) != len(in) {
		return Signature{}, errors.Errorf("%s keeps the rank, got %s -> %s", name, axes.String(in), axes.String(out))
	}
	return Signature{
		Name:       name,
		InputAxes:  append([]axes.Axis(nil), in...),
		OutputAxes: append([]axes.Axis(nil), out...),
	}, nil
}

func newIdentity(spec Spec) (Transform, error) {
	sig, err := elementwiseSignature("identity", spec)
	if err != nil {
		return nil, err
	}
	return Func{
		Sig:  sig,
		Safe: true,
		Fn: func(_ context.Context, in *ndarray.Array, layout Layout) (*ndarray.Array, error) {
			if err := checkLayout(sig.Name, in, layout); err != nil {
				return nil, err
			}
			return arrange(in.Clone(), layout.In, layout.Out)
		},
	}, nil
}

// newScale computes a*x + b.
func newScale(spec Spec) (Transform, error) {
	sig, err := elementwiseSignature("scale", spec)
	if err != nil {
		return nil, err
	}
	a, err := spec.Params.Float("a", 1)
	if err != nil {
		return nil, err
	}
	b, err := spec.Params.Float("b", 0)
	if err != nil {
		return nil, err
	}
	return Func{
		Sig:  sig,
		Safe: true,
		Fn: func(_ context.Context, in *ndarray.Array, layout Layout) (*ndarray.Array, error) {
			if err := checkLayout(sig.Name, in, layout); err != nil {
				return nil, err
			}
			buf := toFloat64(in.Data())
			floats.Scale(a, buf)
			floats.AddConst(b, buf)
			out := ndarray.Zeros(in.Shape())
			fromFloat64(out.Data(), buf)
			return arrange(out, layout.In, layout.Out)
		},
	}, nil
}

// newMeanFilter computes a box mean of the given radius over every spatial
// axis, reflecting at the tensor border.
func newMeanFilter(spec Spec) (Transform, error) {
	sig, err := elementwiseSignature("mean_filter", spec)
	if err != nil {
		return nil, err
	}
	radius, err := spec.Params.Int("radius", 1)
	if err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, errors.Errorf("mean_filter: negative radius %d", radius)
	}
	return Func{
		Sig:  sig,
		Safe: true,
		Fn: func(ctx context.Context, in *ndarray.Array, layout Layout) (*ndarray.Array, error) {
			if err := checkLayout(sig.Name, in, layout); err != nil {
				return nil, err
			}
			cur := in.Clone()
			for d, a := range layout.In {
				if !a.IsSpatial() || in.Dim(d) == 1 || radius == 0 {
					continue
				}
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				cur = boxMean(cur, d, radius)
			}
			return arrange(cur, layout.In, layout.Out)
		},
	}, nil
}

func boxMean(a *ndarray.Array, d, r int) *ndarray.Array {
	shape := a.Shape()
	n := shape[d]
	inner := 1
	for _, s := range shape[d+1:] {
		inner *= s
	}
	outer := a.NumElements() / (n * inner)
	out := ndarray.Zeros(shape)
	src, dst := a.Data(), out.Data()
	width := 2*r + 1

	parallel.For(outer*inner, func(line int) {
		base := (line/inner)*n*inner + line%inner
		win := make([]float64, width)
		for p := 0; p < n; p++ {
			for k := range win {
				win[k] = float64(src[base+view.MirrorIndex(p-r+k, n)*inner])
			}
			dst[base+p*inner] = float32(floats.Sum(win) / float64(width))
		}
	}, parallel.DefaultConfig())
	return out
}

// arrange permutes t from axis order from to axis order to.
func arrange(t *ndarray.Array, from, to []axes.Axis) (*ndarray.Array, error) {
	if len(from) != len(to) {
		return nil, errors.Wrapf(ndarray.ErrShapeMismatch, "arrange %s as %s", axes.String(from), axes.String(to))
	}
	perm := make([]int, len(to))
	identity := true
	for j, a := range to {
		perm[j] = axes.Index(from, a)
		if perm[j] < 0 {
			return nil, errors.Wrapf(ndarray.ErrShapeMismatch, "arrange %s as %s", axes.String(from), axes.String(to))
		}
		identity = identity && perm[j] == j
	}
	if identity {
		return t, nil
	}
	return t.Permute(perm)
}

func toFloat64(src []float32) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}

func fromFloat64(dst []float32, src []float64) {
	for i, v := range src {
		dst[i] = float32(v)
	}
}
