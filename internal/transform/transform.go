// Package transform defines the numeric transforms run over tiles and a
// registry of built-in ones.
//
// A Transform consumes a tensor in a fixed positional axis order and returns
// a tensor in its output order. The tiling engine decides the order from the
// transform's Signature and passes the result to Run as a Layout.
package transform

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/ndarray"
)

// ErrResourceExhausted is returned by a transform that cannot process a tile
// of the given size, typically because accelerator memory ran out.
var ErrResourceExhausted = errors.New("resource exhausted")

// Signature declares the tensor layout of a transform.
// Axes are positional, slowest varying first. When axes are omitted the
// default order for the rank applies.
type Signature struct {
	Name       string
	InputAxes  []axes.Axis
	OutputAxes []axes.Axis
	InputRank  int
	OutputRank int
}

// Declared converts the signature for the axis mapper.
func (s Signature) Declared() axes.Declared {
	return axes.Declared{
		InputAxes:  s.InputAxes,
		OutputAxes: s.OutputAxes,
		InputRank:  s.InputRank,
		OutputRank: s.OutputRank,
	}
}

// Layout is the resolved axis of every tensor dimension on the way in and out.
// It can differ from the signature when an array axis took over a time slot.
type Layout struct {
	In  []axes.Axis
	Out []axes.Axis
}

// Transform maps one tensor to another. Run must not modify in.
type Transform interface {
	Signature() Signature
	Run(ctx context.Context, in *ndarray.Array, layout Layout) (*ndarray.Array, error)
}

// ConcurrencySafe is implemented by transforms that may run several tiles at once.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}

// IsConcurrencySafe reports whether t declares itself safe for concurrent Run calls.
func IsConcurrencySafe(t Transform) bool {
	cs, ok := t.(ConcurrencySafe)
	return ok && cs.ConcurrencySafe()
}

// RunFunc is the signature of Transform.Run.
type RunFunc func(ctx context.Context, in *ndarray.Array, layout Layout) (*ndarray.Array, error)

// Func adapts a function to the Transform interface.
type Func struct {
	Sig  Signature
	Fn   RunFunc
	Safe bool
}

// Signature returns f.Sig.
func (f Func) Signature() Signature { return f.Sig }

// Run calls f.Fn.
func (f Func) Run(ctx context.Context, in *ndarray.Array, layout Layout) (*ndarray.Array, error) {
	return f.Fn(ctx, in, layout)
}

// ConcurrencySafe returns f.Safe.
func (f Func) ConcurrencySafe() bool { return f.Safe }

func checkLayout(name string, in *ndarray.Array, layout Layout) error {
	if in.Rank() != len(layout.In) {
		return errors.Wrapf(ndarray.ErrShapeMismatch, "%s: %dD tensor for layout %s",
			name, in.Rank(), axes.String(layout.In))
	}
	return nil
}
