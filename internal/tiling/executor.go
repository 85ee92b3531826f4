package tiling

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/ndarray"
	"github.com/born-ml/tiled/internal/transform"
	"github.com/born-ml/tiled/internal/view"
)

// Executor runs a transform over single tiles of a plan.
// It holds no per-tile state and may be shared by concurrent workers.
type Executor struct {
	mapping   axes.Mapping
	transform transform.Transform
	plan      Plan
	layout    transform.Layout
	outSplit  int
}

// NewExecutor prepares tile execution for a mapping and plan.
func NewExecutor(m axes.Mapping, t transform.Transform, plan Plan) (*Executor, error) {
	outSplit, ok := m.OutputDim(plan.SplitDim)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidTiling, "split dimension %d is the axis %s removed by %s",
			plan.SplitDim, m.Dropped(), t.Signature().Name)
	}
	return &Executor{
		mapping:   m,
		transform: t,
		plan:      plan,
		layout:    transform.Layout{In: m.Input.NodeAxes(), Out: m.Output.NodeAxes()},
		outSplit:  outSplit,
	}, nil
}

// Layout returns the tensor layout passed to the transform.
func (e *Executor) Layout() transform.Layout {
	return e.layout
}

// OutputSplitDim returns the split dimension in result coordinates.
func (e *Executor) OutputSplitDim() int {
	return e.outSplit
}

// Run transforms one tile and returns it with its overlap removed, in array
// axis order, together with the axes of the result.
func (e *Executor) Run(ctx context.Context, expanded *ndarray.Array, t Tile) (*ndarray.Array, []axes.Axis, error) {
	block, err := t.Extract(expanded)
	if err != nil {
		return nil, nil, err
	}
	in, err := e.mapping.Input.ToLayout(block)
	if err != nil {
		return nil, nil, err
	}
	out, err := e.transform.Run(ctx, in, e.layout)
	if err != nil {
		return nil, nil, err
	}
	result, labels, err := e.mapping.Output.FromLayout(out)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "%s output %v", e.transform.Signature().Name, out.Shape())
	}

	if e.outSplit >= result.Rank() {
		return nil, nil, errors.Wrapf(view.ErrInvalidExtent, "%s returned %dD result for split dimension %d",
			e.transform.Signature().Name, result.Rank(), e.outSplit)
	}
	if got, want := result.Dim(e.outSplit), t.Interval.Dimension(e.plan.SplitDim); got != want {
		return nil, nil, errors.Wrapf(view.ErrInvalidExtent, "%s changed the split extent of tile %d from %d to %d",
			e.transform.Signature().Name, t.Index, want, got)
	}

	border := make([]int, result.Rank())
	border[e.outSplit] = -e.plan.Overlap[e.plan.SplitDim]
	cropped, err := view.ExpandZero(result, border)
	if err != nil {
		return nil, nil, err
	}
	return cropped, labels, nil
}
