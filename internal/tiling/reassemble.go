package tiling

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
	"github.com/born-ml/tiled/internal/view"
)

// Grid collects the cropped results of a plan's tiles by grid position.
// It has TileCount cells along the split dimension and one elsewhere.
type Grid struct {
	plan  Plan
	dim   int // Split dimension of the results.
	cells []*ndarray.Array
}

// NewGrid creates an empty grid for plan whose results are split along dim.
func NewGrid(plan Plan, dim int) *Grid {
	return &Grid{plan: plan, dim: dim, cells: make([]*ndarray.Array, plan.TileCount)}
}

// Place stores the result of tile t. Each cell may be filled once, and all
// cells must agree on every dimension but the split one.
func (g *Grid) Place(t Tile, a *ndarray.Array) error {
	pos := t.Grid[g.plan.SplitDim]
	if pos < 0 || pos >= len(g.cells) {
		return errors.Errorf("tile %d at grid position %d outside grid of %d", t.Index, pos, len(g.cells))
	}
	if a == nil {
		return errors.Errorf("tile %d has no result", t.Index)
	}
	if g.cells[pos] != nil {
		return errors.Errorf("grid position %d filled twice", pos)
	}
	for _, c := range g.cells {
		if c == nil {
			continue
		}
		if c.Rank() != a.Rank() || g.dim >= a.Rank() || !c.Shape().With(g.dim, 0).Equal(a.Shape().With(g.dim, 0)) {
			return errors.Wrapf(ndarray.ErrShapeMismatch, "tile %d result %v does not fit %v along dimension %d",
				t.Index, a.Shape(), c.Shape(), g.dim)
		}
		break
	}
	g.cells[pos] = a
	return nil
}

// Assemble concatenates the cells in ascending order along the split
// dimension and crops the result back to the plan's original extent.
func (g *Grid) Assemble() (*ndarray.Array, error) {
	for i, c := range g.cells {
		if c == nil {
			return nil, errors.Errorf("grid position %d is empty", i)
		}
	}
	joined, err := ndarray.Concat(g.cells, g.dim)
	if err != nil {
		return nil, errors.WithMessage(err, "reassemble tiles")
	}
	return view.ExpandDimToSize(joined, g.dim, g.plan.OriginalSize[g.plan.SplitDim])
}

// Reassemble places results[i] at tile i and assembles the grid.
func Reassemble(plan Plan, dim int, tiles []Tile, results []*ndarray.Array) (*ndarray.Array, error) {
	if len(results) != len(tiles) {
		return nil, errors.Errorf("reassemble: %d results for %d tiles", len(results), len(tiles))
	}
	g := NewGrid(plan, dim)
	for i, t := range tiles {
		if err := g.Place(t, results[i]); err != nil {
			return nil, err
		}
	}
	return g.Assemble()
}
