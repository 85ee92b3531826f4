package tiling

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
	"github.com/born-ml/tiled/internal/view"
)

// Params controls how an array is cut into tiles.
type Params struct {
	NTiles        int // Number of tiles along the split dimension, >= 1.
	BlockMultiple int // Tile widths are rounded up to a multiple of this, >= 1.
	Overlap       int // Context added on both sides of every tile, >= 0.
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.NTiles < 1:
		return errors.Wrapf(ErrInvalidTiling, "number of tiles %d < 1", p.NTiles)
	case p.BlockMultiple < 1:
		return errors.Wrapf(ErrInvalidTiling, "block multiple %d < 1", p.BlockMultiple)
	case p.Overlap < 0:
		return errors.Wrapf(ErrInvalidTiling, "overlap %d < 0", p.Overlap)
	}
	return nil
}

// Plan describes the partition of one array.
type Plan struct {
	SplitDim       int
	BlockSize      []int // Input extent except BlockSize[SplitDim], the tile width.
	Overlap        []int // Nonzero only at SplitDim.
	TileCount      int
	BlockMultiple  int
	OriginalSize   ndarray.Shape
	ExpandedExtent ndarray.Shape // OriginalSize with SplitDim grown to BlockWidth*TileCount.
}

// BlockWidth returns the tile width along the split dimension.
func (p Plan) BlockWidth() int {
	return p.BlockSize[p.SplitDim]
}

// String summarizes the plan for logs.
func (p Plan) String() string {
	return fmt.Sprintf("split dim %d of %v into %d tiles of %d (+%d overlap), expanded to %v",
		p.SplitDim, p.OriginalSize, p.TileCount, p.BlockWidth(), p.Overlap[p.SplitDim], p.ExpandedExtent)
}

// Tile is one block of a plan.
type Tile struct {
	Index    int
	Grid     []int         // Position in the tile grid; nonzero only at the split dimension.
	Interval view.Interval // Bounds in expanded-array coordinates, overlap included.
}

// SplitDimension returns the dimension with the largest extent, preferring
// the lowest index on ties. Dimensions listed in exclude are never chosen.
func SplitDimension(shape ndarray.Shape, exclude []int) (int, error) {
	skip := make(map[int]bool, len(exclude))
	for _, d := range exclude {
		skip[d] = true
	}
	best := -1
	for d, s := range shape {
		if skip[d] {
			continue
		}
		if best < 0 || s > shape[best] {
			best = d
		}
	}
	if best < 0 {
		return -1, errors.Wrapf(ErrInvalidTiling, "no dimension of %v may be split", shape)
	}
	return best, nil
}

// NewPlan computes the partition of an array of the given shape.
func NewPlan(shape ndarray.Shape, p Params, exclude []int) (Plan, error) {
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	if err := shape.Validate(); err != nil {
		return Plan{}, errors.Wrap(err, "partition")
	}
	split, err := SplitDimension(shape, exclude)
	if err != nil {
		return Plan{}, err
	}

	size := shape[split]
	width := ceilDiv(ceilDiv(size, p.NTiles), p.BlockMultiple) * p.BlockMultiple

	plan := Plan{
		SplitDim:       split,
		BlockSize:      shape.Clone(),
		Overlap:        make([]int, len(shape)),
		TileCount:      p.NTiles,
		BlockMultiple:  p.BlockMultiple,
		OriginalSize:   shape.Clone(),
		ExpandedExtent: shape.With(split, width*p.NTiles),
	}
	plan.BlockSize[split] = width
	plan.Overlap[split] = p.Overlap
	return plan, nil
}

// Tiles lists the tiles of the plan in ascending grid order.
func (p Plan) Tiles() []Tile {
	full := view.FromShape(p.ExpandedExtent)
	width, overlap := p.BlockWidth(), p.Overlap[p.SplitDim]
	tiles := make([]Tile, p.TileCount)
	for i := range tiles {
		lo := i*width - overlap
		hi := i*width + width + overlap - 1
		iv, err := full.WithDim(p.SplitDim, lo, hi)
		if err != nil {
			// width >= 1 and overlap >= 0 keep hi >= lo.
			panic(err)
		}
		grid := make([]int, len(p.OriginalSize))
		grid[p.SplitDim] = i
		tiles[i] = Tile{Index: i, Grid: grid, Interval: iv}
	}
	return tiles
}

// Partition mirror-expands a along the split dimension to the plan's
// expanded extent and returns the expanded array with its plan.
func Partition(a *ndarray.Array, p Params, exclude []int) (*ndarray.Array, Plan, error) {
	plan, err := NewPlan(a.Shape(), p, exclude)
	if err != nil {
		return nil, Plan{}, err
	}
	expanded, err := view.ExpandDimToSize(a, plan.SplitDim, plan.ExpandedExtent[plan.SplitDim])
	if err != nil {
		return nil, Plan{}, err
	}
	return expanded, plan, nil
}

// Extract materializes tile t of an expanded array, reflecting at its border
// where the overlap reaches outside.
func (t Tile) Extract(expanded *ndarray.Array) (*ndarray.Array, error) {
	v, err := view.Mirror(expanded).Within(t.Interval)
	if err != nil {
		return nil, errors.WithMessagef(err, "tile %d", t.Index)
	}
	return v.Materialize(), nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
