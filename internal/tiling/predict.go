// Package tiling runs a fixed-shape transform over arrays of any size.
//
// The array is cut into tiles along its largest dimension, every tile is
// padded with mirrored context, converted to the transform's axis layout,
// transformed, converted back, stripped of its context and placed in a grid.
// The grid is concatenated and cropped to the original extent.
//
// Example:
//
//	img, _ := dataset.New(data, axes.MustParse("XY"))
//	t, _ := transform.NewRegistry().Build(transform.Spec{Name: "mean_filter"})
//	out, err := tiling.Predict(ctx, img, tiling.Params{NTiles: 4, BlockMultiple: 8, Overlap: 8}, t)
package tiling

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/dataset"
	"github.com/born-ml/tiled/internal/ndarray"
	"github.com/born-ml/tiled/internal/parallel"
	"github.com/born-ml/tiled/internal/transform"
)

// Image is an array together with the semantic axes of its dimensions.
type Image = dataset.Dataset

// Predict maps the axes of img onto t and runs t over img tile by tile.
// No input is modified; on error no partial result is returned.
func Predict(ctx context.Context, img Image, p Params, t transform.Transform, opts ...Option) (Image, error) {
	if err := p.Validate(); err != nil {
		return Image{}, err
	}
	if err := img.Validate(); err != nil {
		return Image{}, err
	}
	m, err := axes.Map(img.Axes, t.Signature().Declared())
	if err != nil {
		return Image{}, errors.WithMessagef(err, "map %s onto %s", img, t.Signature().Name)
	}
	return Run(ctx, img, m, p, t, opts...)
}

// ExcludedDims returns the dimensions of an array with axes ax that must not
// be split: the axis removed by the mapping and any fixed axes.
func ExcludedDims(ax []axes.Axis, m axes.Mapping, fixed []axes.Axis) []int {
	var out []int
	for d, a := range ax {
		if (m.RankChange() == axes.Reduce && a == m.Dropped()) || axes.Contains(fixed, a) {
			out = append(out, d)
		}
	}
	return out
}

// Run is Predict with a mapping built by the caller.
func Run(ctx context.Context, img Image, m axes.Mapping, p Params, t transform.Transform, opts ...Option) (Image, error) {
	o := newOptions(opts)
	log := o.logger.With("transform", t.Signature().Name)

	if err := p.Validate(); err != nil {
		return Image{}, err
	}
	if err := img.Validate(); err != nil {
		return Image{}, err
	}
	if !slices.Equal(img.Axes, m.InputAxes()) {
		return Image{}, errors.Wrapf(axes.ErrUnmappableAxis, "mapping built for %s, image has %s",
			axes.String(m.InputAxes()), axes.String(img.Axes))
	}
	log.Debug("axis mapping", "mapping", m.String())

	data := img.Data
	if o.normalizer != nil {
		var err error
		if data, err = o.normalizer.Normalize(data); err != nil {
			return Image{}, errors.WithMessage(err, "normalize")
		}
	}

	expanded, plan, err := Partition(data, p, ExcludedDims(img.Axes, m, o.fixed))
	if err != nil {
		return Image{}, err
	}
	log.Debug("partition",
		"split_dim", plan.SplitDim,
		"split_axis", img.Axes[plan.SplitDim].String(),
		"block_width", plan.BlockWidth(),
		"overlap", plan.Overlap[plan.SplitDim],
		"tiles", plan.TileCount,
		"expanded", plan.ExpandedExtent.String())

	exec, err := NewExecutor(m, t, plan)
	if err != nil {
		return Image{}, err
	}

	workers := o.workers
	if workers > 1 && !transform.IsConcurrencySafe(t) {
		log.Debug("transform is not concurrency safe, running tiles sequentially")
		workers = 1
	}

	tiles := plan.Tiles()
	results := make([]*ndarray.Array, len(tiles))
	labels := make([][]axes.Axis, len(tiles))
	var (
		mu   sync.Mutex
		done int
	)
	err = parallel.ForEach(ctx, len(tiles), workers, func(ctx context.Context, i int) error {
		out, lbl, err := exec.Run(ctx, expanded, tiles[i])
		if err != nil {
			return errors.WithMessagef(err, "tile %d/%d", i+1, len(tiles))
		}
		results[i], labels[i] = out, lbl

		mu.Lock()
		defer mu.Unlock()
		done++
		log.Debug("tile done", "tile", i, "shape", out.Shape().String(), "done", done)
		if o.progress != nil {
			o.progress(done, len(tiles))
		}
		return nil
	})
	if err != nil {
		log.Debug("prediction failed", slog.Any("error", err))
		return Image{}, err
	}

	for i := 1; i < len(labels); i++ {
		if !slices.Equal(labels[i], labels[0]) {
			return Image{}, errors.Errorf("tile %d has axes %s, tile 0 has %s",
				i, axes.String(labels[i]), axes.String(labels[0]))
		}
	}

	result, err := Reassemble(plan, exec.OutputSplitDim(), tiles, results)
	if err != nil {
		return Image{}, err
	}
	if o.normalizer != nil {
		if result, err = o.normalizer.Denormalize(result); err != nil {
			return Image{}, errors.WithMessage(err, "denormalize")
		}
	}
	return Image{Data: result, Axes: labels[0]}, nil
}
