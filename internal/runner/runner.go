// Package runner turns a Config into a tiled prediction: it loads the input
// array and the model metadata, builds the transform, resolves the tiling
// parameters and retries with more tiles when a tile exhausts the
// transform's resources.
package runner

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/arrayio"
	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/modelmeta"
	"github.com/born-ml/tiled/internal/tiling"
	"github.com/born-ml/tiled/internal/transform"
)

// Job is a prepared prediction.
type Job struct {
	Image     tiling.Image
	Transform transform.Transform
	Mapping   axes.Mapping
	Params    tiling.Params
	Fixed     []axes.Axis // Axes the model metadata forbids splitting.
	MaxTiles  int
}

// Excluded returns the dimensions of the input that are never split.
func (j *Job) Excluded() []int {
	return tiling.ExcludedDims(j.Image.Axes, j.Mapping, j.Fixed)
}

// Plan computes the partition the first attempt of j will use.
func (j *Job) Plan() (tiling.Plan, error) {
	return tiling.NewPlan(j.Image.Data.Shape(), j.Params, j.Excluded())
}

// Prepare loads everything cfg refers to.
func Prepare(cfg Config, reg *transform.Registry, logger *slog.Logger) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	img, err := arrayio.Load(cfg.Input)
	if err != nil {
		return nil, errors.WithMessagef(err, "load %s", cfg.Input)
	}
	if img.Axes, err = inputAxes(cfg.Axes, img); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "input %s", cfg.Input)
	}

	var meta modelmeta.Meta
	if cfg.Meta != "" {
		if meta, err = modelmeta.Load(cfg.Meta, logger); err != nil {
			return nil, err
		}
	}

	params, err := transform.ParseParams(cfg.Params)
	if err != nil {
		return nil, err
	}
	t, err := reg.Build(transform.Spec{
		Name:       cfg.Transform,
		Params:     params,
		InputAxes:  meta.Axes,
		OutputAxes: meta.AxesOut,
	})
	if err != nil {
		return nil, err
	}
	t = transform.Limit(t, cfg.MaxElements)

	m, err := axes.Map(img.Axes, t.Signature().Declared())
	if err != nil {
		return nil, errors.WithMessagef(err, "map %s onto %s", img, cfg.Transform)
	}

	j := &Job{
		Image:     img,
		Transform: t,
		Mapping:   m,
		Fixed:     meta.FixedAxes(),
		MaxTiles:  cfg.MaxTiles,
		Params: tiling.Params{
			NTiles:        cfg.Tiles,
			BlockMultiple: cfg.BlockMultiple,
			Overlap:       cfg.Overlap,
		},
	}
	if err := j.resolveParams(meta); err != nil {
		return nil, err
	}
	logger.Info("prepared prediction",
		"input", img.String(),
		"transform", cfg.Transform,
		"tiles", j.Params.NTiles,
		"block_multiple", j.Params.BlockMultiple,
		"overlap", j.Params.Overlap)
	return j, nil
}

// resolveParams fills Auto parameters from the metadata entry of the axis
// that will be split.
func (j *Job) resolveParams(meta modelmeta.Meta) error {
	if j.Params.BlockMultiple != Auto && j.Params.Overlap != Auto {
		return nil
	}
	d, err := tiling.SplitDimension(j.Image.Data.Shape(), j.Excluded())
	if err != nil {
		return err
	}
	a := j.Image.Axes[d]
	if j.Params.BlockMultiple == Auto {
		j.Params.BlockMultiple = meta.BlockMultipleFor(a)
	}
	if j.Params.Overlap == Auto {
		j.Params.Overlap = meta.OverlapFor(a)
	}
	return nil
}

func inputAxes(s string, img tiling.Image) ([]axes.Axis, error) {
	switch {
	case s != "":
		return axes.Parse(s)
	case len(img.Axes) > 0:
		return img.Axes, nil
	default:
		return axes.Default(img.Data.Rank())
	}
}

// Predict runs j, doubling the tile count after every ErrResourceExhausted
// until MaxTiles would be exceeded. It returns the parameters of the
// successful attempt.
func Predict(ctx context.Context, j *Job, logger *slog.Logger, opts ...tiling.Option) (tiling.Image, tiling.Params, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = append([]tiling.Option{tiling.WithLogger(logger), tiling.WithFixedAxes(j.Fixed...)}, opts...)

	p := j.Params
	for {
		out, err := tiling.Run(ctx, j.Image, j.Mapping, p, j.Transform, opts...)
		if err == nil {
			return out, p, nil
		}
		if !errors.Is(err, transform.ErrResourceExhausted) {
			return tiling.Image{}, p, err
		}
		if p.NTiles*2 > j.MaxTiles {
			return tiling.Image{}, p, errors.WithMessagef(err, "giving up at %d tiles", p.NTiles)
		}
		p.NTiles *= 2
		logger.Warn("tile exceeded transform resources, retrying", "tiles", p.NTiles)
	}
}

// Run prepares cfg, predicts and writes the result to cfg.Output if set.
func Run(ctx context.Context, cfg Config, reg *transform.Registry, logger *slog.Logger, opts ...tiling.Option) (tiling.Image, error) {
	j, err := Prepare(cfg, reg, logger)
	if err != nil {
		return tiling.Image{}, err
	}
	out, _, err := Predict(ctx, j, logger, opts...)
	if err != nil {
		return tiling.Image{}, err
	}
	if cfg.Output != "" {
		err := arrayio.Save(cfg.Output, out, arrayio.Options{Chunks: cfg.Chunks, Compressor: cfg.Compressor})
		if err != nil {
			return tiling.Image{}, errors.WithMessagef(err, "save %s", cfg.Output)
		}
	}
	return out, nil
}
