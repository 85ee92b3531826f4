// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tiling provides the public API for tiled prediction.
//
// An image too large for a transform is split along its longest eligible
// axis into overlapping tiles. Every tile is run through the transform on
// its own, the overlap is cropped away and the results are stitched back to
// the original extent.
//
// Example:
//
//	img, _ := tiling.NewImage(data, "YX")
//	t, _ := transform.NewRegistry().Build(transform.Spec{Name: "mean_filter"})
//	out, err := tiling.Predict(ctx, img, tiling.Params{NTiles: 4, BlockMultiple: 8, Overlap: 8}, t)
package tiling

import (
	"context"
	"log/slog"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/dataset"
	"github.com/born-ml/tiled/internal/ndarray"
	"github.com/born-ml/tiled/internal/tiling"
	"github.com/born-ml/tiled/internal/transform"
	"github.com/born-ml/tiled/internal/view"
)

// Array is a dense float32 N-dimensional array in row-major order.
type Array = ndarray.Array

// Shape lists the extent of every dimension.
type Shape = ndarray.Shape

// Axis identifies the meaning of an array dimension.
type Axis = axes.Axis

// Axis constants.
const (
	X       Axis = axes.X
	Y       Axis = axes.Y
	Z       Axis = axes.Z
	Time    Axis = axes.Time
	Channel Axis = axes.Channel
)

// Mapping relates the axes of an array to the layout of a transform.
type Mapping = axes.Mapping

// Image is an array together with the axes of its dimensions.
type Image = tiling.Image

// Params configures the partition.
type Params = tiling.Params

// Plan describes the partition of one image.
type Plan = tiling.Plan

// Tile is one piece of a Plan.
type Tile = tiling.Tile

// Option configures Predict.
type Option = tiling.Option

// Normalizer rescales the input before tiling and the output after stitching.
type Normalizer = tiling.Normalizer

// ProgressFunc receives the number of finished tiles.
type ProgressFunc = tiling.ProgressFunc

// Errors.
var (
	ErrInvalidTiling         = tiling.ErrInvalidTiling
	ErrInvalidExtent         = view.ErrInvalidExtent
	ErrUnmappableAxis        = axes.ErrUnmappableAxis
	ErrUnsupportedRankChange = axes.ErrUnsupportedRankChange
	ErrResourceExhausted     = transform.ErrResourceExhausted
	ErrShapeMismatch         = ndarray.ErrShapeMismatch
)

// NewArray wraps data, which must hold exactly shape.NumElements() values.
func NewArray(data []float32, shape Shape) (*Array, error) {
	return ndarray.FromSlice(data, shape)
}

// ParseAxes reads an axis string such as "XYC".
func ParseAxes(s string) ([]Axis, error) {
	return axes.Parse(s)
}

// NewImage pairs data with the axes named by the string ax.
func NewImage(data *Array, ax string) (Image, error) {
	list, err := axes.Parse(ax)
	if err != nil {
		return Image{}, err
	}
	return dataset.New(data, list)
}

// Predict runs t over img tile by tile and returns the stitched result.
func Predict(ctx context.Context, img Image, p Params, t transform.Transform, opts ...Option) (Image, error) {
	return tiling.Predict(ctx, img, p, t, opts...)
}

// MapAxes builds the mapping of an array with axes ax onto t. The mapping
// can be reused by Run for every image with the same axes.
func MapAxes(ax []Axis, t transform.Transform) (Mapping, error) {
	return axes.Map(ax, t.Signature().Declared())
}

// Run is Predict with a mapping built by MapAxes.
func Run(ctx context.Context, img Image, m Mapping, p Params, t transform.Transform, opts ...Option) (Image, error) {
	return tiling.Run(ctx, img, m, p, t, opts...)
}

// NewPlan computes the partition of an array of the given shape.
// Dimensions listed in exclude are never split.
func NewPlan(shape Shape, p Params, exclude ...int) (Plan, error) {
	return tiling.NewPlan(shape, p, exclude)
}

// WithWorkers runs up to n tiles at once for concurrency-safe transforms.
func WithWorkers(n int) Option { return tiling.WithWorkers(n) }

// WithNormalizer sets the input and output normalization.
func WithNormalizer(n Normalizer) Option { return tiling.WithNormalizer(n) }

// WithProgress reports finished tiles.
func WithProgress(f ProgressFunc) Option { return tiling.WithProgress(f) }

// WithLogger sets the logger for mapping, partition and tile events.
func WithLogger(l *slog.Logger) Option { return tiling.WithLogger(l) }

// WithFixedAxes keeps the given axes from being split.
func WithFixedAxes(ax ...Axis) Option { return tiling.WithFixedAxes(ax...) }
