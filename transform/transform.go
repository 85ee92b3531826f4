// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package transform provides the public API for the transforms run by tiling.
//
// A transform declares the axis order it expects and produces through its
// Signature. Custom transforms can be written with Func or by implementing
// Transform, and made available by name through a Registry.
package transform

import (
	"github.com/born-ml/tiled/internal/transform"
)

// Transform maps one tensor to another.
type Transform = transform.Transform

// ConcurrencySafe is implemented by transforms that may run tiles in parallel.
type ConcurrencySafe = transform.ConcurrencySafe

// Signature declares the tensor layout of a transform.
type Signature = transform.Signature

// Layout is the resolved axis order of a run.
type Layout = transform.Layout

// RunFunc is the function type wrapped by Func.
type RunFunc = transform.RunFunc

// Func adapts a function to Transform.
type Func = transform.Func

// Spec selects and configures a transform.
type Spec = transform.Spec

// Params holds transform parameters.
type Params = transform.Params

// Factory builds a transform from a Spec.
type Factory = transform.Factory

// Registry maps names to factories.
type Registry = transform.Registry

// ErrResourceExhausted reports a tile too large for the transform.
var ErrResourceExhausted = transform.ErrResourceExhausted

// NewRegistry creates a registry with the built-in transforms:
// identity, scale, mean_filter, project_max and project_mean.
func NewRegistry() *Registry {
	return transform.NewRegistry()
}

// ParseParams reads "key=value" pairs.
func ParseParams(pairs []string) (Params, error) {
	return transform.ParseParams(pairs)
}

// Limit makes t fail with ErrResourceExhausted for tiles above maxElements.
func Limit(t Transform, maxElements int) Transform {
	return transform.Limit(t, maxElements)
}

// IsConcurrencySafe reports whether t may process tiles concurrently.
func IsConcurrencySafe(t Transform) bool {
	return transform.IsConcurrencySafe(t)
}
