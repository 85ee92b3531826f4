// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package transform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tiled/internal/ndarray"
	"github.com/born-ml/tiled/transform"
)

func TestRegistry(t *testing.T) {
	reg := transform.NewRegistry()
	assert.Equal(t, []string{"identity", "mean_filter", "project_max", "project_mean", "scale"}, reg.Names())

	reg.Register("noop", func(spec transform.Spec) (transform.Transform, error) {
		return transform.Func{
			Sig: transform.Signature{Name: spec.Name},
			Fn: func(_ context.Context, in *ndarray.Array, _ transform.Layout) (*ndarray.Array, error) {
				return in.Clone(), nil
			},
		}, nil
	})
	tr, err := reg.Build(transform.Spec{Name: "noop"})
	require.NoError(t, err)
	assert.Equal(t, "noop", tr.Signature().Name)
	assert.False(t, transform.IsConcurrencySafe(tr))

	_, err = reg.Build(transform.Spec{Name: "missing"})
	assert.Error(t, err)
}

func TestLimitKeepsConcurrencySafety(t *testing.T) {
	params, err := transform.ParseParams([]string{"a=3"})
	require.NoError(t, err)
	tr, err := transform.NewRegistry().Build(transform.Spec{Name: "scale", Params: params})
	require.NoError(t, err)
	assert.True(t, transform.IsConcurrencySafe(tr))
	assert.True(t, transform.IsConcurrencySafe(transform.Limit(tr, 10)))
	_, unwrapped := transform.Limit(tr, 0).(transform.Func)
	assert.True(t, unwrapped, "a zero budget leaves the transform as is")
}
