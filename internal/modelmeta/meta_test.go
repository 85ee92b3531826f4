package modelmeta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tiled/internal/axes"
)

func TestParseArrays(t *testing.T) {
	m, err := Parse([]byte(`{
		"name": "care",
		"axes": "SYXC",
		"axes_out": "SYXC",
		"axes_div_by": [1, 4, 8, 1],
		"tile_overlap": [0, 32, 16, 0],
		"tiling": [false, true, true, false]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []axes.Axis{axes.Time, axes.Y, axes.X, axes.Channel}, m.Axes)
	assert.Equal(t, m.Axes, m.AxesOut)
	assert.Equal(t, 4, m.BlockMultipleFor(axes.Y))
	assert.Equal(t, 8, m.BlockMultipleFor(axes.X))
	assert.Equal(t, 1, m.BlockMultipleFor(axes.Z), "undeclared axis")
	assert.Equal(t, 16, m.OverlapFor(axes.X))
	assert.Equal(t, 0, m.OverlapFor(axes.Channel))
	assert.True(t, m.TilingAllowed(axes.Y))
	assert.False(t, m.TilingAllowed(axes.Time))
	assert.Equal(t, []axes.Axis{axes.Time, axes.Channel}, m.FixedAxes())
}

func TestParseScalars(t *testing.T) {
	m, err := Parse([]byte(`{"axes": "YX", "axes_div_by": 16, "tile_overlap": 8, "tiling": true, "axes_out": null}`))
	require.NoError(t, err)

	assert.Equal(t, 16, m.BlockMultipleFor(axes.X))
	assert.Equal(t, 16, m.BlockMultipleFor(axes.Z))
	assert.Equal(t, 8, m.OverlapFor(axes.Y))
	assert.True(t, m.TilingAllowed(axes.X))
	assert.Empty(t, m.FixedAxes())
	assert.Nil(t, m.AxesOut)
}

func TestZeroMeta(t *testing.T) {
	var m Meta
	assert.Equal(t, 1, m.BlockMultipleFor(axes.X))
	assert.Equal(t, 0, m.OverlapFor(axes.X))
	assert.True(t, m.TilingAllowed(axes.X))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"bad axes", `{"axes": "XQ"}`},
		{"bad div", `{"axes_div_by": "four"}`},
		{"length mismatch", `{"axes": "YX", "tile_overlap": [1, 2, 3]}`},
		{"zero multiple", `{"axes_div_by": 0}`},
		{"negative overlap", `{"tile_overlap": -2}`},
		{"bad tiling", `{"tiling": [1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	m, err := Load(filepath.Join(dir, FileName), nil)
	require.NoError(t, err, "missing file is not an error")
	assert.Equal(t, Meta{}, m)

	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"axes": "ZYX", "tile_overlap": [0, 4, 4]}`), 0o600))
	m, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, m.OverlapFor(axes.Y))
	assert.Equal(t, 0, m.OverlapFor(axes.Z))
}
