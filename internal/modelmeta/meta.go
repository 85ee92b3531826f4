// Package modelmeta reads the meta.json file shipped next to a model.
//
// The file describes the model's axis order and the constraints tiling must
// respect. Numeric and boolean entries may be a single value, which applies
// to every axis, or an array with one value per entry of "axes".
//
//	{
//	  "axes": "SYXC",
//	  "axes_out": "SYXC",
//	  "axes_div_by": [1, 4, 4, 1],
//	  "tile_overlap": [0, 32, 32, 0],
//	  "tiling": [false, true, true, false]
//	}
package modelmeta

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/axes"
)

// FileName is the conventional name of the metadata file.
const FileName = "meta.json"

// Meta holds model metadata. The zero value places no constraints.
type Meta struct {
	Axes        []axes.Axis
	AxesOut     []axes.Axis
	AxesDivBy   []int
	TileOverlap []int
	Tiling      []bool
}

type rawMeta struct {
	Axes        *string  `json:"axes"`
	AxesOut     *string  `json:"axes_out"`
	AxesDivBy   intList  `json:"axes_div_by"`
	TileOverlap intList  `json:"tile_overlap"`
	Tiling      boolList `json:"tiling"`
}

// intList decodes a JSON number or array of numbers.
type intList []int

func (l *intList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var one int
	if err := json.Unmarshal(data, &one); err == nil {
		*l = intList{one}
		return nil
	}
	var many []int
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.Wrap(err, "expected an integer or an array of integers")
	}
	*l = many
	return nil
}

// boolList decodes a JSON boolean or array of booleans.
type boolList []bool

func (l *boolList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var one bool
	if err := json.Unmarshal(data, &one); err == nil {
		*l = boolList{one}
		return nil
	}
	var many []bool
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.Wrap(err, "expected a boolean or an array of booleans")
	}
	*l = many
	return nil
}

// Parse decodes meta.json content. Unknown keys are ignored.
func Parse(data []byte) (Meta, error) {
	var raw rawMeta
	if err := json.Unmarshal(data, &raw); err != nil {
		return Meta{}, errors.Wrap(err, "parse model metadata")
	}
	m := Meta{
		AxesDivBy:   raw.AxesDivBy,
		TileOverlap: raw.TileOverlap,
		Tiling:      raw.Tiling,
	}
	var err error
	if raw.Axes != nil {
		if m.Axes, err = axes.Parse(*raw.Axes); err != nil {
			return Meta{}, errors.WithMessage(err, "model metadata")
		}
	}
	if raw.AxesOut != nil {
		if m.AxesOut, err = axes.Parse(*raw.AxesOut); err != nil {
			return Meta{}, errors.WithMessage(err, "model metadata")
		}
	}
	for name, n := range map[string]int{"axes_div_by": len(m.AxesDivBy), "tile_overlap": len(m.TileOverlap), "tiling": len(m.Tiling)} {
		if n > 1 && n != len(m.Axes) {
			return Meta{}, errors.Errorf("model metadata: %s has %d entries for %d axes", name, n, len(m.Axes))
		}
	}
	for i, v := range m.AxesDivBy {
		if v < 1 {
			return Meta{}, errors.Errorf("model metadata: axes_div_by[%d] = %d < 1", i, v)
		}
	}
	for i, v := range m.TileOverlap {
		if v < 0 {
			return Meta{}, errors.Errorf("model metadata: tile_overlap[%d] = %d < 0", i, v)
		}
	}
	return m, nil
}

// Load reads and parses a metadata file. A missing file is not an error:
// it is logged and the zero Meta is returned.
func Load(path string, logger *slog.Logger) (Meta, error) {
	//nolint:gosec // Reading model metadata from a user-specified path is intentional.
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if logger != nil {
			logger.Info("no model metadata found", "path", path)
		}
		return Meta{}, nil
	}
	if err != nil {
		return Meta{}, errors.Wrap(err, "read model metadata")
	}
	return Parse(data)
}

// BlockMultipleFor returns the size a tile along axis a must be divisible
// by, or 1 when the metadata does not constrain it.
func (m Meta) BlockMultipleFor(a axes.Axis) int {
	if v, ok := lookup(m, m.AxesDivBy, a); ok {
		return v
	}
	return 1
}

// OverlapFor returns the tile overlap required along axis a, or 0.
func (m Meta) OverlapFor(a axes.Axis) int {
	v, _ := lookup(m, m.TileOverlap, a)
	return v
}

// TilingAllowed reports whether arrays may be split along axis a.
func (m Meta) TilingAllowed(a axes.Axis) bool {
	if v, ok := lookup(m, m.Tiling, a); ok {
		return v
	}
	return true
}

// FixedAxes returns the axes along which tiling is disallowed.
func (m Meta) FixedAxes() []axes.Axis {
	var out []axes.Axis
	for _, a := range m.Axes {
		if !m.TilingAllowed(a) {
			out = append(out, a)
		}
	}
	if len(m.Axes) == 0 && len(m.Tiling) == 1 && !m.Tiling[0] {
		out = []axes.Axis{axes.X, axes.Y, axes.Z, axes.Time, axes.Channel}
	}
	return out
}

func lookup[T any](m Meta, list []T, a axes.Axis) (T, bool) {
	var zero T
	switch {
	case len(list) == 0:
		return zero, false
	case len(list) == 1:
		return list[0], true
	}
	i := axes.Index(m.Axes, a)
	if i < 0 || i >= len(list) {
		return zero, false
	}
	return list[i], true
}
