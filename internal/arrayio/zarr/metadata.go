package zarr

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
)

// Metadata keys.
const (
	// MTAttributes stores user metadata of an array.
	MTAttributes = ".zattrs"
	// MTArray stores the array metadata.
	MTArray = ".zarray"
)

// Attributes is the user metadata stored in .zattrs.
type Attributes map[string]any

// ArrayMeta is the content of a .zarray key (zarr storage format 2).
type ArrayMeta struct {
	ZarrFormat         int         `json:"zarr_format"`
	Shape              []int       `json:"shape"`
	Chunks             []int       `json:"chunks"`
	Dtype              Dtype       `json:"dtype"`
	Compressor         *Compressor `json:"compressor"`
	FillValue          any         `json:"fill_value"`
	Order              string      `json:"order"`
	Filters            []any       `json:"filters"`
	DimensionSeparator string      `json:"dimension_separator,omitempty"`
}

// Validate checks that the metadata describes an array this package can read.
func (m *ArrayMeta) Validate() error {
	if m.ZarrFormat != 2 {
		return errors.Errorf("zarr format %d not supported", m.ZarrFormat)
	}
	if len(m.Shape) == 0 {
		return errors.New("zarr array has no dimensions")
	}
	if len(m.Chunks) != len(m.Shape) {
		return errors.Errorf("chunks %v do not match shape %v", m.Chunks, m.Shape)
	}
	if err := ndarray.Shape(m.Shape).Validate(); err != nil {
		return errors.WithMessage(err, "zarr shape")
	}
	if err := ndarray.Shape(m.Chunks).Validate(); err != nil {
		return errors.WithMessage(err, "zarr chunks")
	}
	if m.Order != "C" {
		return errors.Errorf("order %q not supported", m.Order)
	}
	if len(m.Filters) > 0 {
		return errors.New("filters not supported")
	}
	if _, err := m.Fill(); err != nil {
		return err
	}
	return nil
}

// Fill returns the fill value as float32. A null fill value reads as zero.
func (m *ArrayMeta) Fill() (float32, error) {
	switch v := m.FillValue.(type) {
	case nil:
		return 0, nil
	case float64:
		return float32(v), nil
	case json.Number:
		f, err := v.Float64()
		return float32(f), err
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		switch v {
		case "NaN":
			return float32(math.NaN()), nil
		case "Infinity":
			return float32(math.Inf(1)), nil
		case "-Infinity":
			return float32(math.Inf(-1)), nil
		}
	}
	return 0, errors.Errorf("unsupported fill value %v", m.FillValue)
}

// ChunkKey returns the store key of the chunk at grid position idx.
func (m *ArrayMeta) ChunkKey(idx []int) string {
	sep := m.DimensionSeparator
	if sep == "" {
		sep = "."
	}
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

// ChunkGrid returns the number of chunks along every dimension.
func (m *ArrayMeta) ChunkGrid() []int {
	grid := make([]int, len(m.Shape))
	for d := range grid {
		grid[d] = (m.Shape[d] + m.Chunks[d] - 1) / m.Chunks[d]
	}
	return grid
}
