package arrayio

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/dataset"
	"github.com/born-ml/tiled/internal/ndarray"
)

func sample(t *testing.T) dataset.Dataset {
	t.Helper()
	a, err := ndarray.New(ndarray.Shape{4, 3, 2})
	require.NoError(t, err)
	for i := range a.Data() {
		a.Data()[i] = float32(i) - 7.25
	}
	return dataset.Dataset{Data: a, Axes: axes.MustParse("YXC")}
}

// writeRaw writes a SafeTensors file from an explicit header and data section.
func writeRaw(t *testing.T, path string, hdr map[string]any, data []byte) {
	t.Helper()
	headerJSON, err := json.Marshal(hdr)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))))
	buf.Write(headerJSON)
	buf.Write(data)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"a/b/img.safetensors": SafeTensors,
		"img.SafeTensors":     SafeTensors,
		"out.zarr":            Zarr,
		"out.zarr/":           Zarr,
	}
	for path, want := range tests {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("img.tif")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"img.safetensors", "img.zarr"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			d := sample(t)
			require.NoError(t, Save(path, d, Options{Chunks: []int{2, 2, 2}, Compressor: "gzip"}))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, d.Axes, got.Axes)
			assert.Equal(t, d.Data.Shape(), got.Data.Shape())
			assert.Equal(t, d.Data.Data(), got.Data.Data())
		})
	}
}

func TestSaveRejectsInvalidDataset(t *testing.T) {
	d := sample(t)
	d.Axes = axes.MustParse("YX")
	err := Save(filepath.Join(t.TempDir(), "img.safetensors"), d, Options{})
	assert.Error(t, err)
}

func TestSafeTensorsChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.safetensors")
	require.NoError(t, WriteSafeTensors(path, "", sample(t)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = ReadSafeTensors(path, DefaultTensorName)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestSafeTensorsDTypes(t *testing.T) {
	dir := t.TempDir()

	f64 := make([]byte, 16)
	binary.LittleEndian.PutUint64(f64, math.Float64bits(1.5))
	binary.LittleEndian.PutUint64(f64[8:], math.Float64bits(-3))

	i32 := make([]byte, 8)
	binary.LittleEndian.PutUint32(i32, uint32(0xFFFFFFFF)) // -1
	binary.LittleEndian.PutUint32(i32[4:], 42)

	tests := []struct {
		dtype string
		data  []byte
		want  []float32
	}{
		{"F64", f64, []float32{1.5, -3}},
		{"I32", i32, []float32{-1, 42}},
		{"U8", []byte{0, 200}, []float32{0, 200}},
	}
	for _, tt := range tests {
		t.Run(tt.dtype, func(t *testing.T) {
			path := filepath.Join(dir, tt.dtype+".safetensors")
			writeRaw(t, path, map[string]any{
				"x": tensorInfo{DType: tt.dtype, Shape: []int{2}, DataOffsets: [2]int64{0, int64(len(tt.data))}},
			}, tt.data)

			d, err := ReadSafeTensors(path, "")
			require.NoError(t, err)
			assert.Nil(t, d.Axes)
			assert.Equal(t, tt.want, d.Data.Data())
		})
	}
}

func TestSafeTensorsErrors(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bf16.safetensors")
	writeRaw(t, path, map[string]any{
		"x": tensorInfo{DType: "BF16", Shape: []int{2}, DataOffsets: [2]int64{0, 4}},
	}, make([]byte, 4))
	_, err := ReadSafeTensors(path, "x")
	assert.True(t, errors.Is(err, ErrUnsupportedDType))

	path = filepath.Join(dir, "short.safetensors")
	writeRaw(t, path, map[string]any{
		"x": tensorInfo{DType: "F32", Shape: []int{4}, DataOffsets: [2]int64{0, 16}},
	}, make([]byte, 8))
	_, err = ReadSafeTensors(path, "x")
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	path = filepath.Join(dir, "two.safetensors")
	writeRaw(t, path, map[string]any{
		"a": tensorInfo{DType: "U8", Shape: []int{1}, DataOffsets: [2]int64{0, 1}},
		"b": tensorInfo{DType: "U8", Shape: []int{1}, DataOffsets: [2]int64{1, 2}},
	}, []byte{1, 2})
	_, err = ReadSafeTensors(path, "")
	assert.Error(t, err, "ambiguous tensor")
	d, err := ReadSafeTensors(path, "b")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, d.Data.Data())

	_, err = ReadSafeTensors(path, "c")
	assert.Error(t, err)

	path = filepath.Join(dir, "overflow.safetensors")
	writeRaw(t, path, map[string]any{
		"image": tensorInfo{DType: "F32", Shape: []int{4294967296, 4294967296}, DataOffsets: [2]int64{0, 0}},
	}, nil)
	_, err = ReadSafeTensors(path, "")
	assert.True(t, errors.Is(err, ndarray.ErrShapeMismatch))

	path = filepath.Join(dir, "huge.safetensors")
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(maxHeaderSize+1)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	_, err = ReadSafeTensors(path, "")
	assert.True(t, errors.Is(err, ErrHeaderTooLarge))
}

func TestLoadZarrAxes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noaxes.zarr")
	d := sample(t)
	d.Axes = nil
	require.NoError(t, saveZarr(path, d, Options{}))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, got.Axes)
}
