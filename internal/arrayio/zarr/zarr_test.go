package zarr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tiled/internal/ndarray"
)

func arange(t *testing.T, shape ndarray.Shape) *ndarray.Array {
	t.Helper()
	a, err := ndarray.New(shape)
	require.NoError(t, err)
	for i := range a.Data() {
		a.Data()[i] = float32(i) * 0.5
	}
	return a
}

func TestParseDtype(t *testing.T) {
	cases := map[string]Dtype{
		"<f4":    Float32,
		">i2":    {ByteOrder: '>', BasicType: BTInteger, ByteSize: 2},
		"|u1":    {ByteOrder: '|', BasicType: BTUnsigned, ByteSize: 1},
		"&lt;f8": {ByteOrder: '<', BasicType: BTFloatingPoint, ByteSize: 8},
	}
	for s, want := range cases {
		got, err := ParseDtype(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	assert.Equal(t, "<f4", Float32.String())

	for _, bad := range []string{"f4", "<f2", "<S12", "=f4", "<fx"} {
		_, err := ParseDtype(bad)
		assert.Error(t, err, bad)
	}
}

func TestDtypeDecode(t *testing.T) {
	dt, err := ParseDtype(">i2")
	require.NoError(t, err)
	raw := make([]byte, 4)
	binary.BigEndian.PutUint16(raw, uint16(0xFFFE)) // -2
	binary.BigEndian.PutUint16(raw[2:], 300)
	out := make([]float32, 2)
	require.NoError(t, dt.Decode(out, raw))
	assert.Equal(t, []float32{-2, 300}, out)

	u8, err := ParseDtype("|u1")
	require.NoError(t, err)
	require.NoError(t, u8.Decode(out, []byte{7, 255}))
	assert.Equal(t, []float32{7, 255}, out)

	assert.Error(t, u8.Decode(out, []byte{1}))

	_, err = u8.Encode(out)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	compressors := map[string]*Compressor{
		"raw":  nil,
		"gzip": {ID: GZip},
		"zstd": {ID: ZStd},
	}
	for name, c := range compressors {
		t.Run(name, func(t *testing.T) {
			a := arange(t, ndarray.Shape{7, 5, 2})
			s := NewMemoryStore()
			attrs := Attributes{"axes": "XYC"}
			require.NoError(t, Write(s, "image", a, WriteOptions{Chunks: []int{3, 4, 2}, Compressor: c, Attributes: attrs}))

			// 3 x 2 x 1 chunks plus metadata.
			assert.Contains(t, s.Keys(), "image/2.1.0")
			assert.Contains(t, s.Keys(), "image/.zattrs")

			got, gotAttrs, err := Read(s, "image")
			require.NoError(t, err)
			assert.Equal(t, a.Shape(), got.Shape())
			assert.Equal(t, a.Data(), got.Data())
			assert.Equal(t, "XYC", gotAttrs["axes"])
		})
	}
}

func TestEdgeChunksArePadded(t *testing.T) {
	a := arange(t, ndarray.Shape{5})
	s := NewMemoryStore()
	require.NoError(t, Write(s, "", a, WriteOptions{Chunks: []int{4}}))

	r, err := s.Get("1")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, 16, buf.Len(), "edge chunk stored at full size")

	meta, err := ReadMeta(s, "")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, meta.ChunkGrid())
}

func TestMissingChunksReadAsFill(t *testing.T) {
	s := NewMemoryStore()
	meta := `{"zarr_format": 2, "shape": [2, 3], "chunks": [2, 3], "dtype": "<f4",
		"compressor": null, "fill_value": 5, "order": "C", "filters": null}`
	require.NoError(t, s.Put(MTArray, strings.NewReader(meta)))

	a, attrs, err := Read(s, "")
	require.NoError(t, err)
	assert.Nil(t, attrs)
	assert.Equal(t, []float32{5, 5, 5, 5, 5, 5}, a.Data())
}

func TestReadMetaErrors(t *testing.T) {
	tests := map[string]string{
		"fortran order": `{"zarr_format": 2, "shape": [2], "chunks": [2], "dtype": "<f4", "order": "F"}`,
		"format 3":      `{"zarr_format": 3, "shape": [2], "chunks": [2], "dtype": "<f4", "order": "C"}`,
		"chunk rank":    `{"zarr_format": 2, "shape": [2, 2], "chunks": [2], "dtype": "<f4", "order": "C"}`,
		"filters":       `{"zarr_format": 2, "shape": [2], "chunks": [2], "dtype": "<f4", "order": "C", "filters": [{"id": "delta"}]}`,
		"structured":    `{"zarr_format": 2, "shape": [2], "chunks": [2], "dtype": [["a", "<f4"]], "order": "C"}`,
		"fill":          `{"zarr_format": 2, "shape": [2], "chunks": [2], "dtype": "<f4", "order": "C", "fill_value": "x"}`,
		"zero shape":    `{"zarr_format": 2, "shape": [0, 2], "chunks": [1, 2], "dtype": "<f4", "order": "C"}`,
		"huge shape":    `{"zarr_format": 2, "shape": [4294967296, 4294967296], "chunks": [2, 2], "dtype": "<f4", "order": "C"}`,
		"huge chunks":   `{"zarr_format": 2, "shape": [2, 2], "chunks": [4294967296, 4294967296], "dtype": "<f4", "order": "C"}`,
	}
	for name, meta := range tests {
		t.Run(name, func(t *testing.T) {
			s := NewMemoryStore()
			require.NoError(t, s.Put(MTArray, strings.NewReader(meta)))
			_, err := ReadMeta(s, "")
			assert.Error(t, err)
		})
	}

	_, err := ReadMeta(NewMemoryStore(), "nothing")
	assert.True(t, errors.Is(err, ErrNotFound))

	s := NewMemoryStore()
	require.NoError(t, s.Put(MTArray, strings.NewReader(tests["huge shape"])))
	_, _, err = Read(s, "")
	assert.True(t, errors.Is(err, ndarray.ErrShapeMismatch))
}

func TestCompressorMeta(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, Write(s, "", arange(t, ndarray.Shape{4}), WriteOptions{Compressor: &Compressor{ID: ZStd}}))
	r, err := s.Get(MTArray)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&raw))
	assert.Equal(t, map[string]any{"id": ZStd}, raw["compressor"])

	// Settings written by other zarr implementations are accepted.
	s = NewMemoryStore()
	meta := `{"zarr_format": 2, "shape": [2], "chunks": [2], "dtype": "<f4", "order": "C", "compressor": {"id": "gzip", "level": 5}}`
	require.NoError(t, s.Put(MTArray, strings.NewReader(meta)))
	m, err := ReadMeta(s, "")
	require.NoError(t, err)
	assert.Equal(t, &Compressor{ID: GZip}, m.Compressor)
}

func TestUnsupportedCompressor(t *testing.T) {
	a := arange(t, ndarray.Shape{4})
	err := Write(NewMemoryStore(), "", a, WriteOptions{Compressor: &Compressor{ID: "blosc"}})
	assert.Error(t, err)
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocalStore(t.TempDir() + "/out.zarr")
	require.NoError(t, err)
	assert.Equal(t, LocalStoreType, s.Type())

	_, err = s.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	a := arange(t, ndarray.Shape{6, 6})
	require.NoError(t, Write(s, "", a, WriteOptions{Chunks: []int{4, 4}, Compressor: &Compressor{ID: GZip}}))
	got, _, err := Read(s, "")
	require.NoError(t, err)
	assert.Equal(t, a.Data(), got.Data())
}
