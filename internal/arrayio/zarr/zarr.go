// Package zarr reads and writes N-dimensional arrays in zarr storage format 2.
//
// An array lives under a path of a Store: its metadata in ".zarray", user
// attributes in ".zattrs" and one key per chunk, named by the chunk's grid
// position ("0.1.0"). Edge chunks are stored at full chunk size, padded with
// the fill value. Only C order and simple numeric dtypes are supported;
// values are converted to float32 on read and written as "<f4".
package zarr

import (
	"bytes"
	"encoding/json"
	"io"
	"path"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
)

// DefaultChunkSize bounds every chunk dimension when WriteOptions.Chunks is nil.
const DefaultChunkSize = 256

// WriteOptions controls Write.
type WriteOptions struct {
	Chunks     []int       // Chunk shape; nil uses DefaultChunkSize per dimension.
	Compressor *Compressor // nil stores chunks raw.
	Attributes Attributes  // Written to .zattrs when non-empty.
}

// ReadMeta reads and validates the .zarray of the array at p.
func ReadMeta(s Store, p string) (*ArrayMeta, error) {
	r, err := s.Get(path.Join(p, MTArray))
	if err != nil {
		return nil, errors.Wrapf(err, "open zarr array %q", p)
	}
	defer func() {
		_ = r.Close()
	}()
	meta := &ArrayMeta{}
	if err := json.NewDecoder(r).Decode(meta); err != nil {
		return nil, errors.Wrapf(err, "decode %s", MTArray)
	}
	if err := meta.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "zarr array %q", p)
	}
	return meta, nil
}

// ReadAttributes reads the .zattrs of the array at p. A missing key yields nil.
func ReadAttributes(s Store, p string) (Attributes, error) {
	r, err := s.Get(path.Join(p, MTAttributes))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()
	attrs := Attributes{}
	if err := json.NewDecoder(r).Decode(&attrs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", MTAttributes)
	}
	return attrs, nil
}

// Read loads the array at p. Missing chunks read as the fill value.
func Read(s Store, p string) (*ndarray.Array, Attributes, error) {
	meta, err := ReadMeta(s, p)
	if err != nil {
		return nil, nil, err
	}
	fill, err := meta.Fill()
	if err != nil {
		return nil, nil, err
	}
	out, err := ndarray.New(meta.Shape)
	if err != nil {
		return nil, nil, err
	}
	if fill != 0 {
		for i := range out.Data() {
			out.Data()[i] = fill
		}
	}

	chunk := make([]float32, ndarray.Shape(meta.Chunks).NumElements())
	err = eachChunk(meta.ChunkGrid(), func(idx []int) error {
		key := path.Join(p, meta.ChunkKey(idx))
		r, err := s.Get(key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := readChunk(meta.Compressor, r)
		if err != nil {
			return errors.WithMessagef(err, "chunk %s", key)
		}
		if err := meta.Dtype.Decode(chunk, raw); err != nil {
			return errors.WithMessagef(err, "chunk %s", key)
		}
		copyChunk(out, chunk, meta.Chunks, idx, true)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	attrs, err := ReadAttributes(s, p)
	if err != nil {
		return nil, nil, err
	}
	return out, attrs, nil
}

// Write stores a as a float32 zarr array at p.
func Write(s Store, p string, a *ndarray.Array, opts WriteOptions) error {
	chunks := opts.Chunks
	if chunks == nil {
		chunks = make([]int, a.Rank())
		for d := range chunks {
			chunks[d] = min(a.Dim(d), DefaultChunkSize)
		}
	}
	meta := &ArrayMeta{
		ZarrFormat: 2,
		Shape:      a.Shape().Clone(),
		Chunks:     append([]int(nil), chunks...),
		Dtype:      Float32,
		Compressor: opts.Compressor,
		FillValue:  0.0,
		Order:      "C",
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	if err := putJSON(s, path.Join(p, MTArray), meta); err != nil {
		return err
	}

	chunk := make([]float32, ndarray.Shape(meta.Chunks).NumElements())
	err := eachChunk(meta.ChunkGrid(), func(idx []int) error {
		clear(chunk)
		copyChunk(a, chunk, meta.Chunks, idx, false)
		raw, err := meta.Dtype.Encode(chunk)
		if err != nil {
			return err
		}
		packed, err := meta.Compressor.Compress(raw)
		if err != nil {
			return err
		}
		return s.Put(path.Join(p, meta.ChunkKey(idx)), bytes.NewReader(packed))
	})
	if err != nil {
		return errors.WithMessagef(err, "write zarr array %q", p)
	}

	if len(opts.Attributes) > 0 {
		return putJSON(s, path.Join(p, MTAttributes), opts.Attributes)
	}
	return nil
}

func putJSON(s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return s.Put(key, bytes.NewReader(data))
}

func readChunk(c *Compressor, r io.ReadCloser) ([]byte, error) {
	dr, err := c.Decompressor(r)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	data, err := io.ReadAll(dr)
	_ = dr.Close()
	_ = r.Close()
	return data, err
}

// eachChunk calls f for every position of a chunk grid in C order.
func eachChunk(grid []int, f func(idx []int) error) error {
	idx := make([]int, len(grid))
	n := ndarray.Shape(grid).NumElements()
	for i := 0; i < n; i++ {
		ndarray.Shape(grid).Unravel(i, idx)
		if err := f(idx); err != nil {
			return err
		}
	}
	return nil
}

// copyChunk copies the part of chunk idx that lies inside a, from the chunk
// into a when toArray is set and from a into the chunk otherwise.
func copyChunk(a *ndarray.Array, chunk []float32, chunks []int, idx []int, toArray bool) {
	rank := a.Rank()
	origin := make([]int, rank)
	extent := make([]int, rank)
	for d := range origin {
		origin[d] = idx[d] * chunks[d]
		extent[d] = min(chunks[d], a.Dim(d)-origin[d])
	}
	arrStride := a.Strides()
	chunkStride := ndarray.Shape(chunks).ComputeStrides()
	data := a.Data()

	last := rank - 1
	rows := ndarray.Shape(extent[:last]).NumElements()
	pos := make([]int, last)
	for row := 0; row < rows; row++ {
		ndarray.Shape(extent[:last]).Unravel(row, pos)
		ao, co := origin[last], 0
		for d := 0; d < last; d++ {
			ao += (origin[d] + pos[d]) * arrStride[d]
			co += pos[d] * chunkStride[d]
		}
		if toArray {
			copy(data[ao:ao+extent[last]], chunk[co:co+extent[last]])
		} else {
			copy(chunk[co:co+extent[last]], data[ao:ao+extent[last]])
		}
	}
}
