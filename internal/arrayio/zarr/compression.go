package zarr

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/qri-io/dataset/compression"
)

// Compressor is the compressor entry of .zarray. A nil *Compressor stores
// chunks uncompressed. Chunks are written at the codec's default level, so
// only the id is stored; other codec settings are ignored on read.
type Compressor struct {
	ID string `json:"id"`
}

// Supported compressor ids.
const (
	GZip = "gzip"
	ZStd = "zstd"
)

// format maps a zarr codec id to its compression format name.
func (c *Compressor) format() (string, error) {
	switch c.ID {
	case GZip:
		return "gzip", nil
	case ZStd:
		return "zst", nil
	default:
		return "", errors.Errorf("unsupported compressor %q", c.ID)
	}
}

// Compress encodes a chunk.
func (c *Compressor) Compress(raw []byte) ([]byte, error) {
	if c == nil {
		return raw, nil
	}
	format, err := c.format()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := compression.Compressor(format, &buf)
	if err != nil {
		return nil, errors.Wrapf(err, "%s compressor", c.ID)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, errors.Wrapf(err, "%s compress", c.ID)
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrapf(err, "%s compress", c.ID)
	}
	return buf.Bytes(), nil
}

// Decompressor wraps r to decode a chunk.
func (c *Compressor) Decompressor(r io.ReadCloser) (io.ReadCloser, error) {
	if c == nil {
		return r, nil
	}
	format, err := c.format()
	if err != nil {
		return nil, err
	}
	dr, err := compression.Decompressor(format, r)
	if err != nil {
		return nil, errors.Wrapf(err, "%s decompressor", c.ID)
	}
	return dr, nil
}
