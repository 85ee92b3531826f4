// Package arrayio loads and saves arrays with their axes.
//
// Two formats are supported, chosen by file extension: single-tensor
// SafeTensors files (".safetensors") and zarr v2 directory stores (".zarr").
// Both keep the axis string of the array next to the data.
package arrayio

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/arrayio/zarr"
	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/dataset"
)

// Errors.
var (
	ErrUnknownFormat    = errors.New("unknown array format")
	ErrUnsupportedDType = errors.New("unsupported dtype")
	ErrHeaderTooLarge   = errors.New("header exceeds maximum size")
	ErrOutOfBounds      = errors.New("tensor extends beyond data section")
	ErrChecksumMismatch = errors.New("checksum mismatch: file may be corrupted")
)

// Format identifies an array file format.
type Format string

// Formats.
const (
	SafeTensors Format = "safetensors"
	Zarr        Format = "zarr"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimRight(path, `/\`))) {
	case ".safetensors":
		return SafeTensors, nil
	case ".zarr":
		return Zarr, nil
	default:
		return "", errors.Wrap(ErrUnknownFormat, path)
	}
}

// Options controls Save.
type Options struct {
	// Chunks of zarr output; nil uses the zarr default.
	Chunks []int
	// Compressor id of zarr output ("gzip", "zstd"), empty for none.
	Compressor string
}

// Load reads the array at path. The axes of the result are nil if the file
// does not record them.
func Load(path string) (dataset.Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return dataset.Dataset{}, err
	}
	switch format {
	case Zarr:
		return loadZarr(path)
	default:
		return ReadSafeTensors(path, "")
	}
}

// Save writes d to path in the format implied by its extension.
func Save(path string, d dataset.Dataset, opts Options) error {
	if err := d.Validate(); err != nil {
		return errors.WithMessage(err, "save")
	}
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	switch format {
	case Zarr:
		return saveZarr(path, d, opts)
	default:
		return WriteSafeTensors(path, DefaultTensorName, d)
	}
}

func loadZarr(path string) (dataset.Dataset, error) {
	s, err := zarr.NewLocalStore(path)
	if err != nil {
		return dataset.Dataset{}, err
	}
	a, attrs, err := zarr.Read(s, "")
	if err != nil {
		return dataset.Dataset{}, err
	}
	d := dataset.Dataset{Data: a}
	if v, ok := attrs[MetaAxes]; ok {
		str, ok := v.(string)
		if !ok {
			return dataset.Dataset{}, errors.Errorf("%s: axes attribute is %T, want string", path, v)
		}
		if d.Axes, err = axes.Parse(str); err != nil {
			return dataset.Dataset{}, errors.WithMessage(err, path)
		}
	}
	return d, nil
}

func saveZarr(path string, d dataset.Dataset, opts Options) error {
	s, err := zarr.NewLocalStore(path)
	if err != nil {
		return err
	}
	var c *zarr.Compressor
	if opts.Compressor != "" {
		c = &zarr.Compressor{ID: opts.Compressor}
	}
	var attrs zarr.Attributes
	if len(d.Axes) > 0 {
		attrs = zarr.Attributes{MetaAxes: axes.String(d.Axes)}
	}
	return zarr.Write(s, "", d.Data, zarr.WriteOptions{
		Chunks:     opts.Chunks,
		Compressor: c,
		Attributes: attrs,
	})
}
