// Package dataset pairs an array with the semantic axes of its dimensions.
package dataset

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/ndarray"
)

// Dataset is an array whose dimension d carries axis Axes[d].
type Dataset struct {
	Data *ndarray.Array
	Axes []axes.Axis
}

// New validates data against its axes and returns the dataset.
func New(data *ndarray.Array, ax []axes.Axis) (Dataset, error) {
	d := Dataset{Data: data, Axes: ax}
	if err := d.Validate(); err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// Validate checks that there is one distinct axis per dimension.
func (d Dataset) Validate() error {
	if d.Data == nil {
		return errors.New("dataset has no data")
	}
	if len(d.Axes) != d.Data.Rank() {
		return errors.Wrapf(ndarray.ErrShapeMismatch, "%dD array with %d axes %s",
			d.Data.Rank(), len(d.Axes), axes.String(d.Axes))
	}
	return axes.Validate(d.Axes)
}

// String formats the dataset as "XY[512 512]".
func (d Dataset) String() string {
	if d.Data == nil {
		return axes.String(d.Axes) + "[]"
	}
	return axes.String(d.Axes) + d.Data.Shape().String()
}
