package tiling

import (
	"log/slog"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/ndarray"
)

// Normalizer rescales the input before tiling and the result after
// reassembly. Both methods must return new arrays.
type Normalizer interface {
	Normalize(a *ndarray.Array) (*ndarray.Array, error)
	Denormalize(a *ndarray.Array) (*ndarray.Array, error)
}

// ProgressFunc is called after every finished tile.
type ProgressFunc func(done, total int)

type options struct {
	workers    int
	logger     *slog.Logger
	normalizer Normalizer
	progress   ProgressFunc
	fixed      []axes.Axis
}

// Option configures Predict and Run.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		workers: 1,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithWorkers runs up to n tiles at once when the transform is concurrency safe.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger for plan and tile events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNormalizer applies n to the whole input and its inverse to the result.
func WithNormalizer(n Normalizer) Option {
	return func(o *options) { o.normalizer = n }
}

// WithProgress reports finished tiles to f. Calls are serialized.
func WithProgress(f ProgressFunc) Option {
	return func(o *options) { o.progress = f }
}

// WithFixedAxes prevents the given axes from being chosen as split dimension.
func WithFixedAxes(ax ...axes.Axis) Option {
	return func(o *options) { o.fixed = append(o.fixed, ax...) }
}
