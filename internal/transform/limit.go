package transform

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
)

// limited rejects tensors larger than a fixed element budget.
type limited struct {
	Transform
	maxElements int
}

// Limit wraps t so that Run fails with ErrResourceExhausted for inputs with
// more than maxElements elements. It stands in for an accelerator that runs
// out of memory on large tiles.
func Limit(t Transform, maxElements int) Transform {
	if maxElements <= 0 {
		return t
	}
	return &limited{Transform: t, maxElements: maxElements}
}

func (l *limited) Run(ctx context.Context, in *ndarray.Array, layout Layout) (*ndarray.Array, error) {
	if n := in.NumElements(); n > l.maxElements {
		return nil, errors.Wrapf(ErrResourceExhausted, "%s: tile of %d elements exceeds budget of %d",
			l.Signature().Name, n, l.maxElements)
	}
	return l.Transform.Run(ctx, in, layout)
}

func (l *limited) ConcurrencySafe() bool {
	return IsConcurrencySafe(l.Transform)
}
