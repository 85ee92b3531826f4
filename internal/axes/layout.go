package axes

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/ndarray"
)

// ToLayout converts an array in array-axis order into the node's tensor
// layout: synthesized axes are appended as size-1 dimensions and the result
// is permuted by Indices.
func (m NodeMapping) ToLayout(a *ndarray.Array) (*ndarray.Array, error) {
	arrayRank := len(m.arrayAxes) - m.synthesized
	if a.Rank() != arrayRank {
		return nil, errors.Wrapf(ndarray.ErrShapeMismatch,
			"to layout: %dD array for %d array axes %s", a.Rank(), arrayRank, String(m.arrayAxes[:arrayRank]))
	}
	b := a
	for i := 0; i < m.synthesized; i++ {
		var err error
		if b, err = b.Unsqueeze(b.Rank()); err != nil {
			return nil, err
		}
	}
	perm := make([]int, len(m.nodeAxes))
	for i, j := range m.indices {
		if j == Absent {
			return nil, errors.Errorf("to layout: axis %s absent from %s", m.arrayAxes[i], String(m.nodeAxes))
		}
		perm[j] = i
	}
	return b.Permute(perm)
}

// FromLayout converts a tensor in the node's layout back to array-axis order.
// Synthesized axes of size 1 are squeezed; the axes of the result are
// returned alongside it.
func (m NodeMapping) FromLayout(t *ndarray.Array) (*ndarray.Array, []Axis, error) {
	if t.Rank() != len(m.nodeAxes) {
		return nil, nil, errors.Wrapf(ndarray.ErrShapeMismatch,
			"from layout: %dD tensor for layout %s", t.Rank(), String(m.nodeAxes))
	}
	arrayRank := len(m.arrayAxes) - m.synthesized
	perm := make([]int, 0, len(m.nodeAxes))
	labels := make([]Axis, 0, len(m.nodeAxes))
	synth := make([]bool, 0, len(m.nodeAxes))
	for i, j := range m.indices {
		if j == Absent {
			continue
		}
		perm = append(perm, j)
		labels = append(labels, m.arrayAxes[i])
		synth = append(synth, i >= arrayRank)
	}
	out, err := t.Permute(perm)
	if err != nil {
		return nil, nil, err
	}
	for k := len(labels) - 1; k >= 0; k-- {
		if !synth[k] || out.Dim(k) != 1 {
			continue
		}
		if out, err = out.Squeeze(k); err != nil {
			return nil, nil, err
		}
		labels = append(labels[:k], labels[k+1:]...)
	}
	return out, labels, nil
}
