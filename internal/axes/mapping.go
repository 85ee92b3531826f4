package axes

import (
	"fmt"

	"github.com/pkg/errors"
)

// Mapping errors.
var (
	// ErrUnmappableAxis is returned when an array axis has no place in the
	// transform's declared layout, or declared output axes conflict with the
	// input axes.
	ErrUnmappableAxis = errors.New("unmappable axis")

	// ErrUnsupportedRankChange is returned for transforms whose output rank is
	// neither equal to nor one less than their input rank.
	ErrUnsupportedRankChange = errors.New("unsupported rank change")
)

// Absent marks an array axis that has no position in a tensor layout.
const Absent = -1

// RankChange describes how a transform changes the rank of its input.
type RankChange int

// Rank changes.
const (
	None RankChange = iota
	Reduce
)

// String returns the rank change name.
func (r RankChange) String() string {
	if r == Reduce {
		return "reduce"
	}
	return "none"
}

// Declared is what a transform states about its tensor layout.
// Axes are positional, slowest varying first. A transform that declares only
// a rank gets the Default order for it.
type Declared struct {
	InputAxes  []Axis
	OutputAxes []Axis
	InputRank  int
	OutputRank int
}

func (d Declared) inputNodeAxes() ([]Axis, error) {
	if len(d.InputAxes) == 0 {
		if d.InputRank == 0 {
			return nil, errors.New("transform declares neither input axes nor input rank")
		}
		return Default(d.InputRank)
	}
	if err := Validate(d.InputAxes); err != nil {
		return nil, errors.WithMessage(err, "transform input axes")
	}
	if d.InputRank != 0 && d.InputRank != len(d.InputAxes) {
		return nil, errors.Errorf("transform declares input rank %d but %d input axes", d.InputRank, len(d.InputAxes))
	}
	return clone(d.InputAxes), nil
}

func (d Declared) outputRank(inRank int) (int, error) {
	switch {
	case len(d.OutputAxes) > 0:
		if err := Validate(d.OutputAxes); err != nil {
			return 0, errors.WithMessage(err, "transform output axes")
		}
		if d.OutputRank != 0 && d.OutputRank != len(d.OutputAxes) {
			return 0, errors.Errorf("transform declares output rank %d but %d output axes", d.OutputRank, len(d.OutputAxes))
		}
		return len(d.OutputAxes), nil
	case d.OutputRank != 0:
		return d.OutputRank, nil
	default:
		return inRank, nil
	}
}

// NodeMapping relates the axes of an array to one tensor node of a transform.
//
// ArrayAxes lists the array's own axes in array order followed by any
// synthesized axes (size-1 axes the transform expects but the array lacks).
// Indices[i] is the tensor position of ArrayAxes[i], or Absent.
type NodeMapping struct {
	nodeAxes    []Axis
	arrayAxes   []Axis
	indices     []int
	synthesized int
}

// NodeAxes returns the semantic axis of every tensor dimension.
func (m NodeMapping) NodeAxes() []Axis { return clone(m.nodeAxes) }

// ArrayAxes returns the array axes followed by the synthesized axes.
func (m NodeMapping) ArrayAxes() []Axis { return clone(m.arrayAxes) }

// Indices returns the tensor position of each entry of ArrayAxes.
func (m NodeMapping) Indices() []int { return append([]int(nil), m.indices...) }

// Synthesized returns how many trailing ArrayAxes entries were synthesized.
func (m NodeMapping) Synthesized() int { return m.synthesized }

// Rank returns the tensor rank of the node.
func (m NodeMapping) Rank() int { return len(m.nodeAxes) }

// Index returns the tensor position of array axis a, or Absent.
func (m NodeMapping) Index(a Axis) int {
	i := Index(m.arrayAxes, a)
	if i < 0 {
		return Absent
	}
	return m.indices[i]
}

// String formats the mapping as "XYZC->ZYXC [2 1 0 3]".
func (m NodeMapping) String() string {
	return fmt.Sprintf("%s->%s %v", String(m.arrayAxes), String(m.nodeAxes), m.indices)
}

// Mapping is the complete axis mapping of one array through one transform.
// It is built once by Map and never modified.
type Mapping struct {
	Input  NodeMapping
	Output NodeMapping

	change  RankChange
	dropped Axis
}

// RankChange reports whether the transform removes an axis.
func (m Mapping) RankChange() RankChange { return m.change }

// Dropped returns the axis removed by a reducing transform, or Unknown.
func (m Mapping) Dropped() Axis { return m.dropped }

// ArrayRank returns the rank of the mapped array.
func (m Mapping) ArrayRank() int {
	return len(m.Input.arrayAxes) - m.Input.synthesized
}

// InputAxes returns the axes of the mapped array.
func (m Mapping) InputAxes() []Axis {
	return clone(m.Input.arrayAxes[:m.ArrayRank()])
}

// OutputAxes returns the axes of the result array: the input axes without the
// dropped axis. Synthesized axes that the transform grows beyond size 1 are
// only known after it runs and are reported by FromLayout.
func (m Mapping) OutputAxes() []Axis {
	out := make([]Axis, 0, m.ArrayRank())
	for _, a := range m.Input.arrayAxes[:m.ArrayRank()] {
		if m.change == Reduce && a == m.dropped {
			continue
		}
		out = append(out, a)
	}
	return out
}

// OutputDim returns the result dimension holding input dimension d.
// ok is false when d is the dropped axis.
func (m Mapping) OutputDim(d int) (int, bool) {
	if m.Output.indices[d] == Absent {
		return Absent, false
	}
	shift := 0
	for i := 0; i < d; i++ {
		if m.Output.indices[i] == Absent {
			shift++
		}
	}
	return d - shift, true
}

// String formats both node mappings.
func (m Mapping) String() string {
	s := fmt.Sprintf("in %v, out %v", m.Input, m.Output)
	if m.change == Reduce {
		s += fmt.Sprintf(", drops %s", m.dropped)
	}
	return s
}

// Map builds the mapping of an array with the given axes onto a transform.
//
// Array axes are placed at the position of the same axis in the transform's
// input layout. Layout axes the array lacks are synthesized as size-1 axes.
// An array axis the layout does not declare may take over a time slot the
// array does not use, which relabels that slot; any other undeclared axis is
// ErrUnmappableAxis.
//
// A transform whose output rank is one less than its input rank drops the
// time axis if the array has one, otherwise Z.
func Map(arrayAxes []Axis, decl Declared) (Mapping, error) {
	if err := Validate(arrayAxes); err != nil {
		return Mapping{}, errors.Wrapf(ErrUnmappableAxis, "array axes %s: %v", String(arrayAxes), err)
	}
	node, err := decl.inputNodeAxes()
	if err != nil {
		return Mapping{}, err
	}
	in, relabel, err := mapInput(arrayAxes, node)
	if err != nil {
		return Mapping{}, err
	}

	outRank, err := decl.outputRank(len(node))
	if err != nil {
		return Mapping{}, err
	}
	m := Mapping{Input: in, dropped: Unknown}
	outNode := clone(in.nodeAxes)
	switch outRank - len(node) {
	case 0:
		m.change = None
	case -1:
		m.change = Reduce
		m.dropped = Z
		if Contains(arrayAxes, Time) {
			m.dropped = Time
		}
		j := Index(outNode, m.dropped)
		if j < 0 {
			return Mapping{}, errors.Wrapf(ErrUnsupportedRankChange,
				"rank %d -> %d drops %s, which transform axes %s lack", len(node), outRank, m.dropped, String(in.nodeAxes))
		}
		outNode = append(outNode[:j], outNode[j+1:]...)
	default:
		return Mapping{}, errors.Wrapf(ErrUnsupportedRankChange, "rank %d -> %d", len(node), outRank)
	}

	if len(decl.OutputAxes) > 0 {
		declared := make([]Axis, len(decl.OutputAxes))
		for i, a := range decl.OutputAxes {
			if r, ok := relabel[a]; ok {
				a = r
			}
			declared[i] = a
		}
		if !sameSet(declared, outNode) {
			return Mapping{}, errors.Wrapf(ErrUnmappableAxis,
				"declared output axes %s do not match %s", String(declared), String(outNode))
		}
		outNode = declared
	}

	m.Output = NodeMapping{
		nodeAxes:    outNode,
		arrayAxes:   clone(in.arrayAxes),
		indices:     make([]int, len(in.arrayAxes)),
		synthesized: in.synthesized,
	}
	for i, a := range in.arrayAxes {
		m.Output.indices[i] = Index(outNode, a)
	}
	return m, nil
}

// mapInput places the array axes in the input layout. The returned map
// records slots relabelled by absorption, keyed by the declared axis.
func mapInput(arrayAxes, node []Axis) (NodeMapping, map[Axis]Axis, error) {
	nodeAxes := clone(node)
	indices := make([]int, len(arrayAxes), len(node))
	claimed := make([]bool, len(node))
	var undeclared []int
	for i, a := range arrayAxes {
		j := Index(nodeAxes, a)
		if j < 0 {
			undeclared = append(undeclared, i)
			continue
		}
		indices[i] = j
		claimed[j] = true
	}

	relabel := make(map[Axis]Axis)
	for _, i := range undeclared {
		slot := Index(nodeAxes, Time)
		if slot < 0 || claimed[slot] {
			return NodeMapping{}, nil, errors.Wrapf(ErrUnmappableAxis,
				"array axis %s has no slot in transform axes %s", arrayAxes[i], String(node))
		}
		nodeAxes[slot] = arrayAxes[i]
		relabel[Time] = arrayAxes[i]
		indices[i] = slot
		claimed[slot] = true
	}

	all := clone(arrayAxes)
	for j, a := range nodeAxes {
		if !claimed[j] {
			all = append(all, a)
			indices = append(indices, j)
		}
	}
	return NodeMapping{
		nodeAxes:    nodeAxes,
		arrayAxes:   all,
		indices:     indices,
		synthesized: len(all) - len(arrayAxes),
	}, relabel, nil
}

func sameSet(a, b []Axis) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !Contains(b, x) {
			return false
		}
	}
	return true
}
