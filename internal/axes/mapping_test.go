package axes

import (
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tiled/internal/ndarray"
)

func TestParse(t *testing.T) {
	got, err := Parse("SYXC")
	require.NoError(t, err)
	assert.Equal(t, []Axis{Time, Y, X, Channel}, got)
	assert.Equal(t, "TYXC", String(got))

	got, err = Parse("xyz")
	require.NoError(t, err)
	assert.Equal(t, []Axis{X, Y, Z}, got)

	_, err = Parse("XYX")
	assert.Error(t, err)
	_, err = Parse("XQ")
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	d, err := Default(4)
	require.NoError(t, err)
	assert.Equal(t, Default2D, d)

	d, err = Default(5)
	require.NoError(t, err)
	assert.Equal(t, Default3D, d)

	_, err = Default(7)
	assert.Error(t, err)
}

func TestMap2DNetworkStackInput(t *testing.T) {
	// Z of the stack takes over the unused time slot of a 2-D network.
	m, err := Map(MustParse("XYZ"), Declared{InputAxes: Default2D, OutputAxes: Default2D})
	require.NoError(t, err)

	assert.Equal(t, MustParse("ZYXC"), m.Input.NodeAxes())
	assert.Equal(t, MustParse("XYZC"), m.Input.ArrayAxes())
	assert.Equal(t, []int{2, 1, 0, 3}, m.Input.Indices())
	assert.Equal(t, 1, m.Input.Synthesized())

	assert.Equal(t, None, m.RankChange())
	assert.Equal(t, Unknown, m.Dropped())
	assert.Equal(t, MustParse("ZYXC"), m.Output.NodeAxes())
	assert.Equal(t, []int{2, 1, 0, 3}, m.Output.Indices())
	assert.Equal(t, MustParse("XYZ"), m.OutputAxes())
}

func TestMap3DTo2DNetwork(t *testing.T) {
	m, err := Map(MustParse("XYZ"), Declared{InputAxes: Default3D, OutputAxes: Default2D})
	require.NoError(t, err)

	assert.Equal(t, MustParse("TZYXC"), m.Input.NodeAxes())
	assert.Equal(t, []int{3, 2, 1, 0, 4}, m.Input.Indices())
	assert.Equal(t, 2, m.Input.Synthesized())

	assert.Equal(t, Reduce, m.RankChange())
	assert.Equal(t, Z, m.Dropped())
	assert.Equal(t, MustParse("TYXC"), m.Output.NodeAxes())
	assert.Equal(t, []int{2, 1, Absent, 0, 3}, m.Output.Indices())
	assert.Equal(t, MustParse("XY"), m.OutputAxes())

	d, ok := m.OutputDim(1)
	assert.True(t, ok)
	assert.Equal(t, 1, d)
	_, ok = m.OutputDim(2)
	assert.False(t, ok)
}

func TestMap3DNetwork(t *testing.T) {
	m, err := Map(MustParse("XYZ"), Declared{InputAxes: Default3D, OutputAxes: Default3D})
	require.NoError(t, err)
	assert.Equal(t, MustParse("TZYXC"), m.Input.NodeAxes())
	assert.Equal(t, MustParse("TZYXC"), m.Output.NodeAxes())
	assert.Equal(t, None, m.RankChange())
}

func TestMapSynthesizesMissingAxes(t *testing.T) {
	m, err := Map(MustParse("XY"), Declared{InputRank: 4})
	require.NoError(t, err)

	indices := m.Input.Indices()
	require.Len(t, indices, 4)
	assert.Equal(t, 2, indices[0], "X")
	assert.Equal(t, 1, indices[1], "Y")
	assert.Equal(t, 2, m.Input.Synthesized())
	assert.Equal(t, 2, m.ArrayRank())
	assert.Equal(t, MustParse("XY"), m.InputAxes())
}

func TestMapReducePrefersTime(t *testing.T) {
	m, err := Map(MustParse("XYZT"), Declared{InputAxes: Default3D, OutputRank: 4})
	require.NoError(t, err)

	assert.Equal(t, Reduce, m.RankChange())
	assert.Equal(t, Time, m.Dropped())
	assert.Equal(t, MustParse("ZYXC"), m.Output.NodeAxes())
	assert.Equal(t, MustParse("XYZ"), m.OutputAxes())

	d, ok := m.OutputDim(2)
	assert.True(t, ok)
	assert.Equal(t, 2, d)
	_, ok = m.OutputDim(3)
	assert.False(t, ok)
}

func TestMapErrors(t *testing.T) {
	tests := []struct {
		name   string
		axes   string
		decl   Declared
		target error
	}{
		{"no slot", "XYZC", Declared{InputAxes: MustParse("YXC")}, ErrUnmappableAxis},
		{"time slot taken", "XYZT", Declared{InputAxes: Default2D}, ErrUnmappableAxis},
		{"conflicting output", "XY", Declared{InputAxes: Default2D, OutputAxes: MustParse("TZXC")}, ErrUnmappableAxis},
		{"rank grows", "XY", Declared{InputRank: 4, OutputRank: 5}, ErrUnsupportedRankChange},
		{"rank drops by two", "XYZ", Declared{InputRank: 5, OutputRank: 3}, ErrUnsupportedRankChange},
		{"dropped axis missing", "XY", Declared{InputRank: 4, OutputRank: 3}, ErrUnsupportedRankChange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Map(MustParse(tt.axes), tt.decl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	_, err := Map(MustParse("XY"), Declared{})
	assert.Error(t, err)
	_, err = Map(MustParse("XY"), Declared{InputAxes: Default2D, InputRank: 5})
	assert.Error(t, err)
}

func TestInputIndicesArePermutation(t *testing.T) {
	cases := []struct {
		axes string
		decl Declared
	}{
		{"XY", Declared{InputRank: 4}},
		{"XYZ", Declared{InputAxes: Default2D}},
		{"XYZ", Declared{InputAxes: Default3D}},
		{"CXY", Declared{InputRank: 3}},
		{"XYZTC", Declared{InputRank: 5}},
	}
	for _, c := range cases {
		m, err := Map(MustParse(c.axes), c.decl)
		require.NoError(t, err, c.axes)
		idx := m.Input.Indices()
		sort.Ints(idx)
		for i, j := range idx {
			assert.Equal(t, i, j, "%s: %v", c.axes, m.Input)
		}
		assert.Equal(t, len(m.Input.NodeAxes()), len(idx))
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	a, err := ndarray.New(ndarray.Shape{5, 3})
	require.NoError(t, err)
	for i := range a.Data() {
		a.Data()[i] = float32(i)
	}

	m, err := Map(MustParse("XY"), Declared{InputRank: 4})
	require.NoError(t, err)

	tensor, err := m.Input.ToLayout(a)
	require.NoError(t, err)
	assert.Equal(t, ndarray.Shape{1, 3, 5, 1}, tensor.Shape())
	assert.Equal(t, a.At(4, 1), tensor.At(0, 1, 4, 0))

	back, labels, err := m.Output.FromLayout(tensor)
	require.NoError(t, err)
	assert.Equal(t, a.Shape(), back.Shape())
	assert.Equal(t, a.Data(), back.Data())
	assert.Equal(t, MustParse("XY"), labels)

	_, err = m.Input.ToLayout(tensor)
	assert.True(t, errors.Is(err, ndarray.ErrShapeMismatch))
}

func TestFromLayoutKeepsGrownAxes(t *testing.T) {
	m, err := Map(MustParse("XY"), Declared{InputRank: 4})
	require.NoError(t, err)

	tensor := ndarray.Zeros(ndarray.Shape{1, 3, 5, 2})
	back, labels, err := m.Output.FromLayout(tensor)
	require.NoError(t, err)
	assert.Equal(t, ndarray.Shape{5, 3, 2}, back.Shape())
	assert.Equal(t, MustParse("XYC"), labels)
}

func TestFromLayoutReduced(t *testing.T) {
	m, err := Map(MustParse("XYZ"), Declared{InputAxes: Default3D, OutputAxes: Default2D})
	require.NoError(t, err)

	in := ndarray.Zeros(ndarray.Shape{4, 3, 2})
	tensor, err := m.Input.ToLayout(in)
	require.NoError(t, err)
	assert.Equal(t, ndarray.Shape{1, 2, 3, 4, 1}, tensor.Shape())

	out := ndarray.Zeros(ndarray.Shape{1, 3, 4, 1})
	out.Set(7, 0, 2, 1, 0)
	back, labels, err := m.Output.FromLayout(out)
	require.NoError(t, err)
	assert.Equal(t, ndarray.Shape{4, 3}, back.Shape())
	assert.Equal(t, MustParse("XY"), labels)
	assert.Equal(t, float32(7), back.At(1, 2))
}
