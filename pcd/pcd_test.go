package pcd

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsense/pcalign/mat"
)

func TestIsValid(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	for name, tt := range map[string]struct {
		p     mat.Vec3
		valid bool
	}{
		"Finite": {p: mat.Vec3{1, 2, 3}, valid: true},
		"NaN":    {p: mat.Vec3{1, nan, 3}},
		"Inf":    {p: mat.Vec3{1, 2, inf}},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValid[mat.Vec3](Vec3Representation{}, tt.p))
		})
	}

	assert.False(t, IsValid[r3.Vector](R3Representation{}, r3.Vector{X: math.NaN()}))
	assert.True(t, IsValid[orb.Point](OrbRepresentation{}, orb.Point{1, 2}))
}

func TestRepresentation(t *testing.T) {
	t.Run("R3", func(t *testing.T) {
		rep := R3Representation{}
		got := Coords[r3.Vector](rep, r3.Vector{X: 1, Y: 2, Z: 3}, nil)
		assert.Equal(t, []float32{1, 2, 3}, got)
	})
	t.Run("Orb", func(t *testing.T) {
		rep := OrbRepresentation{}
		assert.Equal(t, 2, rep.Dim())
		assert.Equal(t, float32(25), DistSq[orb.Point](rep, orb.Point{0, 0}, orb.Point{3, 4}))
	})
}

func TestCheckIndices(t *testing.T) {
	pc := NewPointCloud([]mat.Vec3{{}, {}, {}})

	require.NoError(t, pc.CheckIndices([]int{0, 2, 1}))
	assert.ErrorIs(t, pc.CheckIndices([]int{0, 3}), ErrIndexOutOfRange)
	assert.ErrorIs(t, pc.CheckIndices([]int{-1}), ErrIndexOutOfRange)
}

func TestIndiceRandomAccessor(t *testing.T) {
	pc := NewPointCloud([]mat.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}})

	ra := NewIndiceRandomAccessor[mat.Vec3](pc, []int{3, 1})
	if diff := cmp.Diff([]mat.Vec3{{3, 0, 0}, {1, 0, 0}}, Collect(ra)); diff != "" {
		t.Errorf("Unexpected points (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, NewIndiceRandomAccessor[mat.Vec3](pc, nil).Len())
}

func TestTransformPointCloud(t *testing.T) {
	nan := float32(math.NaN())
	pc := NewPointCloud([]mat.Vec3{{1, 0, 0}, {nan, 0, 0}})

	out := TransformPointCloud(pc, mat.Translate(0, 1, 0))
	require.Equal(t, 2, out.Len())
	assert.True(t, out.Points[0].Equal(mat.Vec3{1, 1, 0}))
	assert.False(t, out.Points[1].IsFinite())
	assert.Equal(t, mat.Vec3{1, 0, 0}, pc.Points[0], "input must not be modified")
}

func TestRemoveInvalid(t *testing.T) {
	nan := float32(math.NaN())
	pc := &PointCloud[mat.Vec3]{
		Points: []mat.Vec3{{0, 0, 0}, {nan, 0, 0}, {1, 1, 1}, {2, 2, 2}},
		Width:  2,
		Height: 2,
	}

	out, index := RemoveInvalid[mat.Vec3](Vec3Representation{}, pc)
	assert.Equal(t, []int{0, 2, 3}, index)
	assert.Equal(t, 3, out.Width)
	assert.Equal(t, 1, out.Height)
	assert.True(t, out.IsDense)
	assert.False(t, out.IsOrganized())
	assert.True(t, pc.IsOrganized())
}
