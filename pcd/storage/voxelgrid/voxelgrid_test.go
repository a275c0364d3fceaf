package voxelgrid

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

func TestVoxelGrid(t *testing.T) {
	v := New(mat.Vec3{0.05, 0.05, 0.05}, [3]int{64, 64, 64}, mat.Vec3{2, 5, 10})

	points := []mat.Vec3{
		{-2, 0, 0},
		{2, 5, 10},
		{2.01, 5, 10},
		{2 + 1, 5 + 1, 10 + 1},
		{2 + 3.21, 5, 10},
		{1.99, 5, 10},
	}

	if v.Add(points[0], 0) {
		t.Error("Point out of the voxel grid should not be added")
	}
	if !v.Add(points[1], 1) {
		t.Error("Point in the voxel grid should be added")
	}
	if !v.Add(points[2], 2) {
		t.Error("Point in the voxel grid should be added")
	}
	if !v.Add(points[3], 3) {
		t.Error("Point in the voxel grid should be added")
	}
	if v.Add(points[4], 4) {
		t.Error("Point out of the voxel grid should not be added")
	}
	if v.Add(points[5], 5) {
		t.Error("Point just below the origin should not be added")
	}

	if ids := v.Get(points[0]); ids != nil {
		t.Error("Point out of the voxel grid should not be added")
	}
	if ids := v.Get(points[1]); !reflect.DeepEqual([]int{1, 2}, ids) {
		t.Error("Points in the voxel differs")
	}
	if ids := v.Get(points[2]); !reflect.DeepEqual([]int{1, 2}, ids) {
		t.Error("Points in the voxel differs")
	}
	if ids := v.Get(points[3]); !reflect.DeepEqual([]int{3}, ids) {
		t.Error("Points in the voxel differs")
	}
	if ids := v.Get(points[4]); ids != nil {
		t.Error("Point out of the voxel grid should not be added")
	}
	if n := v.Len(); n != 2 {
		t.Errorf("Expected 2 occupied voxels, got %d", n)
	}
}

func TestNewFromCloud(t *testing.T) {
	pc := pcd.NewPointCloud([]mat.Vec3{
		{0, 0, 0}, {0.05, 0.05, 0}, {1, 0, 0}, {1, 1, 1},
	})
	v, err := NewFromCloud(pc, mat.Vec3{0.1, 0.1, 0.1})
	require.NoError(t, err)

	assert.Equal(t, [3]int{11, 11, 11}, v.Size())
	assert.Equal(t, 3, v.Len())
	addrs := v.Addrs()
	require.Len(t, addrs, 3)
	assert.Equal(t, []int{0, 1}, v.GetByAddr(addrs[0]))

	_, err = NewFromCloud(pc, mat.Vec3{0.1, 0, 0.1})
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = NewFromCloud(pcd.NewPointCloud([]mat.Vec3{}), mat.Vec3{1, 1, 1})
	assert.ErrorIs(t, err, pcd.ErrEmptyCloud)
}
