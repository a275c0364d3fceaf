// Package voxelgrid buckets point indices into a regular grid of voxels.
package voxelgrid

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

var ErrInvalidResolution = errors.New("voxel resolution must be positive")

// VoxelGrid stores point indices per voxel.
// Only occupied voxels are allocated.
type VoxelGrid struct {
	voxel         map[int][]int
	size          [3]int
	origin        mat.Vec3
	resolution    mat.Vec3
	resolutionInv mat.Vec3
}

func New(resolution mat.Vec3, size [3]int, origin mat.Vec3) *VoxelGrid {
	return &VoxelGrid{
		voxel:      make(map[int][]int),
		size:       size,
		origin:     origin,
		resolution: resolution,
		resolutionInv: mat.Vec3{
			1 / resolution[0], 1 / resolution[1], 1 / resolution[2],
		},
	}
}

// NewFromCloud returns a grid covering the bounding box of ra
// holding every valid point of it.
func NewFromCloud(ra pcd.RandomAccessor[mat.Vec3], resolution mat.Vec3) (*VoxelGrid, error) {
	for _, r := range resolution {
		if !(r > 0) {
			return nil, errors.Wrapf(ErrInvalidResolution, "%v", resolution)
		}
	}
	min, max, err := pcd.MinMaxVec3(ra)
	if err != nil {
		return nil, err
	}
	var size [3]int
	for i := range size {
		size[i] = int((max[i]-min[i])/resolution[i]) + 1
	}
	v := New(resolution, size, min)
	for i := 0; i < ra.Len(); i++ {
		if p := ra.At(i); p.IsFinite() {
			v.Add(p, i)
		}
	}
	return v, nil
}

func (v *VoxelGrid) Add(p mat.Vec3, index int) bool {
	addr, ok := v.Addr(p)
	if !ok {
		return false
	}
	v.voxel[addr] = append(v.voxel[addr], index)
	return true
}

func (v *VoxelGrid) Get(p mat.Vec3) []int {
	addr, ok := v.Addr(p)
	if !ok {
		return nil
	}
	return v.voxel[addr]
}

func (v *VoxelGrid) GetByAddr(a int) []int {
	return v.voxel[a]
}

func (v *VoxelGrid) Addr(p mat.Vec3) (int, bool) {
	pos, ok := v.PosInt(p)
	if !ok {
		return 0, false
	}
	return v.AddrByPosInt(pos)
}

func (v *VoxelGrid) AddrByPosInt(p [3]int) (int, bool) {
	x, y, z := p[0], p[1], p[2]
	if x < 0 || y < 0 || z < 0 || x >= v.size[0] || y >= v.size[1] || z >= v.size[2] {
		return 0, false
	}
	return x + (y+z*v.size[1])*v.size[0], true
}

func (v *VoxelGrid) PosInt(p mat.Vec3) ([3]int, bool) {
	pos := p.Sub(v.origin).ElementMul(v.resolutionInv)
	// int() truncates toward zero
	if pos[0] < 0 || pos[1] < 0 || pos[2] < 0 {
		return [3]int{}, false
	}
	x, y, z := int(pos[0]), int(pos[1]), int(pos[2])
	if x >= v.size[0] || y >= v.size[1] || z >= v.size[2] {
		return [3]int{}, false
	}
	return [3]int{x, y, z}, true
}

// Addrs returns the addresses of the occupied voxels in ascending order.
func (v *VoxelGrid) Addrs() []int {
	addrs := make([]int, 0, len(v.voxel))
	for a := range v.voxel {
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)
	return addrs
}

// Len returns the number of occupied voxels.
func (v *VoxelGrid) Len() int {
	return len(v.voxel)
}

func (v *VoxelGrid) Size() [3]int {
	return v.size
}
