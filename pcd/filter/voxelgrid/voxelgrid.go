// Package voxelgrid implements a downsampling filter replacing the points
// of every voxel by their centroid.
package voxelgrid

import (
	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/filter"
	storage "github.com/seqsense/pcalign/pcd/storage/voxelgrid"
)

type Options struct {
	LeafSize mat.Vec3
}

type voxelGrid struct {
	Options
}

func New(leafSize mat.Vec3) filter.Filter {
	vg := &voxelGrid{
		Options: Options{
			LeafSize: leafSize,
		},
	}
	return vg
}

// Filter returns an unorganized cloud holding one point per occupied voxel,
// ordered by voxel address. Invalid points are dropped.
func (f *voxelGrid) Filter(pc *pcd.PointCloud[mat.Vec3]) (*pcd.PointCloud[mat.Vec3], error) {
	vg, err := storage.NewFromCloud(pc, f.LeafSize)
	if err != nil {
		return nil, err
	}

	addrs := vg.Addrs()
	newPc := &pcd.PointCloud[mat.Vec3]{
		Points:            make([]mat.Vec3, 0, len(addrs)),
		Width:             len(addrs),
		Height:            1,
		IsDense:           true,
		SensorOrigin:      pc.SensorOrigin,
		SensorOrientation: pc.SensorOrientation,
	}
	for _, a := range addrs {
		ids := vg.GetByAddr(a)
		var sum mat.Vec3
		for _, i := range ids {
			sum = sum.Add(pc.Points[i])
		}
		newPc.Points = append(newPc.Points, sum.Mul(1.0/float32(len(ids))))
	}
	return newPc, nil
}
