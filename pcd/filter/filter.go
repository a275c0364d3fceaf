// Package filter defines point cloud filters.
package filter

import (
	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

type Filter interface {
	Filter(*pcd.PointCloud[mat.Vec3]) (*pcd.PointCloud[mat.Vec3], error)
}
