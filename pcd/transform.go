package pcd

import (
	"github.com/seqsense/pcalign/mat"
)

// TransformPointCloud returns a copy of pc with every point transformed by m.
// Non-finite points are copied unchanged.
func TransformPointCloud(pc *PointCloud[mat.Vec3], m mat.Mat4) *PointCloud[mat.Vec3] {
	out := *pc
	out.Points = make([]mat.Vec3, len(pc.Points))
	for i, p := range pc.Points {
		if !p.IsFinite() {
			out.Points[i] = p
			continue
		}
		out.Points[i] = m.TransformAffine(p)
	}
	return &out
}

// RemoveInvalid returns an unorganized copy of pc without non-finite points,
// together with the original index of every kept point.
func RemoveInvalid[P any](rep Representation[P], pc *PointCloud[P]) (*PointCloud[P], []int) {
	out := *pc
	out.Points = make([]P, 0, len(pc.Points))
	index := make([]int, 0, len(pc.Points))
	for i, p := range pc.Points {
		if !IsValid(rep, p) {
			continue
		}
		out.Points = append(out.Points, p)
		index = append(index, i)
	}
	if len(out.Points) != len(pc.Points) {
		out.Width = len(out.Points)
		out.Height = 1
	}
	out.IsDense = true
	return &out, index
}
