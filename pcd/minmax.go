package pcd

import (
	"math"

	"github.com/seqsense/pcalign/mat"
)

// MinMaxVec3 returns the axis aligned bounding box of the valid points of ra.
func MinMaxVec3(ra RandomAccessor[mat.Vec3]) (mat.Vec3, mat.Vec3, error) {
	min := mat.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := mat.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	var n int
	for j := 0; j < ra.Len(); j++ {
		v := ra.At(j)
		if !v.IsFinite() {
			continue
		}
		n++
		for i := range v {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	if n == 0 {
		return mat.Vec3{}, mat.Vec3{}, ErrEmptyCloud
	}
	return min, max, nil
}
