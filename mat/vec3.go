package mat

import (
	"math"
)

type Vec3 [3]float32

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

func (v Vec3) NormSq() float32 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

func (v Vec3) Norm() float32 {
	return float32(math.Sqrt(float64(v.NormSq())))
}

func (v Vec3) Normalized() Vec3 {
	return v.Mul(1.0 / v.Norm())
}

func (v Vec3) Mul(a float32) Vec3 {
	return Vec3{v[0] * a, v[1] * a, v[2] * a}
}

func (v Vec3) ElementMul(a Vec3) Vec3 {
	return Vec3{v[0] * a[0], v[1] * a[1], v[2] * a[2]}
}

func (v Vec3) Sub(a Vec3) Vec3 {
	return Vec3{v[0] - a[0], v[1] - a[1], v[2] - a[2]}
}

func (v Vec3) Add(a Vec3) Vec3 {
	return Vec3{v[0] + a[0], v[1] + a[1], v[2] + a[2]}
}

func (v Vec3) Dot(a Vec3) float32 {
	return v[0]*a[0] + v[1]*a[1] + v[2]*a[2]
}

func (v Vec3) Cross(a Vec3) Vec3 {
	return Vec3{
		v[1]*a[2] - v[2]*a[1],
		v[2]*a[0] - v[0]*a[2],
		v[0]*a[1] - v[1]*a[0],
	}
}

// DistSq returns the squared Euclidean distance between v and a.
func (v Vec3) DistSq(a Vec3) float32 {
	return v.Sub(a).NormSq()
}

// Equal reports whether v and a are equal within 1e-3 per element.
func (v Vec3) Equal(a Vec3) bool {
	const tol = 1e-3
	for i := range v {
		d := v[i] - a[i]
		if d < -tol || tol < d {
			return false
		}
	}
	return true
}

// IsFinite reports whether no element is NaN or Inf.
func (v Vec3) IsFinite() bool {
	for _, e := range v {
		f := float64(e)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func (v Vec3) Float64() [3]float64 {
	return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
}

func (m Mat4) TransformAffine(a Vec3) Vec3 {
	var out Vec3
	out[0] = m[4*0+0]*a[0] + m[4*1+0]*a[1] + m[4*2+0]*a[2] + m[4*3+0]
	out[1] = m[4*0+1]*a[0] + m[4*1+1]*a[1] + m[4*2+1]*a[2] + m[4*3+1]
	out[2] = m[4*0+2]*a[0] + m[4*1+2]*a[1] + m[4*2+2]*a[2] + m[4*3+2]
	return out
}

// Transform applies m to a as a homogeneous point, including the projective division.
func (m Mat4) Transform(a Vec3) Vec3 {
	w := m[4*0+3]*a[0] + m[4*1+3]*a[1] + m[4*2+3]*a[2] + m[4*3+3]
	out := m.TransformAffine(a)
	if w != 1 && w != 0 {
		out = out.Mul(1 / w)
	}
	return out
}
