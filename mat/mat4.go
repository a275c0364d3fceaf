package mat

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Mat4 is a column-major 4x4 homogeneous matrix.
// Element (row, col) is stored at index 4*col+row.
type Mat4 [16]float32

// Identity returns the 4x4 identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at the given row and column.
func (m Mat4) At(row, col int) float32 {
	return m[4*col+row]
}

func (m Mat4) Add(a Mat4) Mat4 {
	var out Mat4
	for i := range m {
		out[i] = m[i] + a[i]
	}
	return out
}

func (m Mat4) Sub(a Mat4) Mat4 {
	var out Mat4
	for i := range m {
		out[i] = m[i] - a[i]
	}
	return out
}

func (m Mat4) Mul(a Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[4*k+i] * a[4*j+k]
			}
			out[4*j+i] = sum
		}
	}
	return out
}

// MulAffine multiplies two affine matrices.
// The bottom row of both operands is assumed to be (0, 0, 0, 1).
func (m Mat4) MulAffine(a Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			sum := m[4*0+i]*a[4*j+0] + m[4*1+i]*a[4*j+1] + m[4*2+i]*a[4*j+2]
			if j == 3 {
				sum += m[4*3+i]
			}
			out[4*j+i] = sum
		}
	}
	out[15] = 1
	return out
}

// InvAffine returns the inverse of an affine matrix.
func (m Mat4) InvAffine() Mat4 {
	a, b, c := float64(m[0]), float64(m[4]), float64(m[8])
	d, e, f := float64(m[1]), float64(m[5]), float64(m[9])
	g, h, k := float64(m[2]), float64(m[6]), float64(m[10])

	det := a*(e*k-f*h) - b*(d*k-f*g) + c*(d*h-e*g)
	if det == 0 {
		return Mat4{}
	}
	inv := 1 / det
	r := [9]float64{
		(e*k - f*h) * inv, -(b*k - c*h) * inv, (b*f - c*e) * inv,
		-(d*k - f*g) * inv, (a*k - c*g) * inv, -(a*f - c*d) * inv,
		(d*h - e*g) * inv, -(a*h - b*g) * inv, (a*e - b*d) * inv,
	}
	tx, ty, tz := float64(m[12]), float64(m[13]), float64(m[14])

	var out Mat4
	for row := 0; row < 3; row++ {
		out[4*0+row] = float32(r[3*row+0])
		out[4*1+row] = float32(r[3*row+1])
		out[4*2+row] = float32(r[3*row+2])
		out[4*3+row] = float32(-(r[3*row+0]*tx + r[3*row+1]*ty + r[3*row+2]*tz))
	}
	out[15] = 1
	return out
}

// FrobeniusNorm returns the square root of the sum of squared elements.
func (m Mat4) FrobeniusNorm() float64 {
	var sum float64
	for _, v := range m {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Equal reports whether all elements differ by at most tol.
func (m Mat4) Equal(a Mat4, tol float32) bool {
	for i := range m {
		d := m[i] - a[i]
		if d < -tol || tol < d {
			return false
		}
	}
	return true
}

// Translation returns the translation part of an affine matrix.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Rotation returns the upper-left 3x3 block in row-major order.
func (m Mat4) Rotation() [9]float64 {
	return [9]float64{
		float64(m[0]), float64(m[4]), float64(m[8]),
		float64(m[1]), float64(m[5]), float64(m[9]),
		float64(m[2]), float64(m[6]), float64(m[10]),
	}
}

// Rigid builds an affine matrix from a row-major 3x3 rotation and a translation.
func Rigid(r [9]float64, t [3]float64) Mat4 {
	return Mat4{
		float32(r[0]), float32(r[3]), float32(r[6]), 0,
		float32(r[1]), float32(r[4]), float32(r[7]), 0,
		float32(r[2]), float32(r[5]), float32(r[8]), 0,
		float32(t[0]), float32(t[1]), float32(t[2]), 1,
	}
}

// FromQuat builds a rigid transform from a rotation quaternion and a translation.
// The quaternion is normalized before use.
func FromQuat(q quat.Number, t Vec3) Mat4 {
	return Rigid(QuatRotation(q), [3]float64{float64(t[0]), float64(t[1]), float64(t[2])})
}

// QuatRotation returns the row-major rotation matrix of q.
func QuatRotation(q quat.Number) [9]float64 {
	n := quat.Abs(q)
	if n == 0 {
		return [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}
	q = quat.Scale(1/n, q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}
}

// Quat returns the unit quaternion of the rotation part of m.
func (m Mat4) Quat() quat.Number {
	r := m.Rotation()
	tr := r[0] + r[4] + r[8]
	var q quat.Number
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: 0.25 * s, Imag: (r[7] - r[5]) / s, Jmag: (r[2] - r[6]) / s, Kmag: (r[3] - r[1]) / s}
	case r[0] > r[4] && r[0] > r[8]:
		s := math.Sqrt(1+r[0]-r[4]-r[8]) * 2
		q = quat.Number{Real: (r[7] - r[5]) / s, Imag: 0.25 * s, Jmag: (r[1] + r[3]) / s, Kmag: (r[2] + r[6]) / s}
	case r[4] > r[8]:
		s := math.Sqrt(1+r[4]-r[0]-r[8]) * 2
		q = quat.Number{Real: (r[2] - r[6]) / s, Imag: (r[1] + r[3]) / s, Jmag: 0.25 * s, Kmag: (r[5] + r[7]) / s}
	default:
		s := math.Sqrt(1+r[8]-r[0]-r[4]) * 2
		q = quat.Number{Real: (r[3] - r[1]) / s, Imag: (r[2] + r[6]) / s, Jmag: (r[5] + r[7]) / s, Kmag: 0.25 * s}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q
}
