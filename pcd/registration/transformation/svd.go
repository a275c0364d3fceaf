package transformation

import (
	gmat "gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

// SVD is the closed form least squares estimator based on the singular
// value decomposition of the cross covariance.
type SVD struct{}

func (SVD) MinCorrespondences() int { return 3 }

func (SVD) Kind() Kind { return KindLinear }

func (e SVD) Estimate(src, tgt pcd.RandomAccessor[mat.Vec3]) (mat.Mat4, error) {
	if err := checkInput(src, tgt, e.MinCorrespondences()); err != nil {
		return mat.Mat4{}, err
	}
	x, y := toDense(src), toDense(tgt)
	n, _ := x.Dims()

	muX, muY := mean(x), mean(y)
	xc := gmat.NewDense(n, 3, nil)
	yc := gmat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			xc.Set(i, j, x.At(i, j)-muX[j])
			yc.Set(i, j, y.At(i, j)-muY[j])
		}
	}

	cov := gmat.NewDense(3, 3, nil)
	cov.Mul(yc.T(), xc)

	var svd gmat.SVD
	if !svd.Factorize(cov, gmat.SVDFull) {
		return mat.Mat4{}, ErrDegenerate
	}
	var u, v gmat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	s := gmat.NewDiagDense(3, []float64{1, 1, 1})
	if gmat.Det(&u)*gmat.Det(&v) < 0 {
		s.SetDiag(2, -1)
	}
	r := gmat.NewDense(3, 3, nil)
	r.Product(&u, s, v.T())

	var rot [9]float64
	var t [3]float64
	for i := 0; i < 3; i++ {
		t[i] = muY[i]
		for j := 0; j < 3; j++ {
			rot[3*i+j] = r.At(i, j)
			t[i] -= r.At(i, j) * muX[j]
		}
	}
	return mat.Rigid(rot, t), nil
}

func toDense(ra pcd.RandomAccessor[mat.Vec3]) *gmat.Dense {
	n := ra.Len()
	data := make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		p := ra.At(i).Float64()
		data = append(data, p[:]...)
	}
	return gmat.NewDense(n, 3, data)
}

func mean(m *gmat.Dense) [3]float64 {
	n, _ := m.Dims()
	col := make([]float64, n)
	var mu [3]float64
	for j := 0; j < 3; j++ {
		gmat.Col(col, j, m)
		mu[j] = stat.Mean(col, nil)
	}
	return mu
}
