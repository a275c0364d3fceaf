package transformation

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	gmat "gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

const (
	DefaultLMMaxIterations  = 50
	DefaultLMMaxEvaluations = 2000
	DefaultLMTolerance      = 1e-12

	lmInitialLambda = 1e-3
	lmMaxLambda     = 1e10

	lmMaxReweights      = 30
	lmReweightTolerance = 1e-10
)

// LM is a Levenberg-Marquardt estimator minimizing the sum of
// kernel weighted point distances.
// The parameters are the translation and the vector part of a unit quaternion.
type LM struct {
	Kernel         Kernel
	Sigma          float64
	MaxIterations  int
	MaxEvaluations int
	Tolerance      float64
}

func NewLM(kernel Kernel, sigma float64) *LM {
	return &LM{
		Kernel:         kernel,
		Sigma:          sigma,
		MaxIterations:  DefaultLMMaxIterations,
		MaxEvaluations: DefaultLMMaxEvaluations,
		Tolerance:      DefaultLMTolerance,
	}
}

func (*LM) MinCorrespondences() int { return 4 }

func (*LM) Kind() Kind { return KindNonLinear }

func paramQuat(x []float64) (quat.Number, bool) {
	v := x[3]*x[3] + x[4]*x[4] + x[5]*x[5]
	if v > 1 {
		return quat.Number{}, false
	}
	return quat.Number{Real: math.Sqrt(1 - v), Imag: x[3], Jmag: x[4], Kmag: x[5]}, true
}

type lmProblem struct {
	src, tgt [][3]float64
	kernel   Kernel
	sigma    float64
	// sqrtW holds the square roots of the frozen component weights.
	sqrtW [][3]float64
	evals int
}

func (p *lmProblem) diff(r [9]float64, x []float64, i int) [3]float64 {
	s, t := p.src[i], p.tgt[i]
	var d [3]float64
	for k := 0; k < 3; k++ {
		d[k] = r[3*k]*s[0] + r[3*k+1]*s[1] + r[3*k+2]*s[2] + x[k] - t[k]
	}
	return d
}

// reweight freezes the kernel weights at x.
func (p *lmProblem) reweight(x []float64) bool {
	q, ok := paramQuat(x)
	if !ok {
		return false
	}
	r := mat.QuatRotation(q)
	for i := range p.src {
		w := p.kernel.weights(p.diff(r, x, i), p.sigma)
		for k := range w {
			p.sqrtW[i][k] = math.Sqrt(w[k])
		}
	}
	return true
}

// residuals writes the weighted residual vectors of every pair into y.
func (p *lmProblem) residuals(y, x []float64) {
	p.evals++
	q, ok := paramQuat(x)
	if !ok {
		for i := range y {
			y[i] = math.Inf(1)
		}
		return
	}
	r := mat.QuatRotation(q)
	for i := range p.src {
		d := p.diff(r, x, i)
		w := p.sqrtW[i]
		y[3*i], y[3*i+1], y[3*i+2] = w[0]*d[0], w[1]*d[1], w[2]*d[2]
	}
}

// Estimate minimizes the kernel cost by reweighted least squares.
// Each pass solves the problem with weights frozen at the previous
// solution using damped Gauss-Newton steps.
func (e *LM) Estimate(src, tgt pcd.RandomAccessor[mat.Vec3]) (mat.Mat4, error) {
	if err := checkInput(src, tgt, e.MinCorrespondences()); err != nil {
		return mat.Mat4{}, err
	}
	n := src.Len()
	p := &lmProblem{
		src:    make([][3]float64, n),
		tgt:    make([][3]float64, n),
		kernel: e.Kernel,
		sigma:  e.Sigma,
		sqrtW:  make([][3]float64, n),
	}
	for i := 0; i < n; i++ {
		p.src[i] = src.At(i).Float64()
		p.tgt[i] = tgt.At(i).Float64()
	}

	x := make([]float64, 6)
	prev := make([]float64, 6)
	passes := 1
	if e.Kernel != KernelL2 {
		passes = lmMaxReweights
	}
	for pass := 0; pass < passes && p.evals < e.MaxEvaluations; pass++ {
		if !p.reweight(x) {
			break
		}
		copy(prev, x)
		e.solve(p, x)
		if floats.Distance(prev, x, math.Inf(1)) < lmReweightTolerance {
			break
		}
	}

	q, ok := paramQuat(x)
	if !ok || floats.HasNaN(x) {
		return mat.Mat4{}, errors.Wrap(ErrDegenerate, "nonlinear optimization failed")
	}
	return mat.FromQuat(q, mat.Vec3{float32(x[0]), float32(x[1]), float32(x[2])}), nil
}

// solve runs Levenberg-Marquardt on the weighted residuals from x in place.
func (e *LM) solve(p *lmProblem, x []float64) {
	n := len(p.src)
	y := make([]float64, 3*n)
	p.residuals(y, x)
	cost := floats.Dot(y, y)

	jac := gmat.NewDense(3*n, 6, nil)
	var jtj gmat.SymDense
	g := gmat.NewVecDense(6, nil)
	a := gmat.NewSymDense(6, nil)
	delta := gmat.NewVecDense(6, nil)
	xNew := make([]float64, 6)
	yNew := make([]float64, 3*n)
	lambda := lmInitialLambda

	for iter := 0; iter < e.MaxIterations && p.evals < e.MaxEvaluations; iter++ {
		fd.Jacobian(jac, p.residuals, x, &fd.JacobianSettings{
			Formula:     fd.Forward,
			OriginValue: y,
		})
		jtj.SymOuterK(1, jac.T())
		g.MulVec(jac.T(), gmat.NewVecDense(3*n, y))

		improved := false
		for lambda < lmMaxLambda && p.evals < e.MaxEvaluations {
			a.CopySym(&jtj)
			for i := 0; i < 6; i++ {
				d := jtj.At(i, i)
				if d == 0 {
					d = 1
				}
				a.SetSym(i, i, jtj.At(i, i)+lambda*d)
			}
			if err := delta.SolveVec(a, g); err != nil {
				lambda *= 10
				continue
			}
			for i := range x {
				xNew[i] = x[i] - delta.AtVec(i)
			}
			p.residuals(yNew, xNew)
			costNew := floats.Dot(yNew, yNew)
			if costNew < cost {
				improved = cost-costNew > e.Tolerance*(cost+e.Tolerance)
				copy(x, xNew)
				copy(y, yNew)
				cost = costNew
				lambda /= 10
				break
			}
			lambda *= 10
		}
		if !improved || gmat.Norm(delta, 2) < e.Tolerance {
			return
		}
	}
}
