package sac

import (
	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

// RigidEstimator estimates the transformation mapping src onto tgt.
type RigidEstimator interface {
	Estimate(src, tgt pcd.RandomAccessor[mat.Vec3]) (mat.Mat4, error)
}

type registrationModel struct {
	src, tgt  pcd.RandomAccessor[mat.Vec3]
	est       RigidEstimator
	threshold float32

	// minimum squared distance between sampled source points
	minSampleDistSq float32
}

const minSampleArea = 1e-6

// NewRegistrationModel returns a Model whose coefficients are rigid
// transformations mapping src[i] onto tgt[i].
// A pair is an inlier when its residual is below threshold.
func NewRegistrationModel(src, tgt pcd.RandomAccessor[mat.Vec3], est RigidEstimator, threshold, minSampleDist float32) Model {
	return &registrationModel{
		src:             src,
		tgt:             tgt,
		est:             est,
		threshold:       threshold,
		minSampleDistSq: minSampleDist * minSampleDist,
	}
}

func (registrationModel) NumRange() (min, max int) {
	return 3, 3
}

func (m *registrationModel) isSampleGood(p0, p1, p2 mat.Vec3) bool {
	if p0.DistSq(p1) <= m.minSampleDistSq ||
		p1.DistSq(p2) <= m.minSampleDistSq ||
		p2.DistSq(p0) <= m.minSampleDistSq {
		return false
	}
	// reject collinear samples
	return p1.Sub(p0).Cross(p2.Sub(p0)).NormSq() > minSampleArea
}

func (m *registrationModel) Fit(ids []int) (ModelCoefficients, bool) {
	if len(ids) != 3 {
		return nil, false
	}
	p0, p1, p2 := m.src.At(ids[0]), m.src.At(ids[1]), m.src.At(ids[2])
	if !m.isSampleGood(p0, p1, p2) {
		return nil, false
	}
	trans, err := m.est.Estimate(
		pcd.NewIndiceRandomAccessor(m.src, ids),
		pcd.NewIndiceRandomAccessor(m.tgt, ids),
	)
	if err != nil {
		return nil, false
	}
	return &registrationCoefficients{model: m, trans: trans}, true
}

type registrationCoefficients struct {
	model *registrationModel
	trans mat.Mat4
}

func (c *registrationCoefficients) residualSq(i int) float32 {
	return c.trans.TransformAffine(c.model.src.At(i)).DistSq(c.model.tgt.At(i))
}

func (c *registrationCoefficients) Evaluate() int {
	th := c.model.threshold * c.model.threshold
	var n int
	for i := 0; i < c.model.src.Len(); i++ {
		if c.residualSq(i) < th {
			n++
		}
	}
	return n
}

func (c *registrationCoefficients) Inliers(d float32) []int {
	th := d * d
	var inliers []int
	for i := 0; i < c.model.src.Len(); i++ {
		if c.residualSq(i) < th {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// Transformation returns the rigid transformation of the coefficients.
func (c *registrationCoefficients) Transformation() mat.Mat4 {
	return c.trans
}
