// Package sac implements random sample consensus model fitting.
package sac

type Sampler interface {
	Sample() int
}

type Model interface {
	NumRange() (min, max int)
	Fit([]int) (ModelCoefficients, bool)
}

type ModelCoefficients interface {
	// Evaluate returns the number of inliers.
	Evaluate() int
	Inliers(float32) []int
}

type SAC struct {
	Sampler Sampler
	Model   Model

	bestCoeff ModelCoefficients
	bestE     int
}

func New(s Sampler, m Model) *SAC {
	return &SAC{Sampler: s, Model: m}
}

// Compute runs n iterations and keeps the coefficients with the most inliers.
// It returns false if no sample could be fitted.
func (s *SAC) Compute(n int) bool {
	var bestCoeff ModelCoefficients
	var bestE int

	num, _ := s.Model.NumRange()
	ids := make([]int, num)

	for i := 0; i < n; i++ {
		for j := 0; j < num; j++ {
			ids[j] = s.Sampler.Sample()
		}
		coeff, ok := s.Model.Fit(ids)
		if !ok {
			continue
		}
		e := coeff.Evaluate()
		if bestCoeff == nil || e > bestE {
			bestE = e
			bestCoeff = coeff
		}
	}
	if bestCoeff == nil {
		return false
	}
	s.bestCoeff = bestCoeff
	s.bestE = bestE
	return true
}

func (s *SAC) Coefficients() ModelCoefficients {
	return s.bestCoeff
}

// NumInliers returns the score of the best coefficients.
func (s *SAC) NumInliers() int {
	return s.bestE
}
