package correspondence

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/sac"
)

// Rejector filters correspondences.
// src and tgt are the clouds the Query and Match indices refer to.
type Rejector interface {
	Reject(src, tgt pcd.RandomAccessor[mat.Vec3], cs Correspondences) Correspondences
}

// DistanceRejector drops pairs farther than MaxDistance.
type DistanceRejector struct {
	MaxDistance float32
}

func (r DistanceRejector) Reject(_, _ pcd.RandomAccessor[mat.Vec3], cs Correspondences) Correspondences {
	out := make(Correspondences, 0, len(cs))
	for _, c := range cs {
		if c.Distance <= r.MaxDistance {
			out = append(out, c)
		}
	}
	return out
}

// TrimmedRejector keeps the closest Ratio of the pairs, but at least
// MinCorrespondences of them.
type TrimmedRejector struct {
	Ratio              float64
	MinCorrespondences int
}

func (r TrimmedRejector) Reject(_, _ pcd.RandomAccessor[mat.Vec3], cs Correspondences) Correspondences {
	n := int(math.Ceil(r.Ratio * float64(len(cs))))
	if n < r.MinCorrespondences {
		n = r.MinCorrespondences
	}
	if n >= len(cs) {
		return cs
	}
	out := append(Correspondences(nil), cs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	out = out[:n]
	sort.Slice(out, func(i, j int) bool {
		return out[i].Query < out[j].Query
	})
	return out
}

const (
	DefaultRANSACIterations = 1000
	DefaultRANSACThreshold  = 0.05
)

// SampleConsensusRejector keeps the pairs consistent with the rigid
// transformation having the largest support among random samples.
// All pairs are kept if no transformation can be found.
type SampleConsensusRejector struct {
	Estimator     sac.RigidEstimator
	Threshold     float32
	MaxIterations int
	// MinSampleDistance is the minimum distance between sampled source points.
	MinSampleDistance float32
	Rand              *rand.Rand
	Logger            *zap.Logger
}

func (r *SampleConsensusRejector) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *SampleConsensusRejector) Reject(src, tgt pcd.RandomAccessor[mat.Vec3], cs Correspondences) Correspondences {
	if len(cs) < 3 {
		return cs
	}
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = DefaultRANSACThreshold
	}
	iterations := r.MaxIterations
	if iterations <= 0 {
		iterations = DefaultRANSACIterations
	}

	s, t := cs.Pairs(src, tgt)
	model := sac.NewRegistrationModel(s, t, r.Estimator, threshold, r.MinSampleDistance)
	ransac := sac.New(sac.NewRandomSampler(len(cs), r.Rand), model)
	if !ransac.Compute(iterations) {
		r.logger().Debug("Sample consensus failed, keeping all correspondences",
			zap.Int("correspondences", len(cs)),
		)
		return cs
	}
	inliers := ransac.Coefficients().Inliers(threshold)
	out := make(Correspondences, len(inliers))
	for i, idx := range inliers {
		out[i] = cs[idx]
	}
	r.logger().Debug("Sample consensus rejection",
		zap.Int("correspondences", len(cs)),
		zap.Int("inliers", len(out)),
	)
	return out
}
