package icp

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// FitnessScore returns the mean squared distance from the source points,
// transformed by the final transformation, to their nearest target points.
// Points farther than maxRange are ignored.
func (r *ICP) FitnessScore(ctx context.Context, maxRange float64) (float64, error) {
	if err := r.checkInput(); err != nil {
		return 0, err
	}
	transformed := transformPoints(r.final, r.sourcePoints, nil)
	_, dists, err := r.targetTree.NearestKSearchBatch(ctx, transformed, 1)
	if err != nil {
		return 0, errors.Wrap(err, "searching nearest neighbors")
	}
	maxSq := maxRange * maxRange
	sq := make([]float64, 0, len(dists))
	for _, d := range dists {
		if len(d) == 0 {
			continue
		}
		if v := float64(d[0]); v <= maxSq {
			sq = append(sq, v)
		}
	}
	if len(sq) == 0 {
		return 0, ErrNoOverlap
	}
	return stat.Mean(sq, nil), nil
}
