package correspondence

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/seqsense/pcalign/mat"
)

// BatchSearcher answers nearest neighbor queries for many points at once.
type BatchSearcher interface {
	NearestKSearchBatch(ctx context.Context, points []mat.Vec3, k int) ([][]int, [][]float32, error)
}

// Nearest pairs every point of src with its nearest neighbor in tgt.
// Pairs farther than maxDistance are discarded.
// Query holds the position in src and Match the index reported by tgt.
func Nearest(ctx context.Context, src []mat.Vec3, tgt BatchSearcher, maxDistance float64) (Correspondences, error) {
	indices, dists, err := tgt.NearestKSearchBatch(ctx, src, 1)
	if err != nil {
		return nil, errors.Wrap(err, "searching nearest neighbors")
	}
	maxSq := maxDistance * maxDistance
	cs := make(Correspondences, 0, len(src))
	for i := range src {
		if len(indices[i]) == 0 {
			continue
		}
		d := float64(dists[i][0])
		if d > maxSq {
			continue
		}
		cs = append(cs, Correspondence{
			Query:    i,
			Match:    indices[i][0],
			Distance: float32(math.Sqrt(d)),
		})
	}
	return cs, nil
}

// Reciprocal keeps the pairs of Nearest whose target point has the source
// point as its own nearest neighbor.
// srcSearcher must index src so that it reports positions in src.
func Reciprocal(ctx context.Context, src, tgt []mat.Vec3, srcSearcher, tgtSearcher BatchSearcher, maxDistance float64) (Correspondences, error) {
	cs, err := Nearest(ctx, src, tgtSearcher, maxDistance)
	if err != nil {
		return nil, err
	}
	back := make([]mat.Vec3, len(cs))
	for i, c := range cs {
		back[i] = tgt[c.Match]
	}
	indices, _, err := srcSearcher.NearestKSearchBatch(ctx, back, 1)
	if err != nil {
		return nil, errors.Wrap(err, "searching reciprocal neighbors")
	}
	out := cs[:0]
	for i, c := range cs {
		if len(indices[i]) > 0 && indices[i][0] == c.Query {
			out = append(out, c)
		}
	}
	return out, nil
}
