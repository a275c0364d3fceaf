// Package correspondence pairs source points with target points and
// filters the pairs before transformation estimation.
package correspondence

import (
	"gonum.org/v1/gonum/stat"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

// Correspondence pairs the source point Query with the target point Match.
// Distance is the Euclidean distance between them.
type Correspondence struct {
	Query    int
	Match    int
	Distance float32
}

type Correspondences []Correspondence

func (cs Correspondences) QueryIndices() []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.Query
	}
	return out
}

func (cs Correspondences) MatchIndices() []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.Match
	}
	return out
}

// Pairs returns the paired points ordered as cs.
func (cs Correspondences) Pairs(src, tgt pcd.RandomAccessor[mat.Vec3]) (pcd.RandomAccessor[mat.Vec3], pcd.RandomAccessor[mat.Vec3]) {
	return pcd.NewIndiceRandomAccessor(src, cs.QueryIndices()),
		pcd.NewIndiceRandomAccessor(tgt, cs.MatchIndices())
}

// MeanSqDistance returns the mean of the squared distances, or 0 if cs is empty.
func (cs Correspondences) MeanSqDistance() float64 {
	if len(cs) == 0 {
		return 0
	}
	sq := make([]float64, len(cs))
	for i, c := range cs {
		sq[i] = float64(c.Distance) * float64(c.Distance)
	}
	return stat.Mean(sq, nil)
}
