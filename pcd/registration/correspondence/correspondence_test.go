package correspondence

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/registration/transformation"
	"github.com/seqsense/pcalign/pcd/storage/kdtree"
)

func newTree(t *testing.T, pp []mat.Vec3) *kdtree.KdTree[mat.Vec3] {
	t.Helper()
	kt := kdtree.New[mat.Vec3](pcd.Vec3Representation{})
	require.NoError(t, kt.SetInputCloud(pcd.NewPointCloud(pp), nil))
	return kt
}

func TestNearest(t *testing.T) {
	tgt := []mat.Vec3{{0, 0, 0}, {1, 0, 0}, {5, 0, 0}}
	src := []mat.Vec3{{0.1, 0, 0}, {0.8, 0, 0}, {3, 0, 0}}

	cs, err := Nearest(context.Background(), src, newTree(t, tgt), 1)
	require.NoError(t, err)

	expected := Correspondences{
		{Query: 0, Match: 0, Distance: 0.1},
		{Query: 1, Match: 1, Distance: 0.2},
	}
	if diff := cmp.Diff(expected, cs, cmp.Comparer(func(a, b float32) bool {
		d := a - b
		return -1e-6 < d && d < 1e-6
	})); diff != "" {
		t.Errorf("Unexpected correspondences (-want +got):\n%s", diff)
	}
	assert.InDelta(t, (0.01+0.04)/2, cs.MeanSqDistance(), 1e-6)
}

func TestReciprocal(t *testing.T) {
	tgt := []mat.Vec3{{0, 0, 0}, {3, 0, 0}}
	src := []mat.Vec3{{0.1, 0, 0}, {0.2, 0, 0}, {2.5, 0, 0}}

	cs, err := Reciprocal(context.Background(), src, tgt, newTree(t, src), newTree(t, tgt), 10)
	require.NoError(t, err)

	// src[1] and src[0] both map to tgt[0], only src[0] is its nearest
	assert.Equal(t, []int{0, 2}, cs.QueryIndices())
	assert.Equal(t, []int{0, 1}, cs.MatchIndices())
}

func TestDistanceRejector(t *testing.T) {
	cs := Correspondences{
		{Query: 0, Match: 0, Distance: 0.1},
		{Query: 1, Match: 1, Distance: 1.5},
		{Query: 2, Match: 2, Distance: 0.5},
	}
	out := DistanceRejector{MaxDistance: 0.5}.Reject(nil, nil, cs)
	assert.Equal(t, []int{0, 2}, out.QueryIndices())
}

func TestTrimmedRejector(t *testing.T) {
	cs := Correspondences{
		{Query: 0, Distance: 0.4},
		{Query: 1, Distance: 0.1},
		{Query: 2, Distance: 0.9},
		{Query: 3, Distance: 0.2},
	}

	for name, tt := range map[string]struct {
		rejector TrimmedRejector
		expected []int
	}{
		"Half":    {rejector: TrimmedRejector{Ratio: 0.5}, expected: []int{1, 3}},
		"Min":     {rejector: TrimmedRejector{Ratio: 0.1, MinCorrespondences: 3}, expected: []int{0, 1, 3}},
		"KeepAll": {rejector: TrimmedRejector{Ratio: 1}, expected: []int{0, 1, 2, 3}},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			out := tt.rejector.Reject(nil, nil, cs)
			assert.Equal(t, tt.expected, out.QueryIndices())
		})
	}
}

func TestSampleConsensusRejector(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	trans := mat.Translate(0.2, 0.1, 0).Mul(mat.Rotate(0, 0, 1, 0.2))

	src := make([]mat.Vec3, 40)
	tgt := make([]mat.Vec3, 40)
	cs := make(Correspondences, 40)
	for i := range src {
		src[i] = mat.Vec3{rnd.Float32() * 5, rnd.Float32() * 5, rnd.Float32()}
		tgt[i] = trans.TransformAffine(src[i])
		cs[i] = Correspondence{Query: i, Match: i}
	}
	outliers := []int{3, 17, 25}
	for _, i := range outliers {
		tgt[i] = tgt[i].Add(mat.Vec3{1, -1, 0.5})
	}

	r := &SampleConsensusRejector{
		Estimator:         transformation.SVD{},
		Threshold:         0.05,
		MaxIterations:     200,
		MinSampleDistance: 0.1,
		Rand:              rand.New(rand.NewSource(2)),
	}
	out := r.Reject(pcd.NewSliceRandomAccessor(src), pcd.NewSliceRandomAccessor(tgt), cs)
	require.Len(t, out, 37)
	for _, c := range out {
		assert.NotContains(t, outliers, c.Query)
	}

	t.Run("TooFew", func(t *testing.T) {
		assert.Len(t, r.Reject(pcd.NewSliceRandomAccessor(src), pcd.NewSliceRandomAccessor(tgt), cs[:2]), 2)
	})
}
