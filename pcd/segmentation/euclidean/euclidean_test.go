package euclidean

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/search"
	"github.com/seqsense/pcalign/pcd/storage/kdtree"
)

func TestExtract(t *testing.T) {
	pc := pcd.NewPointCloud([]mat.Vec3{
		{0.00, 0.00, 0.00}, // 0
		{0.10, 0.00, 0.00}, // 1
		{0.50, 0.50, 0.50}, // 2
		{0.10, 0.05, 0.00}, // 3
		{0.51, 0.51, 0.50}, // 4
		{0.49, 0.51, 0.49}, // 5
		{0.45, 0.40, 0.45}, // 6
		{0.53, 0.50, 0.50}, // 7
		{0.57, 0.50, 0.50}, // 8
		{0.60, 0.50, 0.50}, // 9
		{0.80, 0.50, 0.50}, // 10
		{0.45, 0.45, 0.45}, // 11
		{0.48, 0.43, 0.48}, // 12
		{0.51, 0.47, 0.50}, // 13
		{float32(math.NaN()), 0.5, 0.5},
	})

	for name, tt := range map[string]struct {
		opts     Options
		expected [][]int
	}{
		"All": {
			opts: Options{Tolerance: 0.12},
			expected: [][]int{
				{2, 4, 5, 6, 7, 8, 9, 11, 12, 13},
				{0, 1, 3},
				{10},
			},
		},
		"MinSize": {
			opts: Options{Tolerance: 0.12, MinSize: 2},
			expected: [][]int{
				{2, 4, 5, 6, 7, 8, 9, 11, 12, 13},
				{0, 1, 3},
			},
		},
		"MaxSize": {
			opts: Options{Tolerance: 0.12, MinSize: 2, MaxSize: 5},
			expected: [][]int{
				{0, 1, 3},
			},
		},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			for treeName, tree := range map[string]search.Searcher[mat.Vec3]{
				"KdTree":     kdtree.New[mat.Vec3](pcd.Vec3Representation{}),
				"BruteForce": search.NewBruteForce[mat.Vec3](pcd.Vec3Representation{}),
			} {
				clusters, err := Extract(pc, tree, tt.opts)
				require.NoError(t, err, treeName)
				assert.Equal(t, tt.expected, clusters, treeName)
			}
		})
	}
}

func TestExtractOrganized(t *testing.T) {
	// Two walls seen side by side at different depths.
	const w, h = 8, 4
	pp := make([]mat.Vec3, 0, w*h)
	var left, right []int
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			z := float32(1)
			if col >= w/2 {
				z = 3
				right = append(right, len(pp))
			} else {
				left = append(left, len(pp))
			}
			pp = append(pp, mat.Vec3{
				float32(col-w/2) * z * 0.01,
				float32(row-h/2) * z * 0.01,
				z,
			})
		}
	}
	pc := pcd.NewPointCloud(pp)
	pc.Width, pc.Height = w, h

	for treeName, tree := range map[string]search.Searcher[mat.Vec3]{
		"Organized": search.NewOrganizedNeighbor[mat.Vec3](pcd.Vec3Representation{}),
		"KdTree":    kdtree.New[mat.Vec3](pcd.Vec3Representation{}),
	} {
		clusters, err := Extract(pc, tree, Options{Tolerance: 0.5})
		require.NoError(t, err, treeName)
		assert.Equal(t, [][]int{left, right}, clusters, treeName)
	}
}

func TestExtractPlanar(t *testing.T) {
	pc := pcd.NewPointCloud([]orb.Point{
		{0, 0}, {0.5, 0}, {1, 0}, {5, 5}, {5.5, 5},
	})
	clusters, err := Extract(pc, kdtree.New[orb.Point](pcd.OrbRepresentation{}), Options{Tolerance: 0.6})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}}, clusters)
}

func TestExtractErrors(t *testing.T) {
	tree := kdtree.New[mat.Vec3](pcd.Vec3Representation{})

	_, err := Extract(pcd.NewPointCloud([]mat.Vec3{{0, 0, 0}}), tree, Options{})
	assert.ErrorIs(t, err, ErrInvalidTolerance)

	_, err = Extract(pcd.NewPointCloud([]mat.Vec3{}), tree, Options{Tolerance: 1})
	assert.ErrorIs(t, err, pcd.ErrEmptyCloud)
}
