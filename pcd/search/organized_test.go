package search

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

var _ Searcher[mat.Vec3] = &OrganizedNeighbor[mat.Vec3]{}

const testInvFocal = 0.01

// depthImage returns a w x h cloud seen by a pinhole camera with the given
// inverse focal length. Every seventh pixel has no return.
func depthImage(w, h int) *pcd.PointCloud[mat.Vec3] {
	nan := float32(math.NaN())
	pp := make([]mat.Vec3, 0, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if (row*w+col)%7 == 3 {
				pp = append(pp, mat.Vec3{nan, nan, nan})
				continue
			}
			z := 2 + 0.5*math.Sin(float64(col)*0.3) + 0.3*math.Cos(float64(row)*0.2)
			pp = append(pp, mat.Vec3{
				float32(float64(col-w/2) * z * testInvFocal),
				float32(float64(row-h/2) * z * testInvFocal),
				float32(z),
			})
		}
	}
	pc := pcd.NewPointCloud(pp)
	pc.Width, pc.Height = w, h
	return pc
}

func TestOrganizedNeighbor(t *testing.T) {
	pc := depthImage(32, 24)

	queries := []mat.Vec3{
		{0, 0, 2},
		{0.1, -0.05, 1.8},
		{-0.3, 0.2, 2.5},
		{0, 0, -1},
		{5, 5, 0.01},
	}
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		p := pc.Points[rnd.Intn(pc.Len())]
		if pcd.IsValid[mat.Vec3](pcd.Vec3Representation{}, p) {
			queries = append(queries, p.Add(mat.Vec3{0.01, -0.01, 0.02}))
		}
	}

	subset := make([]int, 0, pc.Len()/2)
	for i := 0; i < pc.Len(); i += 2 {
		subset = append(subset, i)
	}

	for name, indices := range map[string][]int{
		"All":    nil,
		"Subset": subset,
	} {
		indices := indices
		t.Run(name, func(t *testing.T) {
			on := NewOrganizedNeighbor[mat.Vec3](pcd.Vec3Representation{})
			require.NoError(t, on.SetInputCloud(pc, indices))
			bf := NewBruteForce[mat.Vec3](pcd.Vec3Representation{})
			require.NoError(t, bf.SetInputCloud(pc, indices))

			assert.Equal(t, bf.Size(), on.Size())
			assert.InDelta(t, testInvFocal, on.InvFocalLength(), 1e-6)

			for _, q := range queries {
				for _, k := range []int{1, 5, 30, 10000} {
					expected, expectedDists, err := bf.NearestKSearch(q, k)
					require.NoError(t, err)
					indices, dists, err := on.NearestKSearch(q, k)
					require.NoError(t, err)
					assert.Equal(t, expected, indices, "query %v, k %d", q, k)
					assert.Equal(t, expectedDists, dists, "query %v, k %d", q, k)
				}
				for _, r := range []float64{0, 0.05, 0.2, 1} {
					for _, maxNN := range []int{0, 3} {
						expected, expectedDists, err := bf.RadiusSearch(q, r, maxNN)
						require.NoError(t, err)
						indices, dists, err := on.RadiusSearch(q, r, maxNN)
						require.NoError(t, err)
						assert.Equal(t, expected, indices, "query %v, radius %g, maxNN %d", q, r, maxNN)
						assert.Equal(t, expectedDists, dists, "query %v, radius %g, maxNN %d", q, r, maxNN)
					}
				}
			}
		})
	}
}

func TestOrganizedNeighborAt(t *testing.T) {
	pc := depthImage(16, 12)
	on := NewOrganizedNeighbor[mat.Vec3](pcd.Vec3Representation{})
	require.NoError(t, on.SetInputCloud(pc, nil))

	indices, dists, err := on.NearestKSearchAt(20, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{20}, indices)
	assert.Equal(t, []float32{0}, dists)

	indices, _, err = on.RadiusSearchAt(20, 0.05, 0)
	require.NoError(t, err)
	assert.Contains(t, indices, 20)

	_, _, err = on.NearestKSearchAt(pc.Len(), 1)
	assert.ErrorIs(t, err, pcd.ErrIndexOutOfRange)
	_, _, err = on.RadiusSearchAt(-1, 1, 0)
	assert.ErrorIs(t, err, pcd.ErrIndexOutOfRange)
	_, _, err = on.NearestKSearchAt(3, 1)
	assert.ErrorIs(t, err, pcd.ErrInvalidPoint)
}

func TestOrganizedNeighborSetInputCloud(t *testing.T) {
	flat := func(pp []mat.Vec3, w, h int) *pcd.PointCloud[mat.Vec3] {
		pc := pcd.NewPointCloud(pp)
		pc.Width, pc.Height = w, h
		return pc
	}
	for name, tt := range map[string]struct {
		cloud *pcd.PointCloud[mat.Vec3]
		err   error
	}{
		"Empty": {
			cloud: nil,
			err:   pcd.ErrEmptyCloud,
		},
		"Unorganized": {
			cloud: pcd.NewPointCloud([]mat.Vec3{{0, 0, 1}, {1, 0, 1}}),
			err:   ErrNotOrganized,
		},
		"SizeMismatch": {
			cloud: flat([]mat.Vec3{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}}, 2, 2),
			err:   ErrNotOrganized,
		},
		"OnAxis": {
			cloud: flat([]mat.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}, 2, 2),
			err:   ErrNotProjectable,
		},
		"BehindCamera": {
			cloud: flat([]mat.Vec3{{-0.1, -0.1, -1}, {0, -0.1, -1}, {-0.1, 0, -1}, {0, 0, -1}}, 2, 2),
			err:   ErrNotProjectable,
		},
		"Valid": {
			cloud: depthImage(4, 4),
		},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			on := NewOrganizedNeighbor[mat.Vec3](pcd.Vec3Representation{})
			err := on.SetInputCloud(tt.cloud, nil)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, 0, on.Size())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 14, on.Size())
		})
	}
}
