// Package search defines the neighbor search contract shared by the spatial
// indexes and provides an exact brute-force implementation.
package search

import (
	"github.com/pkg/errors"

	"github.com/seqsense/pcalign/pcd"
)

var (
	ErrInvalidK      = errors.New("k must be positive")
	ErrInvalidRadius = errors.New("radius must not be negative")
)

// Searcher finds neighbors of a query point in an indexed cloud.
// Returned indices live in the index space of the input cloud
// and distances are squared Euclidean distances.
type Searcher[P any] interface {
	SetInputCloud(cloud *pcd.PointCloud[P], indices []int) error
	NearestKSearch(p P, k int) ([]int, []float32, error)
	RadiusSearch(p P, radius float64, maxNN int) ([]int, []float32, error)
	// NearestKSearchAt and RadiusSearchAt query with the point at index i
	// of the input cloud.
	NearestKSearchAt(i, k int) ([]int, []float32, error)
	RadiusSearchAt(i int, radius float64, maxNN int) ([]int, []float32, error)
	Size() int
}

// Less orders neighbors by distance, then by index.
func Less(di float32, ii int, dj float32, ij int) bool {
	if di != dj {
		return di < dj
	}
	return ii < ij
}
