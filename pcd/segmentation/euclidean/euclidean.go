// Package euclidean extracts clusters of points connected by chains of
// neighbors closer than a tolerance.
package euclidean

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/search"
)

const initialSliceCap = 1024

var ErrInvalidTolerance = errors.New("cluster tolerance must be positive")

type Options struct {
	Tolerance float64
	MinSize   int
	// MaxSize of 0 means unlimited.
	MaxSize int
}

// Extract builds tree over cloud and returns the indices of every cluster
// whose size is within the limits, largest first.
// Invalid points never belong to a cluster.
func Extract[P any](cloud *pcd.PointCloud[P], tree search.Searcher[P], opts Options) ([][]int, error) {
	if !(opts.Tolerance > 0) {
		return nil, errors.Wrapf(ErrInvalidTolerance, "%g", opts.Tolerance)
	}
	if err := tree.SetInputCloud(cloud, nil); err != nil {
		return nil, errors.Wrap(err, "building search tree")
	}

	searched := make([]bool, cloud.Len())
	var clusters [][]int
	for seed := range cloud.Points {
		if searched[seed] {
			continue
		}
		searched[seed] = true

		next := make([]int, 0, initialSliceCap)
		next = append(next, seed)
		indice := make([]int, 0, initialSliceCap)
		valid := true

		for len(next) > 0 {
			var i int
			i, next = next[0], next[1:]
			nn, _, err := tree.RadiusSearchAt(i, opts.Tolerance, 0)
			if errors.Is(err, pcd.ErrInvalidPoint) {
				valid = false
				break
			}
			if err != nil {
				return nil, err
			}
			indice = append(indice, i)
			for _, n := range nn {
				if searched[n] {
					continue
				}
				searched[n] = true
				next = append(next, n)
			}
		}
		if !valid {
			continue
		}
		if len(indice) < opts.MinSize || (opts.MaxSize > 0 && len(indice) > opts.MaxSize) {
			continue
		}
		sort.Ints(indice)
		clusters = append(clusters, indice)
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i]) > len(clusters[j])
	})
	return clusters, nil
}
