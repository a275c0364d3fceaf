package search

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/seqsense/pcalign/pcd"
)

// BruteForce is an exact Searcher scanning every point on each query.
type BruteForce[P any] struct {
	rep    pcd.Representation[P]
	cloud  *pcd.PointCloud[P]
	points []P
	index  []int
}

func NewBruteForce[P any](rep pcd.Representation[P]) *BruteForce[P] {
	return &BruteForce[P]{rep: rep}
}

func (b *BruteForce[P]) SetInputCloud(cloud *pcd.PointCloud[P], indices []int) error {
	b.cloud, b.points, b.index = nil, nil, nil
	if cloud.Len() == 0 || (indices != nil && len(indices) == 0) {
		return pcd.ErrEmptyCloud
	}
	if err := cloud.CheckIndices(indices); err != nil {
		return err
	}
	b.cloud = cloud
	ra := pcd.NewIndiceRandomAccessor[P](cloud, indices)
	for i := 0; i < ra.Len(); i++ {
		p := ra.At(i)
		if !pcd.IsValid(b.rep, p) {
			continue
		}
		b.points = append(b.points, p)
		if indices != nil {
			b.index = append(b.index, indices[i])
		} else {
			b.index = append(b.index, i)
		}
	}
	return nil
}

func (b *BruteForce[P]) Size() int {
	return len(b.points)
}

type neighbor struct {
	index  int
	distSq float32
}

func (b *BruteForce[P]) all(p P) []neighbor {
	nn := make([]neighbor, len(b.points))
	for i, q := range b.points {
		nn[i] = neighbor{index: b.index[i], distSq: pcd.DistSq(b.rep, p, q)}
	}
	sort.Slice(nn, func(i, j int) bool {
		return Less(nn[i].distSq, nn[i].index, nn[j].distSq, nn[j].index)
	})
	return nn
}

func split(nn []neighbor) ([]int, []float32) {
	indices := make([]int, len(nn))
	dists := make([]float32, len(nn))
	for i, n := range nn {
		indices[i], dists[i] = n.index, n.distSq
	}
	return indices, dists
}

func (b *BruteForce[P]) NearestKSearch(p P, k int) ([]int, []float32, error) {
	if k < 1 {
		return nil, nil, errors.Wrapf(ErrInvalidK, "k = %d", k)
	}
	if !pcd.IsValid(b.rep, p) {
		return nil, nil, pcd.ErrInvalidPoint
	}
	nn := b.all(p)
	if k < len(nn) {
		nn = nn[:k]
	}
	indices, dists := split(nn)
	return indices, dists, nil
}

func (b *BruteForce[P]) RadiusSearch(p P, radius float64, maxNN int) ([]int, []float32, error) {
	if radius < 0 {
		return nil, nil, errors.Wrapf(ErrInvalidRadius, "radius = %g", radius)
	}
	if !pcd.IsValid(b.rep, p) {
		return nil, nil, pcd.ErrInvalidPoint
	}
	r2 := float32(radius * radius)
	var nn []neighbor
	for _, n := range b.all(p) {
		if n.distSq > r2 {
			break
		}
		nn = append(nn, n)
	}
	if maxNN > 0 && maxNN < len(nn) {
		nn = nn[:maxNN]
	}
	indices, dists := split(nn)
	return indices, dists, nil
}

func (b *BruteForce[P]) NearestKSearchAt(i, k int) ([]int, []float32, error) {
	p, err := b.cloud.Point(i)
	if err != nil {
		return nil, nil, err
	}
	return b.NearestKSearch(p, k)
}

func (b *BruteForce[P]) RadiusSearchAt(i int, radius float64, maxNN int) ([]int, []float32, error) {
	p, err := b.cloud.Point(i)
	if err != nil {
		return nil, nil, err
	}
	return b.RadiusSearch(p, radius, maxNN)
}
