package kdtree

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	gkdtree "gonum.org/v1/gonum/spatial/kdtree"

	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/search"
)

type neighbors struct {
	index  []int
	distSq []float32
}

func (n *neighbors) Len() int { return len(n.index) }

func (n *neighbors) Swap(i, j int) {
	n.index[i], n.index[j] = n.index[j], n.index[i]
	n.distSq[i], n.distSq[j] = n.distSq[j], n.distSq[i]
}

func (n *neighbors) less(i, j int) bool {
	return search.Less(n.distSq[i], n.index[i], n.distSq[j], n.index[j])
}

type ascending struct {
	*neighbors
}

func (a ascending) Less(i, j int) bool { return a.less(i, j) }

// maxRankIndex is the largest index rankKey can order.
const maxRankIndex = 1<<29 - 1

// rankKey maps (distSq, index) to a float64 ordered like search.Less.
// A float32 converted to float64 leaves the low 29 mantissa bits zero,
// which hold the index.
func rankKey(distSq float32, index int) float64 {
	return math.Float64frombits(math.Float64bits(float64(distSq)) | uint64(index))
}

// candidate is a neighbor kept in a gonum NKeeper.
// As a Comparable it is a point on the squared distance axis.
type candidate struct {
	index  int
	distSq float32
}

func (c candidate) Compare(o gkdtree.Comparable, _ gkdtree.Dim) float64 {
	return float64(c.distSq - o.(candidate).distSq)
}

func (candidate) Dims() int { return 1 }

func (c candidate) Distance(o gkdtree.Comparable) float64 {
	d := c.Compare(o, 0)
	return d * d
}

type query struct {
	st        *state
	q         []float32
	epsFactor float32
}

func (t *KdTree[P]) newQuery(st *state, p P) query {
	eps := 1 + t.opts.epsilon
	return query{
		st:        st,
		q:         pcd.Coords(t.rep, p, make([]float32, 0, st.dim)),
		epsFactor: eps * eps,
	}
}

func (q *query) distSq(pos int) float32 {
	var sum float32
	base := pos * q.st.dim
	for i, c := range q.q {
		d := c - q.st.data[base+i]
		sum += d * d
	}
	return sum
}

// near returns the child containing the query and the squared distance
// from the query to the splitting plane of the other child.
func (q *query) near(n *node) (*node, *node, float32) {
	c := q.q[n.axis]
	if (c-n.divLow)+(c-n.divHigh) < 0 {
		d := n.divHigh - c
		if d < 0 {
			d = 0
		}
		return n.left, n.right, d * d
	}
	d := c - n.divLow
	if d < 0 {
		d = 0
	}
	return n.right, n.left, d * d
}

func (q *query) knn(n *node, keeper *gkdtree.NKeeper) {
	if n.isLeaf() {
		for _, pos := range q.st.order[n.lo:n.hi] {
			c := candidate{index: q.st.indexMapping[pos], distSq: q.distSq(pos)}
			keeper.Keep(gkdtree.ComparableDist{Comparable: c, Dist: rankKey(c.distSq, c.index)})
		}
		return
	}
	nearer, farther, planeSq := q.near(n)
	q.knn(nearer, keeper)
	// The keeper holds an infinite sentinel until k candidates are found.
	if float64(planeSq*q.epsFactor) > keeper.Max().Dist {
		return
	}
	q.knn(farther, keeper)
}

func (q *query) radius(n *node, r2 float32, nb *neighbors) {
	if n.isLeaf() {
		for _, pos := range q.st.order[n.lo:n.hi] {
			if d := q.distSq(pos); d <= r2 {
				nb.index = append(nb.index, q.st.indexMapping[pos])
				nb.distSq = append(nb.distSq, d)
			}
		}
		return
	}
	nearer, farther, planeSq := q.near(n)
	q.radius(nearer, r2, nb)
	if planeSq*q.epsFactor > r2 {
		return
	}
	q.radius(farther, r2, nb)
}

// NearestKSearch returns the k nearest neighbors of p and their squared distances.
// k larger than Size is clamped.
func (t *KdTree[P]) NearestKSearch(p P, k int) ([]int, []float32, error) {
	if k < 1 {
		return nil, nil, errors.Wrapf(ErrInvalidK, "k = %d", k)
	}
	if !pcd.IsValid(t.rep, p) {
		return nil, nil, pcd.ErrInvalidPoint
	}
	st, err := t.current()
	if err != nil {
		return nil, nil, err
	}
	if st.size() == 0 {
		return []int{}, []float32{}, nil
	}
	if k > st.size() {
		t.opts.logger.Warn("Number of requested neighbors exceeds indexed points",
			zap.Int("k", k),
			zap.Int("size", st.size()),
		)
		k = st.size()
	}

	q := t.newQuery(st, p)
	keeper := gkdtree.NewNKeeper(k)
	q.knn(st.root, keeper)

	nb := &neighbors{
		index:  make([]int, 0, k),
		distSq: make([]float32, 0, k),
	}
	for _, cd := range keeper.Heap {
		c, ok := cd.Comparable.(candidate)
		if !ok {
			continue
		}
		nb.index = append(nb.index, c.index)
		nb.distSq = append(nb.distSq, c.distSq)
	}
	if t.opts.sorted {
		sort.Sort(ascending{nb})
	}
	return nb.index, nb.distSq, nil
}

// NearestKSearchAt is NearestKSearch around the point at index i of the
// input cloud. The point itself is part of the result if it was indexed.
func (t *KdTree[P]) NearestKSearchAt(i, k int) ([]int, []float32, error) {
	p, err := t.inputPoint(i)
	if err != nil {
		return nil, nil, err
	}
	return t.NearestKSearch(p, k)
}

// RadiusSearchAt is RadiusSearch around the point at index i of the input cloud.
func (t *KdTree[P]) RadiusSearchAt(i int, radius float64, maxNN int) ([]int, []float32, error) {
	p, err := t.inputPoint(i)
	if err != nil {
		return nil, nil, err
	}
	return t.RadiusSearch(p, radius, maxNN)
}

func (t *KdTree[P]) inputPoint(i int) (P, error) {
	if _, err := t.current(); err != nil {
		var zero P
		return zero, err
	}
	return t.cloud.Load().Point(i)
}

// RadiusSearch returns every point within radius of p.
// maxNN of 0 or at least Size means unbounded, otherwise the nearest maxNN
// points are kept.
func (t *KdTree[P]) RadiusSearch(p P, radius float64, maxNN int) ([]int, []float32, error) {
	nb := &neighbors{}
	if err := t.radiusSearch(p, radius, maxNN, nb); err != nil {
		return nil, nil, err
	}
	return nb.index, nb.distSq, nil
}

// RadiusSearchInto is RadiusSearch writing into caller owned buffers.
// Buffers of at least Size elements are filled in place without allocation.
// Shorter buffers receive the nearest neighbors that fit.
// It returns the number of neighbors written.
func (t *KdTree[P]) RadiusSearchInto(p P, radius float64, indices []int, sqrDists []float32, maxNN int) (int, error) {
	if radius < 0 {
		return 0, errors.Wrapf(ErrInvalidRadius, "radius = %g", radius)
	}
	size := t.Size()
	if len(indices) >= size && len(sqrDists) >= size {
		nb := &neighbors{index: indices[:0], distSq: sqrDists[:0]}
		if err := t.radiusSearch(p, radius, maxNN, nb); err != nil {
			return 0, err
		}
		return nb.Len(), nil
	}

	limit := len(indices)
	if len(sqrDists) < limit {
		limit = len(sqrDists)
	}
	if maxNN <= 0 || maxNN > limit {
		maxNN = limit
	}
	if maxNN == 0 {
		return 0, nil
	}
	idx, dists, err := t.RadiusSearch(p, radius, maxNN)
	if err != nil {
		return 0, err
	}
	copy(indices, idx)
	copy(sqrDists, dists)
	return len(idx), nil
}

func (t *KdTree[P]) radiusSearch(p P, radius float64, maxNN int, nb *neighbors) error {
	if radius < 0 {
		return errors.Wrapf(ErrInvalidRadius, "radius = %g", radius)
	}
	if !pcd.IsValid(t.rep, p) {
		return pcd.ErrInvalidPoint
	}
	st, err := t.current()
	if err != nil {
		return err
	}
	if st.size() == 0 {
		return nil
	}
	if maxNN >= st.size() {
		maxNN = 0
	}

	q := t.newQuery(st, p)
	q.radius(st.root, float32(radius*radius), nb)
	truncate := maxNN > 0 && nb.Len() > maxNN
	if t.opts.sorted || truncate {
		sort.Sort(ascending{nb})
	}
	if truncate {
		nb.index, nb.distSq = nb.index[:maxNN], nb.distSq[:maxNN]
	}
	return nil
}

// NearestKSearchBatch runs NearestKSearch for every point concurrently.
// Result i belongs to points[i].
func (t *KdTree[P]) NearestKSearchBatch(ctx context.Context, points []P, k int) ([][]int, [][]float32, error) {
	indices := make([][]int, len(points))
	dists := make([][]float32, len(points))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.workers)
	for i := range points {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			idx, d, err := t.NearestKSearch(points[i], k)
			if err != nil {
				return errors.Wrapf(err, "query %d", i)
			}
			indices[i], dists[i] = idx, d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return indices, dists, nil
}
