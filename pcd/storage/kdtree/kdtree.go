// Package kdtree implements an approximate nearest neighbor index over
// point clouds of any dimension.
package kdtree

import (
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/search"
)

var (
	ErrInvalidK      = search.ErrInvalidK
	ErrInvalidRadius = search.ErrInvalidRadius
	ErrBuilding      = errors.New("index is being built")
	ErrCloudTooLarge = errors.New("cloud exceeds the maximum indexable size")
)

// KdTree is a k-d tree spatial index.
// Queries may run concurrently with each other but not with SetInputCloud.
type KdTree[P any] struct {
	rep  pcd.Representation[P]
	opts options

	building atomic.Bool
	st       atomic.Pointer[state]
	// cloud is the input of the current state, used by index queries.
	cloud atomic.Pointer[pcd.PointCloud[P]]
}

var _ search.Searcher[struct{}] = (*KdTree[struct{}])(nil)

func New[P any](rep pcd.Representation[P], opts ...Option) *KdTree[P] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t := &KdTree[P]{
		rep:  rep,
		opts: o,
	}
	t.st.Store(t.emptyState())
	return t
}

func (t *KdTree[P]) emptyState() *state {
	return &state{dim: t.rep.Dim(), identityMapping: true}
}

// SetInputCloud builds the index over cloud, or over the given subset of it.
// The previous build is discarded even if an error is returned, in which case
// the index is left empty.
func (t *KdTree[P]) SetInputCloud(cloud *pcd.PointCloud[P], indices []int) error {
	if !t.building.CompareAndSwap(false, true) {
		return ErrBuilding
	}
	defer t.building.Store(false)

	t.st.Store(t.emptyState())
	t.cloud.Store(nil)

	if cloud.Len() == 0 || (indices != nil && len(indices) == 0) {
		return pcd.ErrEmptyCloud
	}
	if err := cloud.CheckIndices(indices); err != nil {
		return err
	}
	if cloud.Len() > maxRankIndex+1 {
		return errors.Wrapf(ErrCloudTooLarge, "%d points", cloud.Len())
	}

	st := t.pack(cloud, indices)
	if st.dropped > 0 {
		t.opts.logger.Debug("Dropped invalid points",
			zap.Int("dropped", st.dropped),
			zap.Int("indexed", st.size()),
		)
	}
	t.cloud.Store(cloud)
	if st.size() == 0 {
		t.st.Store(st)
		return errors.Wrap(pcd.ErrEmptyCloud, "no valid point")
	}

	b := &builder{
		st:       st,
		leafSize: t.opts.leafSize,
		topDims:  t.opts.topDims,
		rnd:      rand.New(rand.NewSource(t.opts.seed)),
		spread:   make([]float32, st.dim),
		dims:     make([]int, st.dim),
	}
	st.order = make([]int, st.size())
	for i := range st.order {
		st.order[i] = i
	}
	st.root = b.build(0, st.size())

	t.st.Store(st)
	return nil
}

// pack copies the coordinates of the valid points into a contiguous buffer.
func (t *KdTree[P]) pack(cloud *pcd.PointCloud[P], indices []int) *state {
	ra := pcd.NewIndiceRandomAccessor[P](cloud, indices)
	n := ra.Len()
	st := &state{
		dim:          t.rep.Dim(),
		indexMapping: make([]int, 0, n),
	}
	st.data = make([]float32, 0, n*st.dim)
	for i := 0; i < n; i++ {
		p := ra.At(i)
		if !pcd.IsValid(t.rep, p) {
			st.dropped++
			continue
		}
		for axis := 0; axis < st.dim; axis++ {
			st.data = append(st.data, t.rep.Coord(p, axis))
		}
		if indices != nil {
			st.indexMapping = append(st.indexMapping, indices[i])
		} else {
			st.indexMapping = append(st.indexMapping, i)
		}
	}
	st.identityMapping = indices == nil && st.dropped == 0
	return st
}

func (t *KdTree[P]) current() (*state, error) {
	if t.building.Load() {
		return nil, ErrBuilding
	}
	return t.st.Load(), nil
}

// Size returns the number of indexed points.
func (t *KdTree[P]) Size() int {
	return t.st.Load().size()
}

func (t *KdTree[P]) Dim() int {
	return t.rep.Dim()
}

func (t *KdTree[P]) Epsilon() float32 {
	return t.opts.epsilon
}

// Dropped returns the number of invalid points skipped by the last build.
func (t *KdTree[P]) Dropped() int {
	return t.st.Load().dropped
}

// IdentityMapping reports whether compact positions equal cloud indices.
func (t *KdTree[P]) IdentityMapping() bool {
	return t.st.Load().identityMapping
}
