package kdtree

import (
	"math"
	"math/rand"
	"sort"
)

type node struct {
	// leaf range in state.order
	lo, hi int

	axis            int
	divLow, divHigh float32
	left, right     *node
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

// state is a complete build. It is never modified after being published.
type state struct {
	dim             int
	data            []float32
	indexMapping    []int
	identityMapping bool
	dropped         int
	order           []int
	root            *node
}

func (s *state) size() int {
	return len(s.indexMapping)
}

func (s *state) coord(pos, axis int) float32 {
	return s.data[pos*s.dim+axis]
}

type builder struct {
	st       *state
	leafSize int
	topDims  int
	rnd      *rand.Rand
	spread   []float32
	dims     []int
}

func (b *builder) build(lo, hi int) *node {
	if hi-lo <= b.leafSize {
		return &node{lo: lo, hi: hi}
	}
	axis, ok := b.splitAxis(lo, hi)
	if !ok {
		// all points are identical
		return &node{lo: lo, hi: hi}
	}
	st := b.st
	order := st.order[lo:hi]
	sort.Slice(order, func(i, j int) bool {
		ci, cj := st.coord(order[i], axis), st.coord(order[j], axis)
		if ci != cj {
			return ci < cj
		}
		return order[i] < order[j]
	})
	mid := lo + (hi-lo)/2
	return &node{
		axis:    axis,
		divLow:  st.coord(st.order[mid-1], axis),
		divHigh: st.coord(st.order[mid], axis),
		left:    b.build(lo, mid),
		right:   b.build(mid, hi),
	}
}

func (b *builder) splitAxis(lo, hi int) (int, bool) {
	st := b.st
	for axis := 0; axis < st.dim; axis++ {
		min, max := float32(math.MaxFloat32), float32(-math.MaxFloat32)
		for _, pos := range st.order[lo:hi] {
			c := st.coord(pos, axis)
			if c < min {
				min = c
			}
			if c > max {
				max = c
			}
		}
		b.spread[axis] = max - min
		b.dims[axis] = axis
	}
	sort.SliceStable(b.dims, func(i, j int) bool {
		return b.spread[b.dims[i]] > b.spread[b.dims[j]]
	})
	if b.spread[b.dims[0]] == 0 {
		return 0, false
	}
	if b.topDims <= 1 {
		return b.dims[0], true
	}
	n := 0
	for n < b.topDims && n < st.dim && b.spread[b.dims[n]] > 0 {
		n++
	}
	return b.dims[b.rnd.Intn(n)], true
}
