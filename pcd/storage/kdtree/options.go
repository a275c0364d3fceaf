package kdtree

import (
	"go.uber.org/zap"
)

const (
	DefaultLeafSize = 15
	DefaultWorkers  = 4
)

type options struct {
	epsilon  float32
	sorted   bool
	leafSize int
	topDims  int
	seed     int64
	workers  int
	logger   *zap.Logger
}

func defaultOptions() options {
	return options{
		sorted:   true,
		leafSize: DefaultLeafSize,
		topDims:  1,
		workers:  DefaultWorkers,
		logger:   zap.NewNop(),
	}
}

// Option configures a KdTree.
type Option func(*options)

// WithEpsilon sets the approximation bound of the searches.
// Every returned distance is within a factor (1+eps) of the exact one.
func WithEpsilon(eps float32) Option {
	return func(o *options) {
		if eps < 0 {
			eps = 0
		}
		o.epsilon = eps
	}
}

// WithSorted sets whether results are ordered nearest first.
func WithSorted(sorted bool) Option {
	return func(o *options) {
		o.sorted = sorted
	}
}

// WithLeafSize sets the maximum number of points stored in a leaf.
func WithLeafSize(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.leafSize = n
	}
}

// WithRandomSplit draws the split dimension among the topDims dimensions
// with the highest spread, using a generator seeded with seed.
func WithRandomSplit(topDims int, seed int64) Option {
	return func(o *options) {
		if topDims < 1 {
			topDims = 1
		}
		o.topDims = topDims
		o.seed = seed
	}
}

// WithWorkers sets the number of goroutines used by batch queries.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	}
}
