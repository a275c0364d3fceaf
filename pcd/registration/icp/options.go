package icp

import (
	"math"

	"go.uber.org/zap"

	"github.com/seqsense/pcalign/pcd/registration/correspondence"
	"github.com/seqsense/pcalign/pcd/storage/kdtree"
)

const DefaultMaxIterations = 10

var DefaultMaxCorrespondenceDistance = math.Sqrt(math.MaxFloat64)

type options struct {
	maxIterations             int
	transformationEpsilon     float64
	euclideanFitnessEpsilon   float64
	maxCorrespondenceDistance float64
	rejectors                 []correspondence.Rejector
	reciprocal                bool
	workers                   int
	treeOptions               []kdtree.Option
	logger                    *zap.Logger
}

func defaultOptions() options {
	return options{
		maxIterations:             DefaultMaxIterations,
		maxCorrespondenceDistance: DefaultMaxCorrespondenceDistance,
		workers:                   kdtree.DefaultWorkers,
		logger:                    zap.NewNop(),
	}
}

type Option func(*options)

func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.maxIterations = n
	}
}

// WithTransformationEpsilon sets the convergence threshold of the
// Frobenius norm of the change of the transformation between iterations.
func WithTransformationEpsilon(eps float64) Option {
	return func(o *options) {
		o.transformationEpsilon = eps
	}
}

// WithEuclideanFitnessEpsilon sets the convergence threshold of the change
// of the mean squared correspondence distance. Zero disables the check.
func WithEuclideanFitnessEpsilon(eps float64) Option {
	return func(o *options) {
		o.euclideanFitnessEpsilon = eps
	}
}

// WithMaxCorrespondenceDistance discards pairs farther than d.
func WithMaxCorrespondenceDistance(d float64) Option {
	return func(o *options) {
		o.maxCorrespondenceDistance = d
	}
}

// WithRejectors appends correspondence rejectors applied in order.
func WithRejectors(rs ...correspondence.Rejector) Option {
	return func(o *options) {
		o.rejectors = append(o.rejectors, rs...)
	}
}

// WithReciprocal enables reciprocal correspondence estimation.
func WithReciprocal(reciprocal bool) Option {
	return func(o *options) {
		o.reciprocal = reciprocal
	}
}

func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// WithTreeOptions sets the options of the search trees.
func WithTreeOptions(opts ...kdtree.Option) Option {
	return func(o *options) {
		o.treeOptions = append(o.treeOptions, opts...)
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
