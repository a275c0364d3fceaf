// Package icp implements iterative closest point registration.
package icp

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/registration/correspondence"
	"github.com/seqsense/pcalign/pcd/registration/transformation"
	"github.com/seqsense/pcalign/pcd/storage/kdtree"
)

var (
	ErrNoSource  = errors.New("source cloud is not set")
	ErrNoTarget  = errors.New("target cloud is not set")
	ErrDiverged  = errors.New("registration diverged")
	ErrNoOverlap = errors.New("no source point within range of the target")
)

// Result is the outcome of an alignment.
type Result struct {
	Transformation mat.Mat4
	// Aligned is the source cloud transformed by Transformation.
	Aligned    *pcd.PointCloud[mat.Vec3]
	Iterations int
	Status     Status
	// Correspondences of the last iteration. Query refers to the source
	// cloud and Match to the target cloud.
	Correspondences correspondence.Correspondences
	// MeanSqDistances holds the mean squared correspondence distance of
	// every iteration.
	MeanSqDistances []float64
}

// ICP aligns a source cloud to a target cloud.
// An ICP must not be used from multiple goroutines at once.
type ICP struct {
	est  transformation.Estimator
	opts options

	source       *pcd.PointCloud[mat.Vec3]
	sourcePoints []mat.Vec3
	sourceIndex  []int

	target     *pcd.PointCloud[mat.Vec3]
	targetTree *kdtree.KdTree[mat.Vec3]

	status Status
	final  mat.Mat4
	events registry
}

// New returns an ICP estimating the transformation of every iteration with est.
func New(est transformation.Estimator, opts ...Option) *ICP {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ICP{
		est:    est,
		opts:   o,
		status: StatusInitialized,
		final:  mat.Identity(),
	}
}

func (r *ICP) treeOptions() []kdtree.Option {
	return append([]kdtree.Option{
		kdtree.WithLogger(r.opts.logger),
		kdtree.WithWorkers(r.opts.workers),
	}, r.opts.treeOptions...)
}

// SetInputSource sets the cloud to be aligned, or the given subset of it.
// Invalid points are ignored.
func (r *ICP) SetInputSource(cloud *pcd.PointCloud[mat.Vec3], indices []int) error {
	r.source, r.sourcePoints, r.sourceIndex = nil, nil, nil
	r.status = StatusInitialized
	if cloud.Len() == 0 || (indices != nil && len(indices) == 0) {
		return pcd.ErrEmptyCloud
	}
	if err := cloud.CheckIndices(indices); err != nil {
		return err
	}
	ra := pcd.NewIndiceRandomAccessor[mat.Vec3](cloud, indices)
	for i := 0; i < ra.Len(); i++ {
		p := ra.At(i)
		if !p.IsFinite() {
			continue
		}
		r.sourcePoints = append(r.sourcePoints, p)
		if indices != nil {
			r.sourceIndex = append(r.sourceIndex, indices[i])
		} else {
			r.sourceIndex = append(r.sourceIndex, i)
		}
	}
	r.source = cloud
	if len(r.sourcePoints) == 0 {
		return errors.Wrap(pcd.ErrEmptyCloud, "no valid source point")
	}
	return nil
}

// SetInputTarget sets the reference cloud and builds its search tree.
func (r *ICP) SetInputTarget(cloud *pcd.PointCloud[mat.Vec3]) error {
	r.target, r.targetTree = nil, nil
	r.status = StatusInitialized
	tree := kdtree.New[mat.Vec3](pcd.Vec3Representation{}, r.treeOptions()...)
	if err := tree.SetInputCloud(cloud, nil); err != nil {
		return errors.Wrap(err, "building target tree")
	}
	r.target, r.targetTree = cloud, tree
	return nil
}

func (r *ICP) Status() Status {
	return r.status
}

// FinalTransformation returns the transformation of the last alignment.
func (r *ICP) FinalTransformation() mat.Mat4 {
	return r.final
}

func (r *ICP) checkInput() error {
	if r.targetTree == nil {
		return ErrNoTarget
	}
	if r.source == nil {
		return ErrNoSource
	}
	if len(r.sourcePoints) == 0 {
		return pcd.ErrEmptyCloud
	}
	return nil
}

func transformPoints(m mat.Mat4, pp []mat.Vec3, dst []mat.Vec3) []mat.Vec3 {
	dst = dst[:0]
	for _, p := range pp {
		dst = append(dst, m.TransformAffine(p))
	}
	return dst
}

func (r *ICP) correspondences(ctx context.Context, transformed []mat.Vec3) (correspondence.Correspondences, error) {
	if !r.opts.reciprocal {
		return correspondence.Nearest(ctx, transformed, r.targetTree, r.opts.maxCorrespondenceDistance)
	}
	srcTree := kdtree.New[mat.Vec3](pcd.Vec3Representation{}, r.treeOptions()...)
	if err := srcTree.SetInputCloud(pcd.NewPointCloud(transformed), nil); err != nil {
		return nil, errors.Wrap(err, "building source tree")
	}
	return correspondence.Reciprocal(ctx, transformed, r.target.Points, srcTree, r.targetTree, r.opts.maxCorrespondenceDistance)
}

// Align runs the registration starting from guess.
// Reaching the iteration limit is not an error. A diverged alignment
// returns both the result and ErrDiverged. If the estimator failed, its
// error is joined to ErrDiverged.
func (r *ICP) Align(ctx context.Context, guess mat.Mat4) (*Result, error) {
	if err := r.checkInput(); err != nil {
		return nil, err
	}
	logger := r.opts.logger
	minCorr := r.est.MinCorrespondences()

	r.status = StatusIterating
	r.final = guess
	res := &Result{}
	transformed := make([]mat.Vec3, 0, len(r.sourcePoints))
	prevMeanSq := math.NaN()

	logger.Debug("Starting alignment",
		zap.Int("source", len(r.sourcePoints)),
		zap.Int("target", r.targetTree.Size()),
		zap.Stringer("estimator", r.est.Kind()),
	)

	finish := func(status Status, cs correspondence.Correspondences) *Result {
		r.status = status
		res.Status = status
		res.Transformation = r.final
		res.Aligned = pcd.TransformPointCloud(r.source, r.final)
		res.Correspondences = make(correspondence.Correspondences, len(cs))
		for i, c := range cs {
			c.Query = r.sourceIndex[c.Query]
			res.Correspondences[i] = c
		}
		logger.Info("Alignment finished",
			zap.Stringer("status", status),
			zap.Int("iterations", res.Iterations),
			zap.Int("correspondences", len(cs)),
		)
		return res
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(StatusIterating, nil), err
		}
		transformed = transformPoints(r.final, r.sourcePoints, transformed)
		src := pcd.NewSliceRandomAccessor(transformed)

		cs, err := r.correspondences(ctx, transformed)
		if err != nil {
			return finish(StatusIterating, nil), err
		}
		for _, rej := range r.opts.rejectors {
			cs = rej.Reject(src, r.target, cs)
		}

		if len(cs) < minCorr {
			r.events.emit(Event{
				Type:            EventDiverged,
				Status:          StatusDiverged,
				Iteration:       res.Iterations,
				Transformation:  r.final,
				Correspondences: len(cs),
			})
			return finish(StatusDiverged, cs), errors.Wrapf(ErrDiverged,
				"%d correspondences, %d required", len(cs), minCorr)
		}

		s, t := cs.Pairs(src, r.target)
		inc, err := r.est.Estimate(s, t)
		if err != nil {
			r.events.emit(Event{
				Type:            EventDiverged,
				Status:          StatusDiverged,
				Iteration:       res.Iterations,
				Transformation:  r.final,
				Correspondences: len(cs),
			})
			return finish(StatusDiverged, cs), multierr.Combine(ErrDiverged, errors.Wrap(err, "estimating transformation"))
		}

		prev := r.final
		r.final = inc.MulAffine(prev)
		res.Iterations++

		meanSq := cs.MeanSqDistance()
		res.MeanSqDistances = append(res.MeanSqDistances, meanSq)
		delta := r.final.Sub(prev).FrobeniusNorm()

		logger.Debug("Iteration",
			zap.Int("iteration", res.Iterations),
			zap.Int("correspondences", len(cs)),
			zap.Float64("mean_sq_distance", meanSq),
			zap.Float64("delta", delta),
		)
		r.events.emit(Event{
			Type:            EventIteration,
			Status:          StatusIterating,
			Iteration:       res.Iterations,
			Transformation:  r.final,
			Correspondences: len(cs),
			MeanSqDistance:  meanSq,
			Delta:           delta,
		})

		converged := delta < r.opts.transformationEpsilon
		if r.opts.euclideanFitnessEpsilon > 0 && !math.IsNaN(prevMeanSq) &&
			math.Abs(meanSq-prevMeanSq) < r.opts.euclideanFitnessEpsilon {
			converged = true
		}
		prevMeanSq = meanSq

		if converged {
			r.events.emit(Event{
				Type:            EventConverged,
				Status:          StatusConverged,
				Iteration:       res.Iterations,
				Transformation:  r.final,
				Correspondences: len(cs),
				MeanSqDistance:  meanSq,
				Delta:           delta,
			})
			return finish(StatusConverged, cs), nil
		}
		if res.Iterations >= r.opts.maxIterations {
			return finish(StatusMaxIterationsReached, cs), nil
		}
	}
}
