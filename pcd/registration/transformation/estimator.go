// Package transformation estimates rigid transformations from paired points.
package transformation

import (
	"github.com/pkg/errors"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

var (
	ErrTooFewCorrespondences = errors.New("too few correspondences")
	ErrSizeMismatch          = errors.New("source and target sizes differ")
	ErrDegenerate            = errors.New("degenerate correspondences")
	ErrUnknownKind           = errors.New("unknown estimator kind")
	ErrUnknownKernel         = errors.New("unknown kernel")
)

// Estimator computes the rigid transformation T minimizing the distances
// between T*src[i] and tgt[i].
type Estimator interface {
	Estimate(src, tgt pcd.RandomAccessor[mat.Vec3]) (mat.Mat4, error)
	MinCorrespondences() int
	Kind() Kind
}

type Kind int

const (
	KindLinear Kind = iota
	KindNonLinear
)

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindNonLinear:
		return "nonlinear"
	default:
		return "unknown"
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "linear", "svd":
		return KindLinear, nil
	case "nonlinear", "lm":
		return KindNonLinear, nil
	}
	return 0, errors.Wrapf(ErrUnknownKind, "%q", s)
}

// New returns the estimator of the given kind.
// kernel and sigma are used by the nonlinear estimator only.
func New(kind Kind, kernel Kernel, sigma float64) (Estimator, error) {
	switch kind {
	case KindLinear:
		return SVD{}, nil
	case KindNonLinear:
		if _, err := ParseKernel(kernel.String()); err != nil {
			return nil, err
		}
		if sigma <= 0 {
			return nil, errors.Errorf("kernel sigma must be positive: %g", sigma)
		}
		return NewLM(kernel, sigma), nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%d", int(kind))
}

func checkInput(src, tgt pcd.RandomAccessor[mat.Vec3], min int) error {
	if src.Len() != tgt.Len() {
		return errors.Wrapf(ErrSizeMismatch, "%d != %d", src.Len(), tgt.Len())
	}
	if src.Len() < min {
		return errors.Wrapf(ErrTooFewCorrespondences, "%d < %d", src.Len(), min)
	}
	return nil
}
