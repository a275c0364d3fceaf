package pcd

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/seqsense/pcalign/mat"
)

// PointCloud is a collection of points of type P.
// Height == 1 means the cloud is unorganized.
type PointCloud[P any] struct {
	Points  []P
	Width   int
	Height  int
	IsDense bool

	// SensorOrigin and SensorOrientation are carried for persistence only.
	SensorOrigin      mat.Vec3
	SensorOrientation quat.Number
}

// NewPointCloud returns an unorganized cloud holding pp.
func NewPointCloud[P any](pp []P) *PointCloud[P] {
	return &PointCloud[P]{
		Points:            pp,
		Width:             len(pp),
		Height:            1,
		SensorOrientation: quat.Number{Real: 1},
	}
}

func (pc *PointCloud[P]) Len() int {
	if pc == nil {
		return 0
	}
	return len(pc.Points)
}

func (pc *PointCloud[P]) At(i int) P {
	return pc.Points[i]
}

// Point returns the point at index i, or ErrIndexOutOfRange.
func (pc *PointCloud[P]) Point(i int) (P, error) {
	if i < 0 || i >= pc.Len() {
		var zero P
		return zero, errors.Wrapf(ErrIndexOutOfRange, "index %d, cloud size %d", i, pc.Len())
	}
	return pc.Points[i], nil
}

func (pc *PointCloud[P]) IsOrganized() bool {
	return pc.Height > 1
}

// Clone returns a deep copy of the cloud.
func (pc *PointCloud[P]) Clone() *PointCloud[P] {
	out := *pc
	out.Points = append([]P(nil), pc.Points...)
	return &out
}

// CheckIndices validates that every index addresses a point of the cloud.
func (pc *PointCloud[P]) CheckIndices(indices []int) error {
	n := pc.Len()
	for i, idx := range indices {
		if idx < 0 || idx >= n {
			return errors.Wrapf(ErrIndexOutOfRange, "indices[%d] = %d, cloud size %d", i, idx, n)
		}
	}
	return nil
}
