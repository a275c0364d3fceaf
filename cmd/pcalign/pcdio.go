package main

import (
	"os"

	"github.com/pkg/errors"
	pcmat "github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

func readPCD(path string) (*pc.PointCloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening pcd")
	}
	defer f.Close()

	pp, err := pc.Unmarshal(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return pp, nil
}

func writePCD(path string, pp *pc.PointCloud) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating pcd")
	}
	if err := pc.Marshal(pp, f); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %s", path)
	}
	return f.Close()
}

// toCloud copies the xyz fields of a decoded PCD.
func toCloud(pp *pc.PointCloud) (*pcd.PointCloud[mat.Vec3], error) {
	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	points := make([]mat.Vec3, 0, pp.Points)
	dense := true
	for ; it.IsValid(); it.Incr() {
		p := mat.Vec3(it.Vec3())
		if !p.IsFinite() {
			dense = false
		}
		points = append(points, p)
	}
	cloud := pcd.NewPointCloud(points)
	if pp.Height > 1 && pp.Width*pp.Height == len(points) {
		cloud.Width, cloud.Height = pp.Width, pp.Height
	}
	cloud.IsDense = dense
	return cloud, nil
}

// transformPCD applies m to the xyz fields of pp in place.
// Other fields are kept.
func transformPCD(pp *pc.PointCloud, m mat.Mat4) error {
	it, err := pp.Vec3Iterator()
	if err != nil {
		return err
	}
	for ; it.IsValid(); it.Incr() {
		p := mat.Vec3(it.Vec3())
		if !p.IsFinite() {
			continue
		}
		it.SetVec3(pcmat.Vec3(m.TransformAffine(p)))
	}
	return nil
}

// labeledPCD returns a copy of the xyz fields of pp with a label field.
func labeledPCD(pp *pc.PointCloud, labels []uint32) (*pc.PointCloud, error) {
	if len(labels) != pp.Points {
		return nil, errors.Errorf("%d labels for %d points", len(labels), pp.Points)
	}
	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	out := &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Version:   pp.Version,
			Fields:    []string{"x", "y", "z", "label"},
			Size:      []int{4, 4, 4, 4},
			Type:      []string{"F", "F", "F", "U"},
			Count:     []int{1, 1, 1, 1},
			Viewpoint: pp.Viewpoint,
			Width:     pp.Points,
			Height:    1,
		},
		Points: pp.Points,
	}
	out.Data = make([]byte, pp.Points*out.Stride())

	jt, err := out.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	lt, err := out.Uint32Iterator("label")
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		jt.SetVec3(it.Vec3())
		lt.SetUint32(l)
		it.Incr()
		jt.Incr()
		lt.Incr()
	}
	return out, nil
}
