package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/filter/voxelgrid"
	"github.com/seqsense/pcalign/pcd/registration/icp"
)

type alignReport struct {
	Status         string        `yaml:"status"`
	Iterations     int           `yaml:"iterations"`
	Fitness        float64       `yaml:"fitness"`
	Transformation [4][4]float32 `yaml:"transformation"`
	Inverse        [4][4]float32 `yaml:"inverse"`
	Translation    [3]float32    `yaml:"translation"`
	// Rotation is a unit quaternion in w, x, y, z order.
	Rotation       [4]float64    `yaml:"rotation"`
}

func rows(m mat.Mat4) [4][4]float32 {
	var out [4][4]float32
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out[row][col] = m.At(row, col)
		}
	}
	return out
}

func newAlignReport(res icp.Result, fitness float64) alignReport {
	q := res.Transformation.Quat()
	return alignReport{
		Status:         res.Status.String(),
		Iterations:     res.Iterations,
		Fitness:        fitness,
		Transformation: rows(res.Transformation),
		Inverse:        rows(res.Transformation.InvAffine()),
		Translation:    res.Transformation.Translation(),
		Rotation:       [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
	}
}

func guessMatrix(v []float64) (mat.Mat4, error) {
	switch len(v) {
	case 0:
		return mat.Identity(), nil
	case 6:
	default:
		return mat.Mat4{}, errors.Errorf("guess needs 6 values, got %d", len(v))
	}
	return mat.Translate(float32(v[0]), float32(v[1]), float32(v[2])).
		MulAffine(mat.Rotate(0, 0, 1, float32(v[5]))).
		MulAffine(mat.Rotate(0, 1, 0, float32(v[4]))).
		MulAffine(mat.Rotate(1, 0, 0, float32(v[3]))), nil
}

// prepareCloud drops non-finite points and downsamples when leaf is positive.
func prepareCloud(cloud *pcd.PointCloud[mat.Vec3], leaf float32) (*pcd.PointCloud[mat.Vec3], error) {
	cloud, _ = pcd.RemoveInvalid[mat.Vec3](pcd.Vec3Representation{}, cloud)
	if cloud.Len() == 0 {
		return nil, errors.Wrap(pcd.ErrEmptyCloud, "no valid point")
	}
	if leaf <= 0 {
		return cloud, nil
	}
	return voxelgrid.New(mat.Vec3{leaf, leaf, leaf}).Filter(cloud)
}

func alignAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	guess, err := guessMatrix(c.Float64Slice(flagGuess))
	if err != nil {
		return err
	}

	srcPCD, err := readPCD(c.String(flagSource))
	if err != nil {
		return err
	}
	tgtPCD, err := readPCD(c.String(flagTarget))
	if err != nil {
		return err
	}
	src, err := toCloud(srcPCD)
	if err != nil {
		return errors.Wrap(err, "source")
	}
	tgt, err := toCloud(tgtPCD)
	if err != nil {
		return errors.Wrap(err, "target")
	}
	if src, err = prepareCloud(src, cfg.Filter.LeafSize); err != nil {
		return errors.Wrap(err, "filtering source")
	}
	if tgt, err = prepareCloud(tgt, cfg.Filter.LeafSize); err != nil {
		return errors.Wrap(err, "filtering target")
	}
	logger.Debug("Loaded clouds",
		zap.Int("source", src.Len()),
		zap.Int("target", tgt.Len()),
	)

	est, err := cfg.Estimator()
	if err != nil {
		return err
	}
	reg := icp.New(est, cfg.ICPOptions(est, logger)...)
	if err := reg.SetInputSource(src, nil); err != nil {
		return err
	}
	if err := reg.SetInputTarget(tgt); err != nil {
		return err
	}
	res, err := reg.Align(c.Context, guess)
	if err != nil && !errors.Is(err, icp.ErrDiverged) {
		return err
	}
	diverged := err

	fitness, err := reg.FitnessScore(c.Context, cfg.ICP.MaxCorrespondenceDistance)
	if err != nil && !errors.Is(err, icp.ErrNoOverlap) {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(newAlignReport(*res, fitness)); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if out := c.String(flagOutput); out != "" {
		if err := transformPCD(srcPCD, res.Transformation); err != nil {
			return err
		}
		if err := writePCD(out, srcPCD); err != nil {
			return err
		}
	}
	return diverged
}
