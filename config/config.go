// Package config loads the parameters of the search, registration,
// filtering and segmentation stages from YAML.
package config

import (
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd/registration/correspondence"
	"github.com/seqsense/pcalign/pcd/registration/icp"
	"github.com/seqsense/pcalign/pcd/registration/transformation"
	"github.com/seqsense/pcalign/pcd/segmentation/euclidean"
	"github.com/seqsense/pcalign/pcd/storage/kdtree"
)

type Config struct {
	Search       Search       `yaml:"search"`
	ICP          ICP          `yaml:"icp"`
	Filter       Filter       `yaml:"filter"`
	Segmentation Segmentation `yaml:"segmentation"`
}

type Search struct {
	K         int     `yaml:"k"`
	Epsilon   float32 `yaml:"epsilon"`
	Sorted    bool    `yaml:"sorted"`
	MaxNN     int     `yaml:"max_nn"`
	Radius    float64 `yaml:"radius"`
	LeafSize  int     `yaml:"leaf_size"`
	// Organized enables the image-space search on organized clouds.
	Organized bool    `yaml:"organized"`
}

type ICP struct {
	MaxCorrespondenceDistance float64 `yaml:"max_correspondence_distance"`
	TransformationEpsilon     float64 `yaml:"transformation_epsilon"`
	MaxIterations             int     `yaml:"max_iterations"`
	EuclideanFitnessEpsilon   float64 `yaml:"euclidean_fitness_epsilon"`
	Estimator                 string  `yaml:"estimator"`
	Kernel                    string  `yaml:"kernel"`
	KernelSigma               float64 `yaml:"kernel_sigma"`
	Reciprocal                bool    `yaml:"reciprocal"`
	RANSAC                    RANSAC  `yaml:"ransac"`
	TrimRatio                 float64 `yaml:"trim_ratio"`
}

type RANSAC struct {
	Enabled    bool    `yaml:"enabled"`
	Threshold  float32 `yaml:"threshold"`
	Iterations int     `yaml:"iterations"`
	Seed       int64   `yaml:"seed"`
}

type Filter struct {
	// LeafSize of 0 disables downsampling.
	LeafSize float32 `yaml:"leaf_size"`
}

type Segmentation struct {
	Tolerance float64 `yaml:"tolerance"`
	MinSize   int     `yaml:"min_size"`
	MaxSize   int     `yaml:"max_size"`
}

func Default() *Config {
	return &Config{
		Search: Search{
			K:        1,
			Sorted:   true,
			LeafSize: kdtree.DefaultLeafSize,
		},
		ICP: ICP{
			MaxCorrespondenceDistance: 1,
			TransformationEpsilon:     1e-6,
			MaxIterations:             icp.DefaultMaxIterations,
			Estimator:                 transformation.KindLinear.String(),
			Kernel:                    transformation.KernelHuber.String(),
			KernelSigma:               0.1,
			RANSAC: RANSAC{
				Threshold:  correspondence.DefaultRANSACThreshold,
				Iterations: correspondence.DefaultRANSACIterations,
			},
			TrimRatio: 1,
		},
		Segmentation: Segmentation{
			Tolerance: 0.1,
			MinSize:   1,
		},
	}
}

// Load reads a YAML file. Missing keys keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parsing config YAML")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "writing config file")
	}
	return nil
}

// Validate reports every invalid parameter.
func (c *Config) Validate() error {
	var err error
	if c.Search.K < 1 {
		err = multierr.Append(err, errors.Errorf("search.k must be positive: %d", c.Search.K))
	}
	if c.Search.Epsilon < 0 {
		err = multierr.Append(err, errors.Errorf("search.epsilon must not be negative: %g", c.Search.Epsilon))
	}
	if c.Search.MaxNN < 0 {
		err = multierr.Append(err, errors.Errorf("search.max_nn must not be negative: %d", c.Search.MaxNN))
	}
	if c.Search.Radius < 0 {
		err = multierr.Append(err, errors.Errorf("search.radius must not be negative: %g", c.Search.Radius))
	}
	if c.Search.LeafSize < 1 {
		err = multierr.Append(err, errors.Errorf("search.leaf_size must be positive: %d", c.Search.LeafSize))
	}
	if !(c.ICP.MaxCorrespondenceDistance > 0) {
		err = multierr.Append(err, errors.Errorf("icp.max_correspondence_distance must be positive: %g", c.ICP.MaxCorrespondenceDistance))
	}
	if c.ICP.TransformationEpsilon < 0 {
		err = multierr.Append(err, errors.Errorf("icp.transformation_epsilon must not be negative: %g", c.ICP.TransformationEpsilon))
	}
	if c.ICP.MaxIterations < 1 {
		err = multierr.Append(err, errors.Errorf("icp.max_iterations must be positive: %d", c.ICP.MaxIterations))
	}
	if c.ICP.EuclideanFitnessEpsilon < 0 {
		err = multierr.Append(err, errors.Errorf("icp.euclidean_fitness_epsilon must not be negative: %g", c.ICP.EuclideanFitnessEpsilon))
	}
	if _, e := transformation.ParseKind(c.ICP.Estimator); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "icp.estimator"))
	}
	if _, e := transformation.ParseKernel(c.ICP.Kernel); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "icp.kernel"))
	}
	if !(c.ICP.KernelSigma > 0) {
		err = multierr.Append(err, errors.Errorf("icp.kernel_sigma must be positive: %g", c.ICP.KernelSigma))
	}
	if c.ICP.RANSAC.Enabled {
		if !(c.ICP.RANSAC.Threshold > 0) {
			err = multierr.Append(err, errors.Errorf("icp.ransac.threshold must be positive: %g", c.ICP.RANSAC.Threshold))
		}
		if c.ICP.RANSAC.Iterations < 1 {
			err = multierr.Append(err, errors.Errorf("icp.ransac.iterations must be positive: %d", c.ICP.RANSAC.Iterations))
		}
	}
	if !(c.ICP.TrimRatio > 0 && c.ICP.TrimRatio <= 1) {
		err = multierr.Append(err, errors.Errorf("icp.trim_ratio must be in (0, 1]: %g", c.ICP.TrimRatio))
	}
	if c.Filter.LeafSize < 0 {
		err = multierr.Append(err, errors.Errorf("filter.leaf_size must not be negative: %g", c.Filter.LeafSize))
	}
	if !(c.Segmentation.Tolerance > 0) {
		err = multierr.Append(err, errors.Errorf("segmentation.tolerance must be positive: %g", c.Segmentation.Tolerance))
	}
	if c.Segmentation.MaxSize != 0 && c.Segmentation.MaxSize < c.Segmentation.MinSize {
		err = multierr.Append(err, errors.Errorf("segmentation.max_size %d is less than min_size %d", c.Segmentation.MaxSize, c.Segmentation.MinSize))
	}
	return err
}

// TreeOptions returns the kdtree options of the search section.
func (c *Config) TreeOptions(logger *zap.Logger) []kdtree.Option {
	return []kdtree.Option{
		kdtree.WithEpsilon(c.Search.Epsilon),
		kdtree.WithSorted(c.Search.Sorted),
		kdtree.WithLeafSize(c.Search.LeafSize),
		kdtree.WithLogger(logger),
	}
}

// Estimator returns the transformation estimator of the icp section.
func (c *Config) Estimator() (transformation.Estimator, error) {
	kind, err := transformation.ParseKind(c.ICP.Estimator)
	if err != nil {
		return nil, err
	}
	kernel, err := transformation.ParseKernel(c.ICP.Kernel)
	if err != nil {
		return nil, err
	}
	return transformation.New(kind, kernel, c.ICP.KernelSigma)
}

// ICPOptions returns the icp options including the configured rejectors.
func (c *Config) ICPOptions(est transformation.Estimator, logger *zap.Logger) []icp.Option {
	opts := []icp.Option{
		icp.WithMaxIterations(c.ICP.MaxIterations),
		icp.WithTransformationEpsilon(c.ICP.TransformationEpsilon),
		icp.WithEuclideanFitnessEpsilon(c.ICP.EuclideanFitnessEpsilon),
		icp.WithMaxCorrespondenceDistance(c.ICP.MaxCorrespondenceDistance),
		icp.WithReciprocal(c.ICP.Reciprocal),
		icp.WithLogger(logger),
		icp.WithTreeOptions(c.TreeOptions(logger)...),
	}
	if c.ICP.TrimRatio < 1 {
		opts = append(opts, icp.WithRejectors(correspondence.TrimmedRejector{
			Ratio:              c.ICP.TrimRatio,
			MinCorrespondences: est.MinCorrespondences(),
		}))
	}
	if c.ICP.RANSAC.Enabled {
		opts = append(opts, icp.WithRejectors(&correspondence.SampleConsensusRejector{
			Estimator:     transformation.SVD{},
			Threshold:     c.ICP.RANSAC.Threshold,
			MaxIterations: c.ICP.RANSAC.Iterations,
			Rand:          rand.New(rand.NewSource(c.ICP.RANSAC.Seed)),
			Logger:        logger,
		}))
	}
	return opts
}

// LeafSize returns the voxel size of the filter section.
func (c *Config) LeafSize() mat.Vec3 {
	l := c.Filter.LeafSize
	return mat.Vec3{l, l, l}
}

func (c *Config) SegmentationOptions() euclidean.Options {
	return euclidean.Options{
		Tolerance: c.Segmentation.Tolerance,
		MinSize:   c.Segmentation.MinSize,
		MaxSize:   c.Segmentation.MaxSize,
	}
}
