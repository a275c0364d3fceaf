package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
)

const flagPoint = "point"

type neighbor struct {
	Index    int        `yaml:"index"`
	Point    [3]float32 `yaml:"point"`
	Distance float32    `yaml:"sq_distance"`
}

func neighbors(cloud *pcd.PointCloud[mat.Vec3], indices []int, dists []float32) []neighbor {
	points := pcd.Collect(pcd.NewIndiceRandomAccessor[mat.Vec3](cloud, indices))
	out := make([]neighbor, len(indices))
	for i, idx := range indices {
		out[i] = neighbor{Index: idx, Point: points[i], Distance: dists[i]}
	}
	return out
}

// searchAction runs a radius search if search.radius is set,
// a k-nearest search otherwise.
func searchAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	v := c.Float64Slice(flagPoint)
	if len(v) != 3 {
		return errors.Errorf("point needs 3 values, got %d", len(v))
	}
	query := mat.NewVec3(float32(v[0]), float32(v[1]), float32(v[2]))

	pp, err := readPCD(c.String(flagInput))
	if err != nil {
		return err
	}
	cloud, err := toCloud(pp)
	if err != nil {
		return err
	}
	tree, err := newSearcher(cloud, cfg, logger)
	if err != nil {
		return err
	}

	var indices []int
	var dists []float32
	if cfg.Search.Radius > 0 {
		indices, dists, err = tree.RadiusSearch(query, cfg.Search.Radius, cfg.Search.MaxNN)
	} else {
		indices, dists, err = tree.NearestKSearch(query, cfg.Search.K)
	}
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(neighbors(cloud, indices, dists)); err != nil {
		return err
	}
	return enc.Close()
}
