package main

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd/segmentation/euclidean"
)

// clusterLabels returns 1-based cluster labels, 0 for unclustered points.
func clusterLabels(n int, clusters [][]int) []uint32 {
	labels := make([]uint32, n)
	for i, c := range clusters {
		for _, idx := range c {
			labels[idx] = uint32(i + 1)
		}
	}
	return labels
}

func clusterAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
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
	clusters, err := euclidean.Extract[mat.Vec3](cloud, tree, cfg.SegmentationOptions())
	if err != nil {
		return err
	}
	logger.Info("Extracted clusters", zap.Int("clusters", len(clusters)))

	out, err := labeledPCD(pp, clusterLabels(cloud.Len(), clusters))
	if err != nil {
		return err
	}
	return writePCD(c.String(flagOutput), out)
}
