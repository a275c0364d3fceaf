package main

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/seqsense/pcalign/config"
	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/search"
	"github.com/seqsense/pcalign/pcd/storage/kdtree"
)

// newSearcher indexes cloud. Organized clouds use the image structure
// when search.organized is set and the cloud fits a pinhole projection.
func newSearcher(cloud *pcd.PointCloud[mat.Vec3], cfg *config.Config, logger *zap.Logger) (search.Searcher[mat.Vec3], error) {
	if cfg.Search.Organized && cloud.IsOrganized() {
		on := search.NewOrganizedNeighbor[mat.Vec3](pcd.Vec3Representation{})
		err := on.SetInputCloud(cloud, nil)
		if err == nil {
			logger.Debug("Using organized search",
				zap.Int("width", cloud.Width),
				zap.Int("height", cloud.Height),
				zap.Float64("inv_focal_length", on.InvFocalLength()),
			)
			return on, nil
		}
		if !errors.Is(err, search.ErrNotProjectable) {
			return nil, err
		}
		logger.Warn("Falling back to kd-tree search", zap.Error(err))
	}
	tree := kdtree.New[mat.Vec3](pcd.Vec3Representation{}, cfg.TreeOptions(logger)...)
	if err := tree.SetInputCloud(cloud, nil); err != nil {
		return nil, err
	}
	return tree, nil
}
