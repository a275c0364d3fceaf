package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/seqsense/pcalign/pcd/registration/transformation"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	est, err := c.Estimator()
	require.NoError(t, err)
	assert.Equal(t, transformation.SVD{}.MinCorrespondences(), est.MinCorrespondences())
	assert.Len(t, c.ICPOptions(est, zap.NewNop()), 7)
	assert.Len(t, c.TreeOptions(zap.NewNop()), 4)
}

func TestParse(t *testing.T) {
	for name, tt := range map[string]struct {
		input   string
		check   func(t *testing.T, c *Config)
		nErrors int
	}{
		"Empty": {
			input: "",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, Default(), c)
			},
		},
		"Override": {
			input: `
search:
  k: 5
  epsilon: 0.1
  organized: true
icp:
  estimator: lm
  kernel: gedikli
  kernel_sigma: 0.5
  trim_ratio: 0.8
  ransac:
    enabled: true
    seed: 3
filter:
  leaf_size: 0.2
`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 5, c.Search.K)
				assert.Equal(t, float32(0.1), c.Search.Epsilon)
				assert.True(t, c.Search.Organized)
				assert.Equal(t, Default().Search.LeafSize, c.Search.LeafSize)
				assert.Equal(t, float32(0.2), c.LeafSize()[2])

				est, err := c.Estimator()
				require.NoError(t, err)
				lm, ok := est.(*transformation.LM)
				require.True(t, ok, "expected LM, got %T", est)
				assert.Equal(t, transformation.KernelGedikli, lm.Kernel)

				// trimmed and sample consensus rejectors
				assert.Len(t, c.ICPOptions(est, zap.NewNop()), 9)
			},
		},
		"Invalid": {
			input: `
search:
  k: 0
icp:
  estimator: foo
  trim_ratio: 1.5
segmentation:
  min_size: 10
  max_size: 5
`,
			nErrors: 4,
		},
		"Syntax": {
			input:   "search: [",
			nErrors: 1,
		},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			c, err := Parse([]byte(tt.input))
			if tt.nErrors > 0 {
				require.Error(t, err)
				assert.Len(t, multierr.Errors(err), tt.nErrors)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcalign.yaml")
	require.NoError(t, os.WriteFile(path, []byte("icp:\n  max_iterations: 30\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, c.ICP.MaxIterations)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcalign.yaml")
	c := Default()
	c.Segmentation.MaxSize = 100
	require.NoError(t, Save(path, c))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
