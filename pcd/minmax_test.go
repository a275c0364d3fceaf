package pcd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsense/pcalign/mat"
)

func TestMinMaxVec3(t *testing.T) {
	nan := float32(math.NaN())
	pc := NewPointCloud([]mat.Vec3{
		{10.1, -20.2, 3.3},
		{1.1, 2.2, 4.3},
		{nan, 100, 100},
		{15.1, 21.2, 0.3},
	})

	expectedMin := mat.Vec3{1.1, -20.2, 0.3}
	expectedMax := mat.Vec3{15.1, 21.2, 4.3}

	min, max, err := MinMaxVec3(pc)
	require.NoError(t, err)

	assert.True(t, expectedMin.Equal(min), "Expected min: %v, got: %v", expectedMin, min)
	assert.True(t, expectedMax.Equal(max), "Expected max: %v, got: %v", expectedMax, max)

	t.Run("Empty", func(t *testing.T) {
		_, _, err := MinMaxVec3(NewPointCloud([]mat.Vec3{{nan, 0, 0}}))
		assert.ErrorIs(t, err, ErrEmptyCloud)
	})
}
