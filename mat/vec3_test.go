package mat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, 5, 6)

	assert.Equal(t, Vec3{5, 7, 9}, a.Add(b))
	assert.Equal(t, Vec3{-3, -3, -3}, a.Sub(b))
	assert.Equal(t, float32(32), a.Dot(b))
	assert.Equal(t, Vec3{-3, 6, -3}, a.Cross(b))
	assert.Equal(t, float32(27), a.DistSq(b))
	assert.InDelta(t, 1, a.Normalized().Norm(), 1e-6)
}

func TestVec3IsFinite(t *testing.T) {
	for name, tt := range map[string]struct {
		v      Vec3
		finite bool
	}{
		"Finite": {v: Vec3{1, 2, 3}, finite: true},
		"NaN":    {v: Vec3{float32(math.NaN()), 0, 0}},
		"Inf":    {v: Vec3{0, float32(math.Inf(-1)), 0}},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.finite, tt.v.IsFinite())
		})
	}
}
