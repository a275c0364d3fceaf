package sac

import (
	"math/rand"
)

// NewRandomSampler returns a Sampler drawing uniformly from [0, n).
// A nil rnd uses the global source.
func NewRandomSampler(n int, rnd *rand.Rand) Sampler {
	if n < 0x8000000 {
		return &randomSampler31{n: int32(n), rnd: rnd}
	}
	return &randomSampler63{n: int64(n), rnd: rnd}
}

type randomSampler31 struct {
	n   int32
	rnd *rand.Rand
}

func (s *randomSampler31) Sample() int {
	if s.rnd == nil {
		return int(rand.Int31n(s.n))
	}
	return int(s.rnd.Int31n(s.n))
}

type randomSampler63 struct {
	n   int64
	rnd *rand.Rand
}

func (s *randomSampler63) Sample() int {
	if s.rnd == nil {
		return int(rand.Int63n(s.n))
	}
	return int(s.rnd.Int63n(s.n))
}
