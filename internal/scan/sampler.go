package scan

import (
	"math"
	"math/rand"
	"sync"
)

// Sampler draws parameter values for trials.
type Sampler interface {
	// Float draws from [lo, hi], uniformly in log space when log is set.
	Float(name string, lo, hi float64, log bool) float64
	// Int draws from [lo, hi] inclusive.
	Int(name string, lo, hi int) int
}

// RandomSampler draws independent uniform values from a seeded source.
type RandomSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler wraps rng. The sampler owns rng from here on.
func NewRandomSampler(rng *rand.Rand) *RandomSampler {
	return &RandomSampler{rng: rng}
}

func (s *RandomSampler) Float(_ string, lo, hi float64, log bool) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	s.mu.Lock()
	u := s.rng.Float64()
	s.mu.Unlock()

	if log && lo > 0 {
		v := math.Exp(math.Log(lo) + u*(math.Log(hi)-math.Log(lo)))
		return math.Min(math.Max(v, lo), hi)
	}
	return lo + u*(hi-lo)
}

func (s *RandomSampler) Int(_ string, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Intn(hi-lo+1)
}
