// Package entropy provides the seedable random streams used by every
// stochastic system in a session, and the shared weighted draw.
// Each subsystem forks its own stream from the session seed so that adding
// a draw in one system never shifts the sequence seen by another.
package entropy

import (
	"math/rand"
)

// Stream salts. Offsets keep subsystem sequences independent of each other.
const (
	SaltTraffic  int64 = 100
	SaltReaction int64 = 200
	SaltEvents   int64 = 300
	SaltWeather  int64 = 400
	SaltPilot    int64 = 500
)

// Source is a deterministic random stream.
type Source struct {
	seed int64
	rng  *rand.Rand
}

// New creates a stream for the given seed.
func New(seed int64) *Source {
	return &Source{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Fork derives an independent stream keyed by salt.
func (s *Source) Fork(salt int64) *Source {
	return New(s.seed + salt)
}

// Seed returns the seed the stream was created with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Float returns a value in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Range returns a value uniformly distributed in [lo, hi).
// A degenerate range returns lo.
func (s *Source) Range(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}

// Chance reports true with probability p. p outside [0, 1] saturates.
func (s *Source) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.rng.Float64() < p
}

// Intn returns a value in [0, n). n <= 0 returns 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// Pick normalizes weights and draws one index from them.
func (s *Source) Pick(weights []float64) (int, error) {
	norm, err := Normalize(weights)
	if err != nil {
		return -1, err
	}
	return PickIndex(norm, s.Float()), nil
}
