// Package sampler draws the random quantities that drive the simulation:
// durations from scaled ranges, boolean outcomes and weighted choices.
//
// A Sampler is not safe for concurrent use. Each simulated session owns its
// own Sampler, derived from the batch seed and the session sequence number.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrInvalidParameter is returned when a range or weight table cannot be sampled.
var ErrInvalidParameter = errors.New("sampler: invalid parameter")

// Range is a closed numeric interval. Durations are expressed in milliseconds.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// R is shorthand for Range{Min: lo, Max: hi}.
func R(lo, hi float64) Range { return Range{Min: lo, Max: hi} }

// Validate reports whether the range can be sampled.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return fmt.Errorf("%w: range bound is NaN", ErrInvalidParameter)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: range min %v > max %v", ErrInvalidParameter, r.Min, r.Max)
	}

	return nil
}

// Scale returns the range multiplied by m.
func (r Range) Scale(m float64) Range {
	return Range{Min: r.Min * m, Max: r.Max * m}
}

// IntRange is a closed integer interval.
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Validate reports whether the range can be sampled.
func (r IntRange) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: range min %d > max %d", ErrInvalidParameter, r.Min, r.Max)
	}

	return nil
}

// Sampler wraps a PCG source.
type Sampler struct {
	rng *rand.Rand
}

// New returns a Sampler seeded with (seed, stream). Equal arguments produce
// equal sequences.
func New(seed, stream uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, stream))} //nolint:gosec // simulation randomness
}

// NewUnseeded returns a Sampler seeded from the runtime's random source.
func NewUnseeded() *Sampler {
	return New(rand.Uint64(), rand.Uint64()) //nolint:gosec // simulation randomness
}

// RandomSeed returns a fresh non-zero seed.
func RandomSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 { //nolint:gosec // simulation randomness
			return s
		}
	}
}

// Duration returns a value uniformly distributed in
// [r.Min*multiplier, r.Max*multiplier].
func (s *Sampler) Duration(r Range, multiplier float64) (float64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if multiplier < 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return 0, fmt.Errorf("%w: multiplier %v", ErrInvalidParameter, multiplier)
	}

	lo := r.Min * multiplier
	hi := r.Max * multiplier

	return lo + s.rng.Float64()*(hi-lo), nil
}

// Uniform is Duration with a multiplier of one.
func (s *Sampler) Uniform(r Range) (float64, error) {
	return s.Duration(r, 1)
}

// Outcome returns true with probability p. p is clamped to [0, 1]; a uniform
// draw in [0, 1) succeeds when it is at least 1-p.
func (s *Sampler) Outcome(p float64) bool {
	p = Clamp01(p)

	return s.rng.Float64() >= 1-p
}

// IntN returns an integer uniformly distributed in [r.Min, r.Max].
func (s *Sampler) IntN(r IntRange) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	return r.Min + s.rng.IntN(r.Max-r.Min+1), nil
}

// Float64 returns a uniform draw in [0, 1).
func (s *Sampler) Float64() float64 {
	return s.rng.Float64()
}

// Uint64 returns a uniform 64-bit value.
func (s *Sampler) Uint64() uint64 {
	return s.rng.Uint64()
}

// Read fills p with pseudo-random bytes so a Sampler can act as an
// io.Reader for deterministic identifiers. It never fails.
func (s *Sampler) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := s.rng.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}

	return len(p), nil
}

// Perm returns a random permutation of [0, n).
func (s *Sampler) Perm(n int) []int {
	return s.rng.Perm(n)
}

// Clamp01 limits p to [0, 1]. NaN becomes 0.
func Clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Millis converts a millisecond quantity to a time.Duration.
func Millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
