package sampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestOutcome_SuccessRateConverges(t *testing.T) {
	s := New(42, 0)
	const draws = 100_000

	successes := 0
	for range draws {
		if s.Outcome(0.30) {
			successes++
		}
	}

	rate := float64(successes) / draws
	assert.InDelta(t, 0.30, rate, 0.01, "observed success rate %v", rate)
}

func TestOutcome_Clamped(t *testing.T) {
	s := New(7, 1)

	for range 1000 {
		assert.True(t, s.Outcome(1.5))
		assert.True(t, s.Outcome(1))
		assert.False(t, s.Outcome(-0.2))
		assert.False(t, s.Outcome(0))
		assert.False(t, s.Outcome(math.NaN()))
	}
}

func TestDuration_MeanConverges(t *testing.T) {
	s := New(99, 3)
	const draws = 100_000

	var sum float64
	for range draws {
		v, err := s.Duration(R(100, 300), 2)
		require.NoError(t, err)
		sum += v
	}

	assert.InDelta(t, 400, sum/draws, 2)
}

func TestDuration_WithinScaledBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.Float64Range(0, 10_000).Draw(t, "lo")
		width := rapid.Float64Range(0, 10_000).Draw(t, "width")
		mult := rapid.Float64Range(0, 10).Draw(t, "multiplier")
		seed := rapid.Uint64().Draw(t, "seed")

		s := New(seed, 0)
		r := R(lo, lo+width)
		for range 50 {
			v, err := s.Duration(r, mult)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v < r.Min*mult || v > r.Max*mult {
				t.Fatalf("draw %v outside [%v, %v]", v, r.Min*mult, r.Max*mult)
			}
		}
	})
}

func TestDuration_InvalidParameters(t *testing.T) {
	s := New(1, 1)

	tests := []struct {
		name string
		r    Range
		mult float64
	}{
		{"min greater than max", R(10, 5), 1},
		{"negative multiplier", R(1, 5), -1},
		{"NaN bound", R(math.NaN(), 5), 1},
		{"infinite multiplier", R(1, 5), math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Duration(tt.r, tt.mult)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestDuration_DegenerateRange(t *testing.T) {
	s := New(1, 1)

	v, err := s.Duration(R(50, 50), 1.5)
	require.NoError(t, err)
	assert.InDelta(t, 75, v, 1e-9)
}

func TestIntN(t *testing.T) {
	s := New(5, 5)
	seen := map[int]bool{}

	for range 2000 {
		v, err := s.IntN(IntRange{Min: 3, Max: 6})
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, 3)
		require.LessOrEqual(t, v, 6)
		seen[v] = true
	}

	assert.Len(t, seen, 4)

	_, err := s.IntN(IntRange{Min: 4, Max: 2})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNew_Deterministic(t *testing.T) {
	a := New(11, 2)
	b := New(11, 2)
	c := New(11, 3)

	var sameAsC int
	for range 100 {
		va, vb, vc := a.Float64(), b.Float64(), c.Float64()
		assert.Equal(t, va, vb)
		if va == vc {
			sameAsC++
		}
	}
	assert.Less(t, sameAsC, 100, "different streams should diverge")
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-1))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
	assert.Equal(t, 0.25, Clamp01(0.25))
	assert.Equal(t, 1.0, Clamp01(3))
}

func TestRandomSeed_NonZero(t *testing.T) {
	for range 100 {
		assert.NotZero(t, RandomSeed())
	}
}

func TestRead_Deterministic(t *testing.T) {
	a, b := New(9, 4), New(9, 4)

	bufA := make([]byte, 13)
	bufB := make([]byte, 13)
	n, err := a.Read(bufA)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	_, _ = b.Read(bufB)

	assert.Equal(t, bufA, bufB)
	assert.NotEqual(t, make([]byte, 13), bufA)
}
