package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoose_Distribution(t *testing.T) {
	s := New(2024, 0)
	table := []Weighted[string]{
		W(50.0, "success"),
		W(15.0, "failure"),
		W(15.0, "partial"),
		W(20.0, "timeout"),
	}

	const draws = 100_000
	counts := map[string]int{}
	for range draws {
		v, err := Choose(s, table)
		require.NoError(t, err)
		counts[v]++
	}

	assert.InDelta(t, 0.50, float64(counts["success"])/draws, 0.01)
	assert.InDelta(t, 0.15, float64(counts["failure"])/draws, 0.01)
	assert.InDelta(t, 0.15, float64(counts["partial"])/draws, 0.01)
	assert.InDelta(t, 0.20, float64(counts["timeout"])/draws, 0.01)
}

func TestChoose_ZeroWeightNeverChosen(t *testing.T) {
	s := New(1, 0)
	table := []Weighted[int]{W(0.0, 1), W(1.0, 2), W(0.0, 3)}

	for range 1000 {
		v, err := Choose(s, table)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	}
}

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name  string
		table []Weighted[int]
		valid bool
	}{
		{"empty", nil, false},
		{"all zero", []Weighted[int]{W(0.0, 1), W(0.0, 2)}, false},
		{"negative", []Weighted[int]{W(-1.0, 1), W(2.0, 2)}, false},
		{"valid", []Weighted[int]{W(1.0, 1), W(0.0, 2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTable(tt.table)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidParameter)
			}
		})
	}
}

func TestPick(t *testing.T) {
	s := New(3, 3)

	v, err := Pick(s, []string{"only"})
	require.NoError(t, err)
	assert.Equal(t, "only", v)

	_, err = Pick(s, []string{})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
