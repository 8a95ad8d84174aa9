package sampler

import (
	"fmt"
	"math"
)

// Weighted pairs an outcome with its relative weight.
type Weighted[T any] struct {
	Weight float64
	Value  T
}

// W is shorthand for Weighted[T]{Weight: weight, Value: v}.
func W[T any](weight float64, v T) Weighted[T] {
	return Weighted[T]{Weight: weight, Value: v}
}

// ValidateTable reports whether table can be sampled: it must be non-empty,
// weights must be finite and non-negative, and at least one must be positive.
func ValidateTable[T any](table []Weighted[T]) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: empty weight table", ErrInvalidParameter)
	}

	var total float64
	for i, w := range table {
		if w.Weight < 0 || math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			return fmt.Errorf("%w: weight[%d] = %v", ErrInvalidParameter, i, w.Weight)
		}
		total += w.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidParameter)
	}

	return nil
}

// Choose draws one value from table with probability proportional to its weight.
func Choose[T any](s *Sampler, table []Weighted[T]) (T, error) {
	var zero T
	if err := ValidateTable(table); err != nil {
		return zero, err
	}

	var total float64
	for _, w := range table {
		total += w.Weight
	}

	target := s.rng.Float64() * total
	for _, w := range table {
		if target < w.Weight {
			return w.Value, nil
		}
		target -= w.Weight
	}

	// Floating point residue: fall back to the last positive entry.
	for i := len(table) - 1; i >= 0; i-- {
		if table[i].Weight > 0 {
			return table[i].Value, nil
		}
	}

	return zero, fmt.Errorf("%w: no positive weight", ErrInvalidParameter)
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](s *Sampler, items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, fmt.Errorf("%w: empty slice", ErrInvalidParameter)
	}

	return items[s.rng.IntN(len(items))], nil
}
