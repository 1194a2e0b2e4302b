package entropy

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnnormalizable is returned when a weight list has no positive mass or
// contains a negative or non-finite entry.
var ErrUnnormalizable = errors.New("weights cannot be normalized")

// Normalize returns a copy of weights divided by their sum so the result
// sums to 1.0.
func Normalize(weights []float64) ([]float64, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: empty weight list", ErrUnnormalizable)
	}
	total := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: weight %d is %v", ErrUnnormalizable, i, w)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: weights sum to %v", ErrUnnormalizable, total)
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / total
	}
	return out, nil
}

// PickIndex selects an index from normalized weights by cumulative-sum
// comparison against u in [0, 1). Zero-weight entries are never chosen.
func PickIndex(normalized []float64, u float64) int {
	acc := 0.0
	last := -1
	for i, w := range normalized {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if u < acc {
			return i
		}
	}
	// Rounding can leave acc a hair under 1.0.
	return last
}
