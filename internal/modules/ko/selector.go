package ko

import (
	"fmt"
	"math"
)

// Selection describes how many predictive components to keep. K > 0 imposes the
// count; K == 0 derives it as the smallest count whose cumulative explanatory
// power reaches Threshold.
type Selection struct {
	K         int
	Threshold float64
}

// Imposed reports whether the component count is fixed by the caller.
func (s Selection) Imposed() bool { return s.K > 0 }

// Validate checks the selection against the dimension m of the series.
func (s Selection) Validate(m int) error {
	if s.K < 0 || s.K > m {
		return fmt.Errorf("%w: k=%d, m=%d", ErrInvalidComponentCount, s.K, m)
	}
	if !s.Imposed() && !(s.Threshold > 0 && s.Threshold < 1) {
		return fmt.Errorf("%w: got %g", ErrInvalidThreshold, s.Threshold)
	}
	return nil
}

// SelectComponents returns the number of components to retain. values must be
// sorted in descending order and total is the spectral mass they are measured
// against (trace of the operator they came from).
func SelectComponents(values []float64, total float64, sel Selection) (int, error) {
	m := len(values)
	if err := sel.Validate(m); err != nil {
		return 0, err
	}
	if sel.Imposed() {
		return sel.K, nil
	}
	// No predictive energy at all: a single component is as good as any.
	if !(total > 0) {
		return 1, nil
	}

	var cum float64
	for i, v := range values {
		cum += math.Max(v, 0)
		if cum/total >= sel.Threshold {
			return i + 1, nil
		}
	}
	return m, nil
}

// ExplanatoryPower returns the cumulative share of total captured by each prefix
// of values. The result is non-decreasing and capped at 1.
func ExplanatoryPower(values []float64, total float64) []float64 {
	out := make([]float64, len(values))
	if !(total > 0) {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	var cum float64
	for i, v := range values {
		cum += math.Max(v, 0)
		out[i] = math.Min(cum/total, 1)
	}
	return out
}
