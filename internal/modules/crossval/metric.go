package crossval

import (
	"fmt"
	"strings"
)

// ErrorMetric scores a prediction against the observed curve.
type ErrorMetric interface {
	Name() string
	Error(predicted, observed []float64) (float64, error)
}

// MetricMSE is the tag of MSE.
const MetricMSE = "mse"

// MSE is the mean squared error over domain points.
type MSE struct{}

// Name implements ErrorMetric.
func (MSE) Name() string { return MetricMSE }

// Error implements ErrorMetric.
func (MSE) Error(predicted, observed []float64) (float64, error) {
	if len(predicted) != len(observed) || len(predicted) == 0 {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(predicted), len(observed))
	}
	var sum float64
	for i, p := range predicted {
		d := p - observed[i]
		sum += d * d
	}
	return sum / float64(len(predicted)), nil
}

// NewErrorMetric resolves an error metric tag.
func NewErrorMetric(tag string) (ErrorMetric, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", MetricMSE:
		return MSE{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, tag)
	}
}
