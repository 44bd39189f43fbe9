package crossval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandingWindow_Folds(t *testing.T) {
	folds, err := ExpandingWindow{MinTrain: 5, MaxTrain: 9}.Folds(10)
	require.NoError(t, err)

	assert.Equal(t, []Fold{
		{Train: 5, Validation: 5},
		{Train: 6, Validation: 6},
		{Train: 7, Validation: 7},
		{Train: 8, Validation: 8},
	}, folds)
}

func TestExpandingWindow_Nested(t *testing.T) {
	folds, err := ExpandingWindow{MinTrain: 2, MaxTrain: 12}.Folds(12)
	require.NoError(t, err)
	require.Len(t, folds, 10)

	for i := range folds {
		// Validation is the instant right after the training prefix.
		assert.Equal(t, folds[i].Train, folds[i].Validation)
		for j := i + 1; j < len(folds); j++ {
			assert.Less(t, folds[i].Train, folds[j].Train, "fold %d prefix must be a strict subset of fold %d", i, j)
		}
	}
	assert.Less(t, folds[len(folds)-1].Validation, 12)
}

func TestExpandingWindow_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		n        int
	}{
		{"min below two", 1, 5, 10},
		{"min equals max", 5, 5, 10},
		{"min above max", 6, 5, 10},
		{"max beyond series", 5, 11, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandingWindow{MinTrain: tt.min, MaxTrain: tt.max}.Folds(tt.n)
			assert.ErrorIs(t, err, ErrInvalidWindow)
		})
	}
}

func TestNewSplitStrategy(t *testing.T) {
	s, err := NewSplitStrategy("expanding_window", 3, 6)
	require.NoError(t, err)
	assert.Equal(t, SplitExpandingWindow, s.Name())
	assert.Equal(t, ExpandingWindow{MinTrain: 3, MaxTrain: 6}, s)

	_, err = NewSplitStrategy("sliding_window", 3, 6)
	assert.ErrorIs(t, err, ErrUnknownSplit)
}

func TestMSE(t *testing.T) {
	got, err := MSE{}.Error([]float64{1, 2, 3}, []float64{1, 0, 6})
	require.NoError(t, err)
	assert.InDelta(t, (0.0+4+9)/3, got, 1e-12)

	_, err = MSE{}.Error([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	metric, err := NewErrorMetric("MSE")
	require.NoError(t, err)
	assert.Equal(t, MetricMSE, metric.Name())

	_, err = NewErrorMetric("mae")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}
