package workers

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	tests := []struct {
		name            string
		numWorkers      int
		expectedWorkers int
	}{
		{"positive workers", 5, 5},
		{"zero workers defaults to 1", 0, 1},
		{"negative workers defaults to 1", -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(tt.numWorkers)
			assert.Equal(t, tt.expectedWorkers, pool.Workers())
		})
	}
}

func TestEvaluate_Empty(t *testing.T) {
	results, err := NewPool(4).Evaluate(0, func(int) (float64, error) { return 0, nil }, nil, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEvaluate_OrderedResults(t *testing.T) {
	square := func(i int) (float64, error) { return float64(i * i), nil }

	for _, workers := range []int{1, 2, 3, 16} {
		results, err := NewPool(workers).Evaluate(10, square, nil, "")
		require.NoError(t, err)
		for i, v := range results {
			assert.Equal(t, float64(i*i), v, "workers=%d index=%d", workers, i)
		}
	}
}

func TestEvaluate_WithProgress(t *testing.T) {
	var calls []int
	var lastTotal int
	cb := func(current, total int, message string) {
		calls = append(calls, current)
		lastTotal = total
		assert.Equal(t, "folds", message)
	}

	_, err := NewPool(3).Evaluate(7, func(i int) (float64, error) { return 1, nil }, cb, "folds")
	require.NoError(t, err)

	// Progress should be called once per completed job
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, calls)
	assert.Equal(t, 7, lastTotal)
}

func TestEvaluate_LowestIndexErrorWins(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	var ran atomic.Int32

	job := func(i int) (float64, error) {
		ran.Add(1)
		switch i {
		case 3:
			return 0, errB
		case 6:
			return 0, errA
		}
		return 1, nil
	}

	for _, workers := range []int{1, 4} {
		ran.Store(0)
		_, err := NewPool(workers).Evaluate(8, job, nil, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, errB)
		assert.NotErrorIs(t, err, errA)
		assert.Equal(t, int32(8), ran.Load())
	}
}

func TestEvaluate_RecoversPanics(t *testing.T) {
	job := func(i int) (float64, error) {
		if i == 2 {
			panic("boom")
		}
		return 0, nil
	}

	_, err := NewPool(2).Evaluate(4, job, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
