package crossval

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/koforecast/internal/modules/ko"
)

func syntheticSeries(m, n int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := mat.NewDense(m, n, nil)
	state := 0.0
	for t := 0; t < n; t++ {
		state = 0.6*state + rng.NormFloat64()
		for i := 0; i < m; i++ {
			x := float64(i) / float64(m)
			data.Set(i, t, state*math.Cos(math.Pi*x)+0.3*rng.NormFloat64()+2)
		}
	}
	return data
}

func newTestEngine(t *testing.T, data mat.Matrix, cfg Config) *Engine {
	t.Helper()
	est, err := ko.NewEstimator(data)
	require.NoError(t, err)
	e, err := NewEngine(est, cfg, zerolog.Nop())
	require.NoError(t, err)
	return e
}

func TestNewEngine_Rejects(t *testing.T) {
	est, err := ko.NewEstimator(syntheticSeries(3, 10, 1))
	require.NoError(t, err)

	_, err = NewEngine(est, Config{Split: ExpandingWindow{MinTrain: 9, MaxTrain: 9}}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = NewEngine(est, Config{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownSplit)

	_, err = NewEngine(est, Config{Split: ExpandingWindow{MinTrain: 2, MaxTrain: 9}, Tolerance: -1}, zerolog.Nop())
	assert.Error(t, err)
}

func TestErrorSingleParam_IsMeanOfFolds(t *testing.T) {
	data := syntheticSeries(4, 12, 2)
	e := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 6, MaxTrain: 12}, Workers: 3})
	params := ko.Params{Alpha: 0.1, Selection: ko.Selection{K: 2}}

	var sum float64
	for _, fold := range e.Folds() {
		v, err := e.ErrorSingleIteration(params, fold)
		require.NoError(t, err)
		sum += v
	}

	got, err := e.ErrorSingleParam(params)
	require.NoError(t, err)
	assert.InDelta(t, sum/6, got, 1e-12)
}

func TestErrorSingleIteration_UsesOnlyPrefix(t *testing.T) {
	data := syntheticSeries(4, 12, 3)
	e := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 5, MaxTrain: 8}})
	params := ko.Params{Alpha: 0.5, Selection: ko.Selection{K: 1}}

	got, err := e.ErrorSingleIteration(params, Fold{Train: 7, Validation: 7})
	require.NoError(t, err)

	res, err := ko.Fit(data.Slice(0, 4, 0, 7), params)
	require.NoError(t, err)
	want, err := MSE{}.Error(res.Prediction, mat.Col(nil, 7, data))
	require.NoError(t, err)

	assert.InDelta(t, want, got, 1e-10)
}

func TestCVAlpha_GridOfFour(t *testing.T) {
	data := syntheticSeries(5, 10, 4)
	e := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 5, MaxTrain: 9}, Workers: 4})
	require.Len(t, e.Folds(), 4)

	alphas := []float64{0.01, 0.1, 1, 10}
	var calls int
	e.SetProgress(func(current, total int, message string) {
		calls++
		assert.Equal(t, 16, total)
	})

	search, err := e.CVAlpha(alphas, ko.Selection{K: 1})
	require.NoError(t, err)

	assert.Contains(t, alphas, search.Best)
	require.Len(t, search.Errors, 4)
	assert.Equal(t, 16, calls)

	minIdx := 0
	for i, v := range search.Errors {
		assert.GreaterOrEqual(t, v, 0.0)
		if v < search.Errors[minIdx] {
			minIdx = i
		}
	}
	assert.Equal(t, alphas[minIdx], search.Best)

	// Per-alpha recomputation reports its own fold totals.
	e.SetProgress(nil)
	for i, alpha := range alphas {
		want, err := e.ErrorSingleParam(ko.Params{Alpha: alpha, Selection: ko.Selection{K: 1}})
		require.NoError(t, err)
		assert.InDelta(t, want, search.Errors[i], 1e-12)
	}
}

func TestCVAlpha_ExplanatoryPowerPerFold(t *testing.T) {
	data := syntheticSeries(5, 14, 5)
	e := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 8, MaxTrain: 14}, Workers: 2})

	search, err := e.CVAlpha([]float64{0.01, 1}, ko.Selection{Threshold: 0.8})
	require.NoError(t, err)
	assert.Len(t, search.Errors, 2)
}

func TestCVAlpha_SequentialMatchesParallel(t *testing.T) {
	data := syntheticSeries(6, 20, 6)
	alphas := []float64{1e-3, 1e-2, 1e-1, 1, 10}

	seq := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 8, MaxTrain: 20}, Workers: 1})
	par := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 8, MaxTrain: 20}, Workers: 8})

	a, err := seq.CVAlpha(alphas, ko.Selection{K: 2})
	require.NoError(t, err)
	b, err := par.CVAlpha(alphas, ko.Selection{K: 2})
	require.NoError(t, err)

	assert.Equal(t, a.Best, b.Best)
	assert.InDeltaSlice(t, a.Errors, b.Errors, 1e-12)
}

func TestCVAlpha_Rejects(t *testing.T) {
	data := syntheticSeries(3, 10, 7)
	e := newTestEngine(t, data, Config{Strategy: ko.GEP, Split: ExpandingWindow{MinTrain: 5, MaxTrain: 9}})

	_, err := e.CVAlpha(nil, ko.Selection{K: 1})
	assert.ErrorIs(t, err, ErrEmptyGrid)

	_, err = e.CVAlpha([]float64{0.1, 0}, ko.Selection{K: 1})
	assert.ErrorIs(t, err, ErrInvalidGrid)

	_, err = e.CVAlpha([]float64{0.1}, ko.Selection{Threshold: 0.9})
	assert.ErrorIs(t, err, ko.ErrUnsupportedSelection)
}

func TestCVAlpha_NumericalFailureFailsRun(t *testing.T) {
	// The first six instants are identical, so the shortest training prefixes
	// have a zero covariance that no alpha can regularize.
	data := syntheticSeries(3, 12, 8)
	for j := 1; j < 6; j++ {
		for i := 0; i < 3; i++ {
			data.Set(i, j, data.At(i, 0))
		}
	}
	e := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 4, MaxTrain: 11}, Workers: 3})

	_, err := e.CVAlpha([]float64{0.1, 1}, ko.Selection{K: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ko.ErrNotPositiveDefinite)
}

func TestCVK_HugeToleranceStopsAfterFirstK(t *testing.T) {
	data := syntheticSeries(5, 12, 9)
	e := newTestEngine(t, data, Config{
		Split:     ExpandingWindow{MinTrain: 6, MaxTrain: 12},
		Tolerance: 1e12,
		Workers:   2,
	})

	search, err := e.CVK(0.1, []int{1, 2, 3, 4, 5})
	require.NoError(t, err)

	assert.Equal(t, 1, search.Best)
	assert.Equal(t, []int{1}, search.Evaluated)
	assert.Len(t, search.Errors, 1)
}

func TestCVK_ZeroToleranceEvaluatesWholeGrid(t *testing.T) {
	data := syntheticSeries(5, 12, 10)
	e := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 6, MaxTrain: 12}, Workers: 2})

	ks := []int{1, 2, 3, 4, 5}
	search, err := e.CVK(0.1, ks)
	require.NoError(t, err)

	// With zero tolerance the search never stops early.
	assert.Equal(t, ks, search.Evaluated)
	require.Len(t, search.Errors, 5)
	for i, v := range search.Errors {
		assert.GreaterOrEqual(t, v, search.BestError, "k=%d", ks[i])
	}
	assert.Contains(t, ks, search.Best)
}

func TestCVK_Rejects(t *testing.T) {
	data := syntheticSeries(3, 10, 11)
	e := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 5, MaxTrain: 9}})

	_, err := e.CVK(0.1, nil)
	assert.ErrorIs(t, err, ErrEmptyGrid)

	_, err = e.CVK(0.1, []int{1, 4})
	assert.ErrorIs(t, err, ErrInvalidGrid)

	_, err = e.CVK(0, []int{1})
	assert.ErrorIs(t, err, ko.ErrInvalidAlpha)
}

func TestCVAlphaK(t *testing.T) {
	data := syntheticSeries(4, 14, 12)
	e := newTestEngine(t, data, Config{Split: ExpandingWindow{MinTrain: 7, MaxTrain: 14}, Workers: 4})

	var messages []string
	e.SetProgress(func(current, total int, message string) {
		messages = append(messages, message)
	})

	alphas := []float64{0.01, 0.1, 1}
	ks := []int{1, 2, 3, 4}
	search, err := e.CVAlphaK(alphas, ks)
	require.NoError(t, err)

	require.Len(t, search.Searches, 3)
	errs := search.Errors()
	require.Len(t, errs, 3)

	best := math.Inf(1)
	var bestAlpha float64
	var bestK int
	for i, s := range search.Searches {
		assert.Equal(t, len(s.Evaluated), len(errs[i]))
		if s.BestError < best {
			best, bestAlpha, bestK = s.BestError, alphas[i], s.Best
		}
	}
	assert.Equal(t, bestAlpha, search.BestAlpha)
	assert.Equal(t, bestK, search.BestK)

	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0], "alpha 1/3")
}

func TestCVAlphaK_MatchesIndependentCVK(t *testing.T) {
	data := syntheticSeries(4, 12, 13)
	cfg := Config{Split: ExpandingWindow{MinTrain: 6, MaxTrain: 12}, Tolerance: 1e-3, Workers: 2}
	e := newTestEngine(t, data, cfg)

	alphas := []float64{0.05, 0.5}
	ks := []int{1, 2, 3}
	joint, err := e.CVAlphaK(alphas, ks)
	require.NoError(t, err)

	for i, alpha := range alphas {
		single, err := e.CVK(alpha, ks)
		require.NoError(t, err)
		assert.Equal(t, single.Evaluated, joint.Searches[i].Evaluated)
		assert.InDeltaSlice(t, single.Errors, joint.Searches[i].Errors, 1e-12)
	}
}
