package forecasting

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/koforecast/internal/modules/crossval"
	"github.com/aristath/koforecast/internal/modules/ko"
	"github.com/aristath/koforecast/internal/progress"
)

// Output is the result of one dispatched forecast in a transport-friendly form.
// Matrices are row-major, one row per domain point.
type Output struct {
	Mode             Mode             `json:"mode" msgpack:"mode"`
	Prediction       []float64        `json:"prediction" msgpack:"prediction"`
	Alpha            float64          `json:"alpha" msgpack:"alpha"`
	K                int              `json:"k" msgpack:"k"`
	Scores           []float64        `json:"scores" msgpack:"scores"`
	ExplanatoryPower []float64        `json:"explanatory_power" msgpack:"explanatory_power"`
	Loadings         [][]float64      `json:"loadings" msgpack:"loadings"`
	Weights          [][]float64      `json:"weights" msgpack:"weights"`
	ScoreStdDevs     []ko.ScoreStdDev `json:"score_std_devs" msgpack:"score_std_devs"`
	Mean             []float64        `json:"mean" msgpack:"mean"`
	// ValidationErrors is only set when the options asked to retain them.
	ValidationErrors *ValidationErrors `json:"validation_errors,omitempty" msgpack:"validation_errors,omitempty"`
}

// ValidationErrors holds the mean fold errors of a grid search.
//
// CV-alpha fills Alphas and Errors (one per alpha). CV-k fills Ks and Errors
// (one per accepted k). CV-alpha-k fills Alphas, EvaluatedKs and Grid, where
// Grid[i][j] is the error of EvaluatedKs[i][j] under Alphas[i].
type ValidationErrors struct {
	Alphas      []float64   `json:"alphas,omitempty" msgpack:"alphas,omitempty"`
	Ks          []int       `json:"ks,omitempty" msgpack:"ks,omitempty"`
	Errors      []float64   `json:"errors,omitempty" msgpack:"errors,omitempty"`
	EvaluatedKs [][]int     `json:"evaluated_ks,omitempty" msgpack:"evaluated_ks,omitempty"`
	Grid        [][]float64 `json:"grid,omitempty" msgpack:"grid,omitempty"`
}

// Dispatcher selects and runs the forecasting path an Options value asks for.
type Dispatcher struct {
	log      zerolog.Logger
	progress progress.Callback
}

// NewDispatcher creates a dispatcher logging through log.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{log: log.With().Str("component", "dispatcher").Logger()}
}

// SetProgress installs the observer forwarded to cross-validation searches.
func (d *Dispatcher) SetProgress(cb progress.Callback) {
	d.progress = cb
}

// Dispatch fits data (rows = domain points, columns = instants) with opts.
// Parameters chosen by cross-validation are bound into one final fit over the
// whole series.
func (d *Dispatcher) Dispatch(data mat.Matrix, opts Options) (*Output, error) {
	start := time.Now()

	est, err := ko.NewEstimator(data)
	if err != nil {
		return nil, err
	}
	m, n := est.Dims()
	opts = opts.WithDefaults(m, n)
	if err := opts.Validate(m, n); err != nil {
		return nil, err
	}
	strategy, err := opts.Strategy()
	if err != nil {
		return nil, err
	}

	params := ko.Params{Strategy: strategy, Alpha: opts.Alpha, Selection: opts.Selection()}
	var verrs *ValidationErrors
	if opts.CrossValidated() {
		params, verrs, err = d.search(est, opts, params)
		if err != nil {
			return nil, err
		}
	}

	res, err := ko.FitEstimator(est, params)
	if err != nil {
		return nil, fmt.Errorf("final fit: %w", err)
	}

	out := newOutput(opts.Mode(), res)
	if opts.RetainErrors {
		out.ValidationErrors = verrs
	}

	d.log.Info().
		Str("mode", string(out.Mode)).
		Str("solver", strategy.String()).
		Int("m", m).
		Int("n", n).
		Float64("alpha", out.Alpha).
		Int("k", out.K).
		Dur("duration", time.Since(start)).
		Msg("Forecast completed")

	return out, nil
}

// search runs the grid search opts selects and returns params with the chosen
// values bound in.
func (d *Dispatcher) search(est *ko.Estimator, opts Options, params ko.Params) (ko.Params, *ValidationErrors, error) {
	split, err := crossval.NewSplitStrategy(opts.Split, opts.MinTrain, opts.MaxTrain)
	if err != nil {
		return params, nil, err
	}
	metric, err := crossval.NewErrorMetric(opts.Metric)
	if err != nil {
		return params, nil, err
	}
	engine, err := crossval.NewEngine(est, crossval.Config{
		Strategy:  params.Strategy,
		Split:     split,
		Metric:    metric,
		Tolerance: *opts.Tolerance,
		Workers:   opts.Workers,
	}, d.log)
	if err != nil {
		return params, nil, err
	}
	engine.SetProgress(d.progress)

	switch opts.Mode() {
	case ModeCVAlpha:
		s, err := engine.CVAlpha(opts.Alphas, params.Selection)
		if err != nil {
			return params, nil, err
		}
		params.Alpha = s.Best
		return params, &ValidationErrors{Alphas: opts.Alphas, Errors: s.Errors}, nil

	case ModeCVK:
		s, err := engine.CVK(opts.Alpha, opts.Ks)
		if err != nil {
			return params, nil, err
		}
		params.Selection = ko.Selection{K: s.Best, Threshold: opts.Threshold}
		return params, &ValidationErrors{Ks: s.Evaluated, Errors: s.Errors}, nil

	case ModeCVAlphaK:
		s, err := engine.CVAlphaK(opts.Alphas, opts.Ks)
		if err != nil {
			return params, nil, err
		}
		params.Alpha = s.BestAlpha
		params.Selection = ko.Selection{K: s.BestK, Threshold: opts.Threshold}
		evaluated := make([][]int, len(s.Searches))
		for i, ks := range s.Searches {
			evaluated[i] = ks.Evaluated
		}
		return params, &ValidationErrors{Alphas: s.Alphas, EvaluatedKs: evaluated, Grid: s.Errors()}, nil
	}

	return params, nil, nil
}

func newOutput(mode Mode, res *ko.Result) *Output {
	return &Output{
		Mode:             mode,
		Prediction:       res.Prediction,
		Alpha:            res.Alpha,
		K:                res.K,
		Scores:           res.Scores,
		ExplanatoryPower: res.ExplanatoryPower,
		Loadings:         rowsOf(res.Loadings),
		Weights:          rowsOf(res.Weights),
		ScoreStdDevs:     res.ScoreStdDevs,
		Mean:             res.Mean,
	}
}

func rowsOf(a *mat.Dense) [][]float64 {
	if a == nil {
		return nil
	}
	r, c := a.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(make([]float64, c), i, a)
	}
	return out
}

// DenseFromRows builds an m x n matrix from m rows of equal length n.
func DenseFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidData)
	}
	m, n := len(rows), len(rows[0])
	flat := make([]float64, 0, m*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidData, i, len(row), n)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(m, n, flat), nil
}
