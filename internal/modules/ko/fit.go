package ko

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Params binds everything one fit needs besides the data.
type Params struct {
	Strategy  Strategy
	Alpha     float64
	Selection Selection
}

// Validate rejects parameter combinations no solver can serve.
func (p Params) Validate(m int) error {
	if !(p.Alpha > 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidAlpha, p.Alpha)
	}
	if p.Strategy == GEP && !p.Selection.Imposed() {
		return ErrUnsupportedSelection
	}
	return p.Selection.Validate(m)
}

// Result is the outcome of one fit.
type Result struct {
	Prediction       []float64
	Alpha            float64
	K                int
	Scores           []float64
	ExplanatoryPower []float64
	Loadings         *mat.Dense
	Weights          *mat.Dense
	Operator         *mat.Dense
	ScoreStdDevs     []ScoreStdDev
	Mean             []float64
}

// Fit estimates the operators of data and predicts the next instant.
func Fit(data mat.Matrix, params Params) (*Result, error) {
	est, err := NewEstimator(data)
	if err != nil {
		return nil, err
	}
	return FitEstimator(est, params)
}

// FitEstimator runs the solve/select/predict stages on an existing estimator.
// The estimator is only read, so several fits with different params may share it.
func FitEstimator(est *Estimator, params Params) (*Result, error) {
	m, _ := est.Dims()
	if err := params.Validate(m); err != nil {
		return nil, err
	}
	solver, err := NewSolver(params.Strategy)
	if err != nil {
		return nil, err
	}
	sp, err := solver.Solve(est, params.Alpha, params.Selection)
	if err != nil {
		return nil, fmt.Errorf("%s solve (alpha=%g): %w", solver.Strategy(), params.Alpha, err)
	}

	pred := BuildPredictor(est, sp)
	last := est.LastCentered()
	mean := est.Mean()

	return &Result{
		Prediction:       pred.Predict(last, mean),
		Alpha:            params.Alpha,
		K:                sp.K(),
		Scores:           pred.Scores(last),
		ExplanatoryPower: ExplanatoryPower(sp.Values, sp.Total),
		Loadings:         pred.Loadings,
		Weights:          pred.Weights,
		Operator:         pred.Operator,
		ScoreStdDevs:     pred.ScoreStdDevs(est.Centered()),
		Mean:             mean,
	}, nil
}
