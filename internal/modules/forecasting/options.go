// Package forecasting turns a runtime option set into one of the four
// forecasting paths (fixed parameters, CV over alpha, CV over k, CV over both),
// runs it, and keeps a history of completed runs.
package forecasting

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/koforecast/internal/modules/crossval"
	"github.com/aristath/koforecast/internal/modules/ko"
)

const (
	DefaultThreshold = 0.95
	DefaultTolerance = 1e-4
	// DefaultAlphaGridSize log-spaced values between DefaultAlphaMin and DefaultAlphaMax.
	DefaultAlphaGridSize = 21
	DefaultAlphaMin      = 1e-10
	DefaultAlphaMax      = 1e10
)

// Options is the runtime configuration of one forecast.
type Options struct {
	// Solver is "exact" (default) or "gep".
	Solver string `json:"solver" msgpack:"solver"`
	// Alpha is the regularization used when CVAlpha is off.
	Alpha float64 `json:"alpha" msgpack:"alpha"`
	// K is the imposed component count. Zero selects k by explanatory power.
	K int `json:"k" msgpack:"k"`
	// Threshold is the explanatory-power cutoff in (0, 1).
	Threshold float64 `json:"threshold" msgpack:"threshold"`

	CVAlpha      bool `json:"cv_alpha" msgpack:"cv_alpha"`
	CVK          bool `json:"cv_k" msgpack:"cv_k"`
	RetainErrors bool `json:"retain_errors" msgpack:"retain_errors"`

	Split  string `json:"split" msgpack:"split"`
	Metric string `json:"metric" msgpack:"metric"`

	Alphas []float64 `json:"alphas,omitempty" msgpack:"alphas,omitempty"`
	Ks     []int     `json:"ks,omitempty" msgpack:"ks,omitempty"`
	// Tolerance scales trace(Cov) into the CV-k stopping delta. Nil means
	// DefaultTolerance; zero disables early stopping.
	Tolerance *float64 `json:"tolerance,omitempty" msgpack:"tolerance,omitempty"`

	MinTrain int `json:"min_train" msgpack:"min_train"`
	MaxTrain int `json:"max_train" msgpack:"max_train"`
	Workers  int `json:"workers" msgpack:"workers"`
}

// Mode identifies the dispatch path an option set selects.
type Mode string

const (
	ModeFixed    Mode = "fixed"
	ModeCVAlpha  Mode = "cv_alpha"
	ModeCVK      Mode = "cv_k"
	ModeCVAlphaK Mode = "cv_alpha_k"
)

// Mode returns the dispatch path for o.
func (o Options) Mode() Mode {
	switch {
	case o.CVAlpha && o.CVK:
		return ModeCVAlphaK
	case o.CVAlpha:
		return ModeCVAlpha
	case o.CVK:
		return ModeCVK
	default:
		return ModeFixed
	}
}

// CrossValidated reports whether o runs any grid search.
func (o Options) CrossValidated() bool { return o.CVAlpha || o.CVK }

// WithDefaults returns a copy of o with unset fields filled in for an m x n series.
// Grids are only generated for the searches o enables.
func (o Options) WithDefaults(m, n int) Options {
	out := o
	if out.Solver == "" {
		out.Solver = ko.Exact.String()
	}
	if out.Threshold == 0 {
		out.Threshold = DefaultThreshold
	}
	if out.Split == "" {
		out.Split = crossval.SplitExpandingWindow
	}
	if out.Metric == "" {
		out.Metric = crossval.MetricMSE
	}
	if out.Tolerance == nil {
		tol := DefaultTolerance
		out.Tolerance = &tol
	}
	if out.CVAlpha && len(out.Alphas) == 0 {
		out.Alphas = DefaultAlphas()
	}
	if out.CVK && len(out.Ks) == 0 {
		out.Ks = DefaultKs(m)
	}
	if out.MinTrain == 0 {
		out.MinTrain = max(2, n/2)
	}
	if out.MaxTrain == 0 {
		out.MaxTrain = n
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	return out
}

// DefaultAlphas returns the log-spaced default alpha grid.
func DefaultAlphas() []float64 {
	return floats.LogSpan(make([]float64, DefaultAlphaGridSize), DefaultAlphaMin, DefaultAlphaMax)
}

// DefaultKs returns 1..m.
func DefaultKs(m int) []int {
	ks := make([]int, m)
	for i := range ks {
		ks[i] = i + 1
	}
	return ks
}

// Strategy parses the solver name.
func (o Options) Strategy() (ko.Strategy, error) {
	s, err := ko.ParseStrategy(o.Solver)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, o.Solver)
	}
	return s, nil
}

// Selection returns the component selection used outside CV-k.
func (o Options) Selection() ko.Selection {
	return ko.Selection{K: o.K, Threshold: o.Threshold}
}

// Validate rejects option sets that cannot run on an m x n series. Call it on
// the result of WithDefaults.
func (o Options) Validate(m, n int) error {
	strategy, err := o.Strategy()
	if err != nil {
		return err
	}
	if o.K < 0 || o.K > m {
		return fmt.Errorf("%w: k=%d with m=%d", ko.ErrInvalidComponentCount, o.K, m)
	}
	if !(o.Threshold > 0 && o.Threshold < 1) {
		return fmt.Errorf("%w: got %g", ko.ErrInvalidThreshold, o.Threshold)
	}
	if strategy == ko.GEP && !o.CVK && o.K == 0 {
		return fmt.Errorf("%w: gep solver requires an imposed k", ErrUnsupportedCombination)
	}
	if !o.CVAlpha && !(o.Alpha > 0) {
		return fmt.Errorf("%w: got %g", ko.ErrInvalidAlpha, o.Alpha)
	}
	if o.Workers < 0 {
		return fmt.Errorf("forecasting: workers must be >= 0, got %d", o.Workers)
	}
	if !o.CrossValidated() {
		return nil
	}

	split, err := crossval.NewSplitStrategy(o.Split, o.MinTrain, o.MaxTrain)
	if err != nil {
		return err
	}
	if _, err := split.Folds(n); err != nil {
		return err
	}
	if _, err := crossval.NewErrorMetric(o.Metric); err != nil {
		return err
	}
	if o.Tolerance != nil && *o.Tolerance < 0 {
		return fmt.Errorf("forecasting: tolerance must be >= 0, got %g", *o.Tolerance)
	}
	if o.CVAlpha {
		if len(o.Alphas) == 0 {
			return fmt.Errorf("%w: alphas", crossval.ErrEmptyGrid)
		}
		for _, a := range o.Alphas {
			if !(a > 0) {
				return fmt.Errorf("%w: got %g", ko.ErrInvalidAlpha, a)
			}
		}
	}
	if o.CVK {
		if len(o.Ks) == 0 {
			return fmt.Errorf("%w: ks", crossval.ErrEmptyGrid)
		}
		for _, k := range o.Ks {
			if k < 1 || k > m {
				return fmt.Errorf("%w: k=%d with m=%d", ko.ErrInvalidComponentCount, k, m)
			}
		}
	}
	return nil
}
