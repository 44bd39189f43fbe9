// Package crossval selects the regularization strength and the number of
// predictive components by expanding-window cross-validation.
//
// Every (fold, parameter) pair is an independent fit on its own training
// prefix, so the engine fans them out over a worker pool and reduces the
// per-fold errors in fold order.
package crossval

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/koforecast/internal/modules/ko"
	"github.com/aristath/koforecast/internal/progress"
	"github.com/aristath/koforecast/internal/workers"
)

// Config controls how the engine fits and scores each fold.
type Config struct {
	Strategy ko.Strategy
	Split    SplitStrategy
	Metric   ErrorMetric
	// Tolerance scales trace(Cov) into the smallest error improvement that
	// keeps a CV-k search going.
	Tolerance float64
	Workers   int
}

// Engine runs cross-validation searches over a fixed series.
type Engine struct {
	est      *ko.Estimator
	folds    []Fold
	cfg      Config
	pool     *workers.Pool
	progress progress.Callback
	log      zerolog.Logger
}

// NewEngine builds the fold schedule for the series held by est.
func NewEngine(est *ko.Estimator, cfg Config, log zerolog.Logger) (*Engine, error) {
	if cfg.Split == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnknownSplit)
	}
	if cfg.Metric == nil {
		cfg.Metric = MSE{}
	}
	if cfg.Tolerance < 0 || math.IsNaN(cfg.Tolerance) {
		return nil, fmt.Errorf("crossval: tolerance must be >= 0, got %g", cfg.Tolerance)
	}

	_, n := est.Dims()
	folds, err := cfg.Split.Folds(n)
	if err != nil {
		return nil, err
	}
	if len(folds) == 0 {
		return nil, ErrEmptySchedule
	}

	return &Engine{
		est:   est,
		folds: folds,
		cfg:   cfg,
		pool:  workers.NewPool(cfg.Workers),
		log:   log.With().Str("component", "crossval").Logger(),
	}, nil
}

// SetProgress installs an observer notified after each completed evaluation.
func (e *Engine) SetProgress(cb progress.Callback) {
	e.progress = cb
}

// Folds returns a copy of the fold schedule.
func (e *Engine) Folds() []Fold {
	out := make([]Fold, len(e.folds))
	copy(out, e.folds)
	return out
}

// ErrorSingleIteration fits params on the fold's training prefix and scores the
// prediction against the fold's validation instant. The prefix is rebuilt in
// raw (non-centered) form so the fit re-centers it on its own mean.
func (e *Engine) ErrorSingleIteration(params ko.Params, fold Fold) (float64, error) {
	train := e.est.Decentered(fold.Train)
	res, err := ko.Fit(train, params)
	if err != nil {
		return 0, fmt.Errorf("fold train=%d: %w", fold.Train, err)
	}
	return e.cfg.Metric.Error(res.Prediction, e.est.DecenteredColumn(fold.Validation))
}

// ErrorSingleParam returns the mean error of params over all folds.
func (e *Engine) ErrorSingleParam(params ko.Params) (float64, error) {
	return e.meanError(params, e.progress)
}

func (e *Engine) meanError(params ko.Params, cb progress.Callback) (float64, error) {
	errs, err := e.pool.Evaluate(len(e.folds), func(i int) (float64, error) {
		return e.ErrorSingleIteration(params, e.folds[i])
	}, cb, "folds")
	if err != nil {
		return 0, err
	}
	return floats.Sum(errs) / float64(len(errs)), nil
}

// AlphaSearch is the outcome of CVAlpha.
type AlphaSearch struct {
	Best   float64
	Errors []float64
}

// CVAlpha evaluates every alpha with the given component selection (imposed k,
// or explanatory power re-derived on each fold) and returns the alpha with the
// smallest mean error. Ties go to the earliest alpha in the grid.
func (e *Engine) CVAlpha(alphas []float64, sel ko.Selection) (*AlphaSearch, error) {
	if err := e.checkAlphas(alphas); err != nil {
		return nil, err
	}
	m, _ := e.est.Dims()
	first := ko.Params{Strategy: e.cfg.Strategy, Alpha: alphas[0], Selection: sel}
	if err := first.Validate(m); err != nil {
		return nil, err
	}

	nf := len(e.folds)
	errs, err := e.pool.Evaluate(len(alphas)*nf, func(i int) (float64, error) {
		params := ko.Params{Strategy: e.cfg.Strategy, Alpha: alphas[i/nf], Selection: sel}
		return e.ErrorSingleIteration(params, e.folds[i%nf])
	}, e.progress, "cv-alpha")
	if err != nil {
		return nil, err
	}

	means := make([]float64, len(alphas))
	for a := range alphas {
		means[a] = floats.Sum(errs[a*nf:(a+1)*nf]) / float64(nf)
		e.log.Debug().
			Float64("alpha", alphas[a]).
			Float64("error", means[a]).
			Msg("Evaluated alpha")
	}

	best := alphas[floats.MinIdx(means)]
	e.log.Info().
		Int("grid_size", len(alphas)).
		Int("folds", nf).
		Float64("best_alpha", best).
		Msg("CV over alpha completed")

	return &AlphaSearch{Best: best, Errors: means}, nil
}

// KSearch is the outcome of CVK. Evaluated and Errors only cover the k values
// the search accepted before it stopped.
type KSearch struct {
	Best      int
	BestError float64
	Evaluated []int
	Errors    []float64
}

// CVK walks the k grid in order with alpha fixed. After each k it compares the
// mean error with the previous accepted one; once the absolute change drops
// below Tolerance·trace(Cov) the search stops and the current k is discarded.
// This assumes the error curve improves monotonically in k and can stop early
// on curves that do not.
func (e *Engine) CVK(alpha float64, ks []int) (*KSearch, error) {
	if err := e.checkKs(ks); err != nil {
		return nil, err
	}
	return e.cvK(alpha, ks, e.progress)
}

func (e *Engine) cvK(alpha float64, ks []int, cb progress.Callback) (*KSearch, error) {
	if !(alpha > 0) {
		return nil, fmt.Errorf("%w: got %g", ko.ErrInvalidAlpha, alpha)
	}

	stop := e.cfg.Tolerance * e.est.Trace()
	search := &KSearch{}

	for idx, k := range ks {
		params := ko.Params{Strategy: e.cfg.Strategy, Alpha: alpha, Selection: ko.Selection{K: k}}
		mean, err := e.meanError(params, nil)
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		progress.Call(cb, idx+1, len(ks), fmt.Sprintf("cv-k k=%d", k))

		if n := len(search.Errors); n > 0 && math.Abs(mean-search.Errors[n-1]) < stop {
			e.log.Debug().
				Int("k", k).
				Float64("error", mean).
				Float64("previous_error", search.Errors[n-1]).
				Msg("Improvement below tolerance, stopping k search")
			break
		}
		search.Evaluated = append(search.Evaluated, k)
		search.Errors = append(search.Errors, mean)
	}

	bestIdx := floats.MinIdx(search.Errors)
	search.Best = search.Evaluated[bestIdx]
	search.BestError = search.Errors[bestIdx]

	e.log.Debug().
		Float64("alpha", alpha).
		Int("evaluated", len(search.Evaluated)).
		Int("best_k", search.Best).
		Msg("CV over k completed")

	return search, nil
}

// AlphaKSearch is the outcome of CVAlphaK. Searches[i] is the CV-k run for
// Alphas[i].
type AlphaKSearch struct {
	BestAlpha float64
	BestK     int
	Alphas    []float64
	Searches  []*KSearch
}

// Errors returns the per-alpha error vectors of the accepted k values.
func (s *AlphaKSearch) Errors() [][]float64 {
	out := make([][]float64, len(s.Searches))
	for i, ks := range s.Searches {
		out[i] = ks.Errors
	}
	return out
}

// CVAlphaK runs a complete CV-k search for every alpha and keeps the pair with
// the smallest best-k error. Ties go to the earliest alpha.
func (e *Engine) CVAlphaK(alphas []float64, ks []int) (*AlphaKSearch, error) {
	if err := e.checkAlphas(alphas); err != nil {
		return nil, err
	}
	if err := e.checkKs(ks); err != nil {
		return nil, err
	}

	result := &AlphaKSearch{Alphas: append([]float64(nil), alphas...)}
	bestErr := math.Inf(1)
	for i, alpha := range alphas {
		cb := progress.Prefixed(e.progress, fmt.Sprintf("alpha %d/%d ", i+1, len(alphas)))
		search, err := e.cvK(alpha, ks, cb)
		if err != nil {
			return nil, fmt.Errorf("alpha=%g: %w", alpha, err)
		}
		result.Searches = append(result.Searches, search)
		if search.BestError < bestErr {
			bestErr = search.BestError
			result.BestAlpha = alpha
			result.BestK = search.Best
		}
	}

	e.log.Info().
		Int("alphas", len(alphas)).
		Float64("best_alpha", result.BestAlpha).
		Int("best_k", result.BestK).
		Float64("best_error", bestErr).
		Msg("CV over alpha and k completed")

	return result, nil
}

func (e *Engine) checkAlphas(alphas []float64) error {
	if len(alphas) == 0 {
		return fmt.Errorf("%w: alpha", ErrEmptyGrid)
	}
	for _, a := range alphas {
		if !(a > 0) || math.IsInf(a, 0) {
			return fmt.Errorf("%w: alpha %g", ErrInvalidGrid, a)
		}
	}
	return nil
}

func (e *Engine) checkKs(ks []int) error {
	if len(ks) == 0 {
		return fmt.Errorf("%w: k", ErrEmptyGrid)
	}
	m, _ := e.est.Dims()
	for _, k := range ks {
		if k < 1 || k > m {
			return fmt.Errorf("%w: k %d outside [1, %d]", ErrInvalidGrid, k, m)
		}
	}
	return nil
}
