// Package ko implements the Kargin-Onatski principal predictive components
// estimator for one-step-ahead forecasting of functional time series.
//
// A functional time series is an m x n matrix: rows are domain points, columns
// are time instants. Fit centers the data, estimates the lag-0 and lag-1
// covariance operators, regularizes and inverts the covariance (or solves the
// equivalent generalized eigenproblem), keeps the leading predictive
// components, and builds the autoregressive operator used for the forecast.
package ko

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Estimator holds the centered series and the second-order operators derived
// from it. Everything is computed once in NewEstimator and never mutated, so an
// Estimator may be shared by concurrent readers.
type Estimator struct {
	m, n     int
	mean     []float64
	centered *mat.Dense
	cov      *mat.SymDense
	crossCov *mat.Dense
	gammaSq  *mat.SymDense
	trace    float64
}

// NewEstimator centers data row-wise and estimates
//
//	Cov     = X Xᵀ / n
//	CrossCov = X[:,1:] X[:,:n-1]ᵀ / (n-1)
//	Gamma²  = CrossCovᵀ CrossCov
//
// where X is the centered series. The input is copied; callers keep ownership.
func NewEstimator(data mat.Matrix) (*Estimator, error) {
	m, n := data.Dims()
	if m == 0 || n == 0 {
		return nil, ErrInvalidShape
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewInstants, n)
	}

	centered := mat.DenseCopyOf(data)
	mean := make([]float64, m)
	for i := 0; i < m; i++ {
		row := centered.RawRowView(i)
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: at (%d, %d)", ErrNonFinite, i, j)
			}
		}
		mean[i] = stat.Mean(row, nil)
		floats.AddConst(-mean[i], row)
	}

	var cov mat.SymDense
	cov.SymOuterK(1/float64(n), centered)

	lead := centered.Slice(0, m, 1, n)
	lag := centered.Slice(0, m, 0, n-1)
	crossCov := mat.NewDense(m, m, nil)
	crossCov.Mul(lead, lag.T())
	crossCov.Scale(1/float64(n-1), crossCov)

	var gammaSq mat.SymDense
	gammaSq.SymOuterK(1, mat.DenseCopyOf(crossCov.T()))

	return &Estimator{
		m:        m,
		n:        n,
		mean:     mean,
		centered: centered,
		cov:      &cov,
		crossCov: crossCov,
		gammaSq:  &gammaSq,
		trace:    mat.Trace(&cov),
	}, nil
}

// Dims returns the number of domain points and time instants.
func (e *Estimator) Dims() (m, n int) { return e.m, e.n }

// Mean returns a copy of the row-wise mean of the raw series.
func (e *Estimator) Mean() []float64 {
	out := make([]float64, e.m)
	copy(out, e.mean)
	return out
}

// Centered returns the centered series. The returned matrix must not be modified.
func (e *Estimator) Centered() mat.Matrix { return e.centered }

// Covariance returns the lag-0 covariance operator.
func (e *Estimator) Covariance() mat.Symmetric { return e.cov }

// CrossCovariance returns the lag-1 cross-covariance operator.
func (e *Estimator) CrossCovariance() mat.Matrix { return e.crossCov }

// GammaSquared returns CrossCovᵀ CrossCov.
func (e *Estimator) GammaSquared() mat.Symmetric { return e.gammaSq }

// Trace returns trace(Cov).
func (e *Estimator) Trace() float64 { return e.trace }

// LastCentered returns a copy of the final centered column.
func (e *Estimator) LastCentered() []float64 {
	return mat.Col(nil, e.n-1, e.centered)
}

// Decentered rebuilds the raw values of the first cols instants by adding the
// mean back onto the stored centered series.
func (e *Estimator) Decentered(cols int) *mat.Dense {
	if cols <= 0 || cols > e.n {
		panic(fmt.Sprintf("ko: decentered prefix %d out of range [1, %d]", cols, e.n))
	}
	out := mat.DenseCopyOf(e.centered.Slice(0, e.m, 0, cols))
	for i := 0; i < e.m; i++ {
		floats.AddConst(e.mean[i], out.RawRowView(i))
	}
	return out
}

// DecenteredColumn returns the raw values observed at instant j.
func (e *Estimator) DecenteredColumn(j int) []float64 {
	col := mat.Col(nil, j, e.centered)
	floats.Add(col, e.mean)
	return col
}

// RegularizedCovariance returns Cov + alpha·trace(Cov)·I.
func (e *Estimator) RegularizedCovariance(alpha float64) (*mat.SymDense, error) {
	if !(alpha > 0) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidAlpha, alpha)
	}
	reg := mat.NewSymDense(e.m, nil)
	reg.CopySym(e.cov)
	shift := alpha * e.trace
	for i := 0; i < e.m; i++ {
		reg.SetSym(i, i, reg.At(i, i)+shift)
	}
	return reg, nil
}
