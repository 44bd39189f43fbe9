package ko

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Strategy names the way the regularized covariance is turned into predictive
// directions.
type Strategy int

const (
	// Exact eigendecomposes the regularized covariance, builds its inverse square
	// root and eigendecomposes Phi = R·Γ²·R.
	Exact Strategy = iota
	// GEP solves Γ²·v = λ·(Cov + αtr(Cov)I)·v through a Cholesky factorization and
	// never forms the inverse root.
	GEP
)

// String returns the lowercase name of the strategy.
func (s Strategy) String() string {
	switch s {
	case Exact:
		return "exact"
	case GEP:
		return "gep"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a name ("exact", "gep") to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exact":
		return Exact, nil
	case "gep", "generalized":
		return GEP, nil
	default:
		return Exact, fmt.Errorf("ko: unknown solver strategy %q", name)
	}
}

// Spectrum is what a Solver hands to the predictor: the retained eigenpairs in
// descending order and, for the exact strategy, the inverse root they must be
// mapped through to obtain the predictive weights.
type Spectrum struct {
	Strategy Strategy
	// Values holds the retained eigenvalues, largest first.
	Values []float64
	// Vectors holds the retained eigenvectors as columns (m x k).
	Vectors *mat.Dense
	// Root is the (possibly truncated) inverse square root of the regularized
	// covariance. Nil for GEP.
	Root *mat.SymDense
	// Total is the trace of the operator the eigenvalues came from.
	Total float64
}

// K returns the number of retained components.
func (s *Spectrum) K() int { return len(s.Values) }

// Solver turns the estimated operators into a Spectrum for a given alpha.
type Solver interface {
	Strategy() Strategy
	Solve(est *Estimator, alpha float64, sel Selection) (*Spectrum, error)
}

// NewSolver returns the solver implementing strategy.
func NewSolver(strategy Strategy) (Solver, error) {
	switch strategy {
	case Exact:
		return ExactSolver{}, nil
	case GEP:
		return GEPSolver{}, nil
	default:
		return nil, fmt.Errorf("ko: unknown solver strategy %d", strategy)
	}
}

// ExactSolver implements the Exact strategy.
type ExactSolver struct{}

// Strategy implements Solver.
func (ExactSolver) Strategy() Strategy { return Exact }

// Solve implements Solver.
func (ExactSolver) Solve(est *Estimator, alpha float64, sel Selection) (*Spectrum, error) {
	m, _ := est.Dims()
	if err := sel.Validate(m); err != nil {
		return nil, err
	}

	root, err := InverseRoot(est, alpha, sel.K)
	if err != nil {
		return nil, err
	}

	var tmp, phi mat.Dense
	tmp.Mul(root, est.GammaSquared())
	phi.Mul(&tmp, root)
	phiSym := symmetrize(&phi)
	total := mat.Trace(phiSym)

	values, vectors, err := eigenDescending(phiSym)
	if err != nil {
		return nil, fmt.Errorf("phi: %w", err)
	}

	k, err := SelectComponents(values, total, sel)
	if err != nil {
		return nil, err
	}

	return &Spectrum{
		Strategy: Exact,
		Values:   values[:k:k],
		Vectors:  leadingColumns(vectors, k),
		Root:     root,
		Total:    total,
	}, nil
}

// InverseRoot returns V·diag(1/√λ)·Vᵀ for the regularized covariance using its
// leading p eigenpairs, where p = k when k > 0 and p = m otherwise.
func InverseRoot(est *Estimator, alpha float64, k int) (*mat.SymDense, error) {
	reg, err := est.RegularizedCovariance(alpha)
	if err != nil {
		return nil, err
	}
	values, vectors, err := eigenDescending(reg)
	if err != nil {
		return nil, fmt.Errorf("regularized covariance: %w", err)
	}
	m := len(values)
	if values[m-1] <= 0 {
		return nil, fmt.Errorf("%w: smallest eigenvalue %g", ErrNotPositiveDefinite, values[m-1])
	}

	p := m
	if k > 0 {
		p = k
	}

	// V·diag(λ^-1/2)·Vᵀ = W·Wᵀ with W = V·diag(λ^-1/4), which keeps the result
	// exactly symmetric.
	w := leadingColumns(vectors, p)
	for j := 0; j < p; j++ {
		scale := math.Pow(values[j], -0.25)
		for i := 0; i < m; i++ {
			w.Set(i, j, w.At(i, j)*scale)
		}
	}
	var root mat.SymDense
	root.SymOuterK(1, w)
	return &root, nil
}

// GEPSolver implements the GEP strategy. It requires an imposed component count.
type GEPSolver struct{}

// Strategy implements Solver.
func (GEPSolver) Strategy() Strategy { return GEP }

// Solve implements Solver. With RegCov = L·Lᵀ the generalized problem
// Γ²v = λ·RegCov·v becomes the symmetric problem C·w = λw with
// C = L⁻¹Γ²L⁻ᵀ and v = L⁻ᵀw, so the returned vectors satisfy vᵀ·RegCov·v = 1.
func (GEPSolver) Solve(est *Estimator, alpha float64, sel Selection) (*Spectrum, error) {
	m, _ := est.Dims()
	if !sel.Imposed() {
		return nil, ErrUnsupportedSelection
	}
	if err := sel.Validate(m); err != nil {
		return nil, err
	}

	reg, err := est.RegularizedCovariance(alpha)
	if err != nil {
		return nil, err
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(reg); !ok {
		return nil, ErrNotPositiveDefinite
	}
	var l, linv mat.TriDense
	chol.LTo(&l)
	if err := linv.InverseTri(&l); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
		}
	}

	var tmp, c mat.Dense
	tmp.Mul(&linv, est.GammaSquared())
	c.Mul(&tmp, linv.T())
	cSym := symmetrize(&c)

	values, vectors, err := eigenDescending(cSym)
	if err != nil {
		return nil, fmt.Errorf("generalized problem: %w", err)
	}

	k := sel.K
	var v mat.Dense
	v.Mul(linv.T(), leadingColumns(vectors, k))

	return &Spectrum{
		Strategy: GEP,
		Values:   values[:k:k],
		Vectors:  &v,
		Total:    mat.Trace(cSym),
	}, nil
}
