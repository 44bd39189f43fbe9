package ko

import "errors"

// Input and configuration errors. These are returned before any decomposition runs.
var (
	ErrInvalidShape          = errors.New("ko: data matrix must have at least one row and one column")
	ErrTooFewInstants        = errors.New("ko: at least two time instants are required")
	ErrNonFinite             = errors.New("ko: data matrix contains NaN or Inf")
	ErrInvalidAlpha          = errors.New("ko: regularization parameter must be > 0")
	ErrInvalidThreshold      = errors.New("ko: explanatory power threshold must lie in (0, 1)")
	ErrInvalidComponentCount = errors.New("ko: component count out of range")
	ErrUnsupportedSelection  = errors.New("ko: explanatory power selection requires the exact solver")
)

// Numerical failures. A fit that hits one of these is aborted and the error is
// handed back to the caller instead of terminating the process.
var (
	ErrEigenNotConverged   = errors.New("ko: eigendecomposition did not converge")
	ErrNotPositiveDefinite = errors.New("ko: regularized covariance is not positive definite")
)
