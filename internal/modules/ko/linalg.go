package ko

import (
	"gonum.org/v1/gonum/mat"
)

// symmetrize returns (a + aᵀ)/2 as a SymDense. Products such as R·Γ²·R are
// symmetric in exact arithmetic only; this removes the rounding asymmetry
// before the matrix is handed to the symmetric eigensolver.
func symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, a.At(i, i))
		for j := i + 1; j < n; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s
}

// eigenDescending factorizes a symmetric matrix and returns its eigenvalues in
// descending order together with the matching eigenvectors as columns. Ties
// keep the reverse of the solver's ascending order.
func eigenDescending(s mat.Symmetric) ([]float64, *mat.Dense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(s, true); !ok {
		return nil, nil, ErrEigenNotConverged
	}
	asc := eig.Values(nil)
	var ascVecs mat.Dense
	eig.VectorsTo(&ascVecs)

	n := len(asc)
	values := make([]float64, n)
	vectors := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		src := n - 1 - j
		values[j] = asc[src]
		for i := 0; i < n; i++ {
			vectors.Set(i, j, ascVecs.At(i, src))
		}
	}
	return values, vectors, nil
}

// leadingColumns copies the first k columns of a.
func leadingColumns(a mat.Matrix, k int) *mat.Dense {
	r, _ := a.Dims()
	out := mat.NewDense(r, k, nil)
	out.Copy(a)
	return out
}
