package ko

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// syntheticSeries builds a smooth AR(1)-driven functional series with a little
// noise so that every operator is well defined.
func syntheticSeries(m, n int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := mat.NewDense(m, n, nil)
	state := 0.0
	for t := 0; t < n; t++ {
		state = 0.7*state + rng.NormFloat64()
		for i := 0; i < m; i++ {
			x := float64(i) / float64(m)
			v := state*math.Sin(math.Pi*x+0.3) + 0.5*math.Cos(2*math.Pi*x)*rng.NormFloat64() + 0.05*rng.NormFloat64()
			data.Set(i, t, v+1.5)
		}
	}
	return data
}

func maxAbsDiff(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	var d float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d = math.Max(d, math.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return d
}
