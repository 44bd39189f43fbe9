package ko

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Predictor is the low-rank one-step-ahead predictor built from a Spectrum.
type Predictor struct {
	// Weights (B) are the predictive weights, m x k.
	Weights *mat.Dense
	// Loadings (A) = CrossCov·B, m x k.
	Loadings *mat.Dense
	// Operator (rho) = A·Bᵀ, m x m.
	Operator *mat.Dense
}

// ScoreStdDev holds the population standard deviations of the two score series
// of one component over the training sample.
type ScoreStdDev struct {
	// Direction is the spread of <X_{t+1}, A_i>.
	Direction float64 `json:"direction" msgpack:"direction"`
	// Weight is the spread of <X_t, B_i>.
	Weight float64 `json:"weight" msgpack:"weight"`
}

// BuildPredictor assembles weights, loadings and the autoregressive operator.
func BuildPredictor(est *Estimator, sp *Spectrum) *Predictor {
	var weights *mat.Dense
	if sp.Root != nil {
		weights = new(mat.Dense)
		weights.Mul(sp.Root, sp.Vectors)
	} else {
		weights = mat.DenseCopyOf(sp.Vectors)
	}

	loadings := new(mat.Dense)
	loadings.Mul(est.CrossCovariance(), weights)

	operator := new(mat.Dense)
	operator.Mul(loadings, weights.T())

	return &Predictor{
		Weights:  weights,
		Loadings: loadings,
		Operator: operator,
	}
}

// Predict returns rho·last + mean.
func (p *Predictor) Predict(last, mean []float64) []float64 {
	out := mat.NewVecDense(len(mean), nil)
	out.MulVec(p.Operator, mat.NewVecDense(len(last), last))
	pred := out.RawVector().Data
	floats.Add(pred, mean)
	return pred
}

// Scores returns <last, A_i> for every retained component.
func (p *Predictor) Scores(last []float64) []float64 {
	_, k := p.Loadings.Dims()
	out := make([]float64, k)
	col := make([]float64, len(last))
	for i := 0; i < k; i++ {
		mat.Col(col, i, p.Loadings)
		out[i] = floats.Dot(last, col)
	}
	return out
}

// ScoreStdDevs computes, per component, the population standard deviation of
// the directional scores <X_{t+1}, A_i> and of the weight scores <X_t, B_i>
// for t = 0..n-2 over the centered series.
func (p *Predictor) ScoreStdDevs(centered mat.Matrix) []ScoreStdDev {
	_, n := centered.Dims()
	_, k := p.Loadings.Dims()

	var dir, wgt mat.Dense
	dir.Mul(centered.T(), p.Loadings)
	wgt.Mul(centered.T(), p.Weights)

	out := make([]ScoreStdDev, k)
	dirScores := make([]float64, n-1)
	wgtScores := make([]float64, n-1)
	for i := 0; i < k; i++ {
		for t := 0; t < n-1; t++ {
			dirScores[t] = dir.At(t+1, i)
			wgtScores[t] = wgt.At(t, i)
		}
		out[i] = ScoreStdDev{
			Direction: math.Sqrt(stat.PopVariance(dirScores, nil)),
			Weight:    math.Sqrt(stat.PopVariance(wgtScores, nil)),
		}
	}
	return out
}
