package kalman

import "math"

var log2Pi = math.Log(2 * math.Pi)

// Likelihood holds the sufficient statistics of the Gaussian log-likelihood
// accumulated by a filtering run.
//
// Observations that collapse a diffuse direction contribute log F∞ to
// DiffuseLogDet and are counted in DiffuseCount only; every other observed
// step contributes v²/f and log f and is counted in Count.
type Likelihood struct {
	SumSquares    float64
	LogDet        float64
	DiffuseLogDet float64
	Count         int
	DiffuseCount  int
}

func (l *Likelihood) add(v, f float64) {
	l.SumSquares += v * v / f
	l.LogDet += math.Log(f)
	l.Count++
}

func (l *Likelihood) addDiffuse(finf float64) {
	l.DiffuseLogDet += math.Log(finf)
	l.DiffuseCount++
}

// LogLikelihood returns the exact (diffuse) log-likelihood.
func (l Likelihood) LogLikelihood() float64 {
	if l.Count == 0 {
		return 0
	}
	return -0.5 * (float64(l.Count)*log2Pi + l.LogDet + l.DiffuseLogDet + l.SumSquares)
}

// ConcentratedLogLikelihood returns the log-likelihood with the scale
// factor σ² concentrated out, σ² = SumSquares/Count.
func (l Likelihood) ConcentratedLogLikelihood() float64 {
	if l.Count == 0 || l.SumSquares <= 0 {
		return 0
	}
	n := float64(l.Count)
	return -0.5 * (n*(log2Pi+1+math.Log(l.SumSquares/n)) + l.LogDet + l.DiffuseLogDet)
}

// Sigma2 is the maximum likelihood estimate of the scale factor.
func (l Likelihood) Sigma2() float64 {
	if l.Count == 0 {
		return 0
	}
	return l.SumSquares / float64(l.Count)
}

// Deviance returns -2 LogLikelihood.
func (l Likelihood) Deviance() float64 {
	return -2 * l.LogLikelihood()
}

