package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/statespace/timeseries"
)

// PortmanteauResult is the outcome of a Ljung-Box or Box-Pierce test.
type PortmanteauResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int // Degrees of freedom
}

// LjungBox tests for autocorrelation up to lag `lags`. The null hypothesis
// is that there is none; a p-value below 0.05 rejects it. fitdf is the
// number of estimated ARMA parameters.
func LjungBox(series *timeseries.Series, lags, fitdf int) *PortmanteauResult {
	return portmanteau(series, lags, fitdf, func(acf float64, n, k int) float64 {
		return float64(n*(n+2)) * acf * acf / float64(n-k)
	})
}

// BoxPierce is the unweighted version of LjungBox.
func BoxPierce(series *timeseries.Series, lags, fitdf int) *PortmanteauResult {
	return portmanteau(series, lags, fitdf, func(acf float64, n, _ int) float64 {
		return float64(n) * acf * acf
	})
}

func portmanteau(series *timeseries.Series, lags, fitdf int, term func(acf float64, n, k int) float64) *PortmanteauResult {
	n := series.ObservedCount()
	if n < 10 || lags < 1 {
		return nil
	}
	lags = min(lags, n-1)

	acf := ACF(series, lags)
	if acf == nil {
		return nil
	}
	q := 0.0
	for k := 1; k < len(acf); k++ {
		q += term(acf[k], n, k)
	}

	dof := max(lags-fitdf, 1)
	return &PortmanteauResult{
		Statistic: q,
		PValue:    distuv.ChiSquared{K: float64(dof)}.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// DurbinWatson returns the Durbin-Watson statistic of a residual sequence:
// about 2 without first-order autocorrelation, below 2 for positive and
// above 2 for negative autocorrelation. ok is false for fewer than two
// residuals or all-zero residuals.
func DurbinWatson(residuals []float64) (stat float64, ok bool) {
	n := len(residuals)
	if n < 2 {
		return 0, false
	}
	num, den := 0.0, residuals[0]*residuals[0]
	for i := 1; i < n; i++ {
		d := residuals[i] - residuals[i-1]
		num += d * d
		den += residuals[i] * residuals[i]
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}
