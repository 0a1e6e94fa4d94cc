package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/statespace/timeseries"
)

// NDiffs returns the number of first differences, at most maxD (default
// 2), after which testType ("kpss", the default, or "adf") accepts
// stationarity.
func NDiffs(series *timeseries.Series, maxD int, testType string) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := series
	for d := 0; d < maxD; d++ {
		var res *UnitRootResult
		if testType == "adf" {
			res = ADF(current, 0)
		} else {
			res = KPSS(current, "c", 0)
		}
		if res != nil && res.IsStationary {
			return d
		}

		current = current.Diff()
		if current.ObservedCount() < 10 {
			return d
		}
	}
	return maxD
}

// NSDiffs returns the number of seasonal differences, at most maxD
// (default 1), needed before the seasonal strength drops below 0.64.
func NSDiffs(series *timeseries.Series, period int, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || series.Len() < 2*period {
		return 0
	}

	current := series
	for d := 0; d < maxD; d++ {
		if SeasonalStrength(current, period) < 0.64 {
			return d
		}
		current = current.SeasonalDiff(period)
		if current.Len() < 2*period {
			return d
		}
	}
	return maxD
}

// SeasonalStrength returns F_S = max(0, 1 − Var(R)/Var(S+R)) from a
// classical additive decomposition with a centred moving-average trend.
func SeasonalStrength(series *timeseries.Series, period int) float64 {
	n := series.Len()
	if period <= 1 || n < 2*period {
		return 0
	}

	trend := centredMovingAverage(series, period)
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, tr := range trend {
		if math.IsNaN(tr) || series.IsMissing(i) {
			continue
		}
		pattern[i%period] += series.Values[i] - tr
		counts[i%period]++
	}
	mean := 0.0
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
		mean += pattern[i] / float64(period)
	}

	var resid, seasonalResid []float64
	for i, tr := range trend {
		if math.IsNaN(tr) || series.IsMissing(i) {
			continue
		}
		detrended := series.Values[i] - tr
		resid = append(resid, detrended-(pattern[i%period]-mean))
		seasonalResid = append(seasonalResid, detrended)
	}
	if len(resid) < 2 {
		return 0
	}
	varSR := stat.Variance(seasonalResid, nil)
	if varSR == 0 {
		return 0
	}
	return math.Max(0, 1-stat.Variance(resid, nil)/varSR)
}

// centredMovingAverage is the 2×period moving average for even periods and
// the period moving average for odd ones. Positions without a complete
// observed window are NaN.
func centredMovingAverage(series *timeseries.Series, period int) []float64 {
	n := series.Len()
	half := period / 2
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
		if i < half || i+half >= n {
			continue
		}
		sum, ok := 0.0, true
		for j := i - half; j <= i+half && ok; j++ {
			w := 1.0
			if period%2 == 0 && (j == i-half || j == i+half) {
				w = 0.5
			}
			ok = !series.IsMissing(j)
			sum += w * series.Values[j]
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// AICc corrects the AIC for small samples:
// AICc = AIC + 2k(k+1)/(n−k−1).
func AICc(aic float64, nObs int, nParams int) float64 {
	k := float64(nParams)
	n := float64(nObs)
	if n-k-1 <= 0 {
		return math.Inf(1)
	}
	return aic + 2*k*(k+1)/(n-k-1)
}

// InformationCriteria holds the usual penalized likelihood criteria.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC computes AIC, AICc and BIC from a log-likelihood, the number
// of observations entering it and the number of estimated parameters.
func CalculateIC(logLik float64, nObs int, nParams int) *InformationCriteria {
	k := float64(nParams)
	aic := -2*logLik + 2*k
	return &InformationCriteria{
		AIC:    aic,
		AICc:   AICc(aic, nObs, nParams),
		BIC:    -2*logLik + k*math.Log(float64(nObs)),
		LogLik: logLik,
	}
}
