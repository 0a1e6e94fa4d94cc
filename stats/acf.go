package stats

import (
	"math"

	"github.com/sartorproj/statespace/timeseries"
)

// ACF calculates the sample autocorrelation function for lags 0 to maxLag.
// A lag-k product enters the sum only when both of its values are observed.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 || series.ObservedCount() == 0 {
		return nil
	}

	mean := series.Mean()
	dev := make([]float64, n)
	variance := 0.0
	for i, v := range series.Values {
		if series.IsMissing(i) {
			continue
		}
		dev[i] = v - mean
		variance += dev[i] * dev[i]
	}
	if variance == 0 {
		return nil
	}

	// missing positions have dev = 0 and drop out of the products
	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += dev[i] * dev[i-k]
		}
		acf[k] = sum / variance
	}
	return acf
}

// DurbinLevinson solves the Yule-Walker equations of orders 1 to order by
// the Durbin-Levinson recursion. It returns the AR(order) coefficients and
// the partial autocorrelations for lags 0 to order. acf must hold lags 0 to
// at least order.
func DurbinLevinson(acf []float64, order int) (phi, pacf []float64) {
	if order < 1 || len(acf) <= order {
		return nil, nil
	}
	pacf = make([]float64, order+1)
	pacf[0] = 1

	phi = make([]float64, order)
	prev := make([]float64, order)
	phi[0] = acf[1]
	pacf[1] = acf[1]
	v := 1 - acf[1]*acf[1]

	for k := 2; k <= order; k++ {
		if v <= 0 {
			break
		}
		num := acf[k]
		for j := 1; j < k; j++ {
			num -= phi[j-1] * acf[k-j]
		}
		kk := num / v
		copy(prev, phi[:k-1])
		for j := 1; j < k; j++ {
			phi[j-1] = prev[j-1] - kk*prev[k-j-1]
		}
		phi[k-1] = kk
		pacf[k] = kk
		v *= 1 - kk*kk
	}
	return phi, pacf
}

// PACF calculates the partial autocorrelation function for lags 0 to
// maxLag.
func PACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}
	acf := ACF(series, maxLag)
	if acf == nil {
		return nil
	}
	_, pacf := DurbinLevinson(acf, maxLag)
	return pacf
}

// YuleWalker estimates AR(order) coefficients from the sample
// autocorrelations of series.
func YuleWalker(series *timeseries.Series, order int) []float64 {
	acf := ACF(series, order)
	if acf == nil {
		return nil
	}
	phi, _ := DurbinLevinson(acf, order)
	return phi
}

// CorrelogramResult holds ACF or PACF values with their approximate 95%
// bounds ±1.96/√n.
type CorrelogramResult struct {
	Lags       []int
	Values     []float64
	ConfBounds float64
}

// ACFWithConfidence calculates the ACF with confidence bounds.
func ACFWithConfidence(series *timeseries.Series, maxLag int) *CorrelogramResult {
	return correlogram(ACF(series, maxLag), series.ObservedCount())
}

// PACFWithConfidence calculates the PACF with confidence bounds.
func PACFWithConfidence(series *timeseries.Series, maxLag int) *CorrelogramResult {
	return correlogram(PACF(series, maxLag), series.ObservedCount())
}

func correlogram(values []float64, n int) *CorrelogramResult {
	if values == nil {
		return nil
	}
	lags := make([]int, len(values))
	for i := range lags {
		lags[i] = i
	}
	return &CorrelogramResult{
		Lags:       lags,
		Values:     values,
		ConfBounds: 1.96 / math.Sqrt(float64(n)),
	}
}

// SignificantLags returns the lags, lag 0 excluded, whose values exceed
// the confidence bound.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}
