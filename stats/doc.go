// Package stats provides the diagnostic statistics used around model
// fitting: correlograms, portmanteau tests, unit-root tests and information
// criteria. Missing observations are skipped throughout: a lagged product
// enters a correlogram only when both values are observed, and regression
// rows touching a gap are dropped from the unit-root tests.
//
// # Choosing the differencing order
//
// ADF and Phillips-Perron take a unit root as the null hypothesis, KPSS
// takes stationarity. NDiffs applies one of them to successive differences
// and NSDiffs compares the seasonal strength of a moving-average
// decomposition against 0.64:
//
//	sd := stats.NSDiffs(series, 12, 1)
//	d := stats.NDiffs(series, 2, "kpss")
//	if kpss := stats.KPSS(series, "c", 0); kpss != nil && !kpss.IsStationary {
//		// difference before fitting a stationary model
//	}
//
// # Order identification
//
// PACF is computed from the ACF by the Durbin-Levinson recursion, which
// also yields the Yule-Walker starting values of the estimators:
//
//	corr := stats.ACFWithConfidence(series, 24)
//	lags := stats.SignificantLags(corr.Values, corr.ConfBounds)
//	phi := stats.YuleWalker(series, 2)
//
// # Residual checks
//
// The Ljung-Box and Box-Pierce statistics are referred to a chi-squared
// distribution with lags − fitdf degrees of freedom. Fitted models run them
// on the standardized innovations of the filter:
//
//	lb := stats.LjungBox(timeseries.New(run.StandardizedInnovations()), 10, p+q)
//	dw, ok := stats.DurbinWatson(resid)
//
// Seasonal decomposition is done by the structural package, which extracts
// trend and seasonal components with the Kalman smoother.
package stats
