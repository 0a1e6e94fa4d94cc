// Package arima implements AutoRegressive Integrated Moving Average (ARIMA) models.
//
// An ARIMA(p,d,q) model combines:
//   - AR(p): AutoRegressive component with p lags
//   - I(d): Integration (differencing) of order d
//   - MA(q): Moving Average component with q lags
//
// Models are cast in state space form (see StateSpace) and estimated by
// exact maximum likelihood through the kalman package. Differencing is not
// applied to the data: the lagged observations are diffuse states of the
// model, so the likelihood, forecasts and residuals are all on the
// original scale. Missing values are skipped by the filter and can be
// filled in with Interpolate.
//
// # Basic Usage
//
//	model := arima.New(1, 1, 0)
//	if err := model.Fit(series); err != nil {
//	    log.Fatal(err)
//	}
//
//	summary := model.Summary()
//	fmt.Printf("AIC: %.2f, BIC: %.2f\n", summary.AIC, summary.BIC)
//
//	forecasts, lower, upper, _ := model.PredictWithInterval(10, 0.95)
//
// # Multiplicative Structures
//
// Fit accepts any product of AR and MA factors in powers of the lag
// operator. The sarima package is a thin wrapper over it:
//
//	est, err := arima.Fit(series, arima.Structure{
//	    AR:     []arima.Factor{{Order: 1, Lag: 1}, {Order: 1, Lag: 12}},
//	    MA:     []arima.Factor{{Order: 1, Lag: 12}},
//	    D:      1,
//	    SD:     1,
//	    Period: 12,
//	}, arima.FitConfig{})
//
// Coefficients are searched in the space of partial autocorrelations, so
// every fitted model is stationary and invertible.
package arima
