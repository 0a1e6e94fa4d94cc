// Package sarima implements multiplicative seasonal ARIMA models,
// SARIMA(p,d,q)(P,D,Q)[m]:
//
//	φ(B) Φ(Bᵐ) (1−B)ᵈ (1−Bᵐ)ᴰ y_t = θ(B) Θ(Bᵐ) ε_t
//
// The polynomial products are expanded and estimated by exact maximum
// likelihood with arima.Fit. Both kinds of differencing are handled by
// diffuse initial states, so d + mD observations go into the
// initialization and forecasts come out of the filter on the original
// scale. A mean is estimated only when the model has no differencing.
//
//	m := sarima.New(0, 1, 1, 0, 1, 1, 12) // airline model
//	if err := m.Fit(series); err != nil {
//		return err
//	}
//	forecasts, lower, upper, _ := m.PredictWithInterval(24, 0.9)
//
// Missing observations are skipped by the filter, and Interpolate returns
// their smoothed estimates.
package sarima
