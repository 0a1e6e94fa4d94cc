// Package statespace provides linear Gaussian state space models: Kalman
// filtering and smoothing, exact likelihood evaluation and the ARIMA,
// SARIMA and structural time series models built on them.
//
// Every model is reduced to the system
//
//	y_t = Z α_t + ε_t,          ε_t ~ N(0, H)
//	α_{t+1} = T α_t + R η_t,    η_t ~ N(0, V)
//
// with a possibly diffuse initial state. The filter handles missing
// observations by skipping the update step and supports an exact diffuse
// initialization, a steady-state shortcut and a square-root form.
//
// # Quick Start
//
// Fit an ARIMA model by exact maximum likelihood:
//
//	series := timeseries.New(values)
//	model := arima.New(1, 1, 0)
//	if err := model.Fit(series); err != nil {
//		return err
//	}
//	forecasts, lower, upper, _ := model.PredictWithInterval(10, 0.95)
//
// Decompose a monthly series into trend, seasonal and irregular parts:
//
//	m, err := structural.Fit(series, structural.Spec{Slope: true, Period: 12}, structural.FitConfig{})
//	dec, err := structural.Decompose(series, m)
//
// Run the filter directly on hand-built matrices:
//
//	run, err := kalman.Filter(matrices, kalman.Values(y))
//	fmt.Println(run.Likelihood.LogLikelihood())
//
// # Packages
//
//   - linalg: numerical helpers over gonum matrices
//   - ssm: model matrices, initialization and components
//   - kalman: filter, smoother, forecasts, likelihood and gradients
//   - timeseries: the Series type with a missing-value mask and CSV I/O
//   - stats: correlograms, unit-root tests, portmanteau tests and criteria
//   - arima, sarima: (seasonal) ARIMA estimation through the filter
//   - autoarima: stepwise or exhaustive order selection
//   - structural: basic structural models and their decomposition
//
// # References
//
//   - Durbin, J., & Koopman, S. J. (2012). Time Series Analysis by State Space Methods
//   - Harvey, A. C. (1989). Forecasting, Structural Time Series Models and the Kalman Filter
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
package statespace
