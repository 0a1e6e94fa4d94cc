// Package arima implements ARIMA models estimated by exact maximum
// likelihood through the Kalman filter.
package arima

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/sartorproj/statespace/kalman"
	"github.com/sartorproj/statespace/ssm"
	"github.com/sartorproj/statespace/stats"
	"github.com/sartorproj/statespace/timeseries"
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int // AR order (number of autoregressive terms)
	D int // Differencing order
	Q int // MA order (number of moving average terms)
}

// Model represents an ARIMA model.
type Model struct {
	Order       Order
	ARCoeffs    []float64 // AR coefficients (phi)
	MACoeffs    []float64 // MA coefficients (theta)
	ARStdErrors []float64
	MAStdErrors []float64
	Intercept   float64 // Mean of the series, estimated when D = 0
	Variance    float64 // Innovation variance
	AIC         float64
	AICc        float64 // Corrected AIC for small sample sizes
	BIC         float64
	LogLik      float64

	// FilterOptions are passed to every Kalman filter run.
	FilterOptions []kalman.Option
	// MaxIterations bounds the optimizer (default 2000).
	MaxIterations int
	Logger        log.FieldLogger

	fitted bool
	data   *timeseries.Series
	est    *Estimate
}

var errNotFitted = errors.New("model must be fitted before prediction")

// New creates a new ARIMA model with the specified order.
func New(p, d, q int) *Model {
	return &Model{
		Order:    Order{P: p, D: d, Q: q},
		ARCoeffs: make([]float64, p),
		MACoeffs: make([]float64, q),
	}
}

// Structure returns the estimation structure of the order.
func (o Order) Structure() Structure {
	return Structure{
		AR:   []Factor{{Order: o.P, Lag: 1}},
		MA:   []Factor{{Order: o.Q, Lag: 1}},
		D:    o.D,
		Mean: o.D == 0,
	}
}

// Fit estimates the model on series. Missing values are allowed.
func (m *Model) Fit(series *timeseries.Series) error {
	est, err := Fit(series, m.Order.Structure(), FitConfig{
		MaxIterations: m.MaxIterations,
		FilterOptions: m.FilterOptions,
		Logger:        m.Logger,
	})
	if err != nil {
		return err
	}

	m.data = series
	m.est = est
	m.ARCoeffs = est.AR[0]
	m.MACoeffs = est.MA[0]
	m.ARStdErrors = est.StdErrors[:m.Order.P]
	m.MAStdErrors = est.StdErrors[m.Order.P:]
	m.Intercept = est.Mean
	m.Variance = est.Sigma2

	ic := stats.CalculateIC(est.Likelihood.LogLikelihood(), est.Likelihood.Count, est.NParams)
	m.LogLik, m.AIC, m.AICc, m.BIC = ic.LogLik, ic.AIC, ic.AICc, ic.BIC
	m.fitted = true
	return nil
}

// StateSpaceModel returns the fitted model in state space form.
func (m *Model) StateSpaceModel() *ssm.Matrices {
	if !m.fitted {
		return nil
	}
	return m.est.Model
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	f, _, _, err := m.PredictWithInterval(steps, 0.95)
	return f, err
}

// PredictWithInterval returns forecasts with prediction intervals at the
// given confidence level.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if !m.fitted {
		return nil, nil, nil, errNotFitted
	}
	if steps < 1 {
		return nil, nil, nil, errors.New("steps must be at least 1")
	}
	return intervals(m.est, steps, confidence)
}

func intervals(est *Estimate, steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	fc, err := est.Forecast(steps)
	if err != nil {
		return nil, nil, nil, err
	}
	forecasts = make([]float64, steps)
	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for i, d := range fc {
		forecasts[i] = d.Mean
		lower[i], upper[i] = d.Interval(confidence)
	}
	return forecasts, lower, upper, nil
}

// Residuals returns the one-step-ahead prediction errors, NaN where the
// series is missing or was used to initialize the differencing.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return m.est.Residuals()
}

// FittedValues returns the one-step-ahead predictions.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	return m.est.FittedValues()
}

// Interpolate returns the series with missing values replaced by their
// smoothed estimates.
func (m *Model) Interpolate() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted
	}
	return m.est.Interpolate()
}

// Summary returns a summary of the fitted model.
type Summary struct {
	Order       Order
	ARCoeffs    []float64
	MACoeffs    []float64
	ARStdErrors []float64
	MAStdErrors []float64
	Intercept   float64
	Variance    float64
	AIC         float64
	AICc        float64 // Corrected AIC
	BIC         float64
	LogLik      float64
	NObs        int
	LjungBox    *stats.PortmanteauResult
}

// Summary returns a summary of the fitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}
	return &Summary{
		Order:       m.Order,
		ARCoeffs:    m.ARCoeffs,
		MACoeffs:    m.MACoeffs,
		ARStdErrors: m.ARStdErrors,
		MAStdErrors: m.MAStdErrors,
		Intercept:   m.Intercept,
		Variance:    m.Variance,
		AIC:         m.AIC,
		AICc:        m.AICc,
		BIC:         m.BIC,
		LogLik:      m.LogLik,
		NObs:        m.data.ObservedCount(),
		LjungBox:    m.est.Diagnostics(10),
	}
}
