// Package sarima implements Seasonal ARIMA (SARIMA) models.
package sarima

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/sartorproj/statespace/arima"
	"github.com/sartorproj/statespace/kalman"
	"github.com/sartorproj/statespace/ssm"
	"github.com/sartorproj/statespace/stats"
	"github.com/sartorproj/statespace/timeseries"
)

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int // Non-seasonal AR order
	D int // Non-seasonal differencing order
	Q int // Non-seasonal MA order
	// Seasonal components
	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period (e.g., 12 for monthly data with yearly seasonality)
}

func (o Order) String() string {
	return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

// Structure returns the multiplicative structure
// φ(B)Φ(Bᵐ)(1−B)ᵈ(1−Bᵐ)ᴰ y_t = θ(B)Θ(Bᵐ)ε_t. A mean is estimated only
// when the model is not differenced.
func (o Order) Structure() arima.Structure {
	return arima.Structure{
		AR:     []arima.Factor{{Order: o.P, Lag: 1}, {Order: o.SP, Lag: o.M}},
		MA:     []arima.Factor{{Order: o.Q, Lag: 1}, {Order: o.SQ, Lag: o.M}},
		D:      o.D,
		SD:     o.SD,
		Period: o.M,
		Mean:   o.D == 0 && o.SD == 0,
	}
}

// Model represents a SARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // Non-seasonal AR coefficients
	MACoeffs  []float64 // Non-seasonal MA coefficients
	SARCoeffs []float64 // Seasonal AR coefficients
	SMACoeffs []float64 // Seasonal MA coefficients
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC for small sample sizes
	BIC       float64
	LogLik    float64

	// Standard errors for coefficients
	ARStdErrors  []float64
	MAStdErrors  []float64
	SARStdErrors []float64
	SMAStdErrors []float64

	FilterOptions []kalman.Option
	MaxIterations int
	Logger        log.FieldLogger

	fitted bool
	data   *timeseries.Series
	est    *arima.Estimate
}

var errNotFitted = errors.New("model must be fitted before prediction")

// New creates a new SARIMA model with the specified order.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return &Model{
		Order: Order{
			P: p, D: d, Q: q,
			SP: sp, SD: sd, SQ: sq, M: m,
		},
		ARCoeffs:  make([]float64, p),
		MACoeffs:  make([]float64, q),
		SARCoeffs: make([]float64, sp),
		SMACoeffs: make([]float64, sq),
	}
}

// Fit estimates the model on series by exact maximum likelihood. Missing
// values are allowed.
func (m *Model) Fit(series *timeseries.Series) error {
	o := m.Order
	if o.M < 1 || (o.M == 1 && (o.SP > 0 || o.SD > 0 || o.SQ > 0)) {
		return fmt.Errorf("sarima: invalid seasonal period %d", o.M)
	}
	est, err := arima.Fit(series, o.Structure(), arima.FitConfig{
		MaxIterations: m.MaxIterations,
		FilterOptions: m.FilterOptions,
		Logger:        m.Logger,
	})
	if err != nil {
		return err
	}

	m.data = series
	m.est = est
	m.ARCoeffs, m.SARCoeffs = est.AR[0], est.AR[1]
	m.MACoeffs, m.SMACoeffs = est.MA[0], est.MA[1]

	se := est.StdErrors
	m.ARStdErrors, se = se[:o.P], se[o.P:]
	m.SARStdErrors, se = se[:o.SP], se[o.SP:]
	m.MAStdErrors, se = se[:o.Q], se[o.Q:]
	m.SMAStdErrors = se[:o.SQ]

	m.Intercept = est.Mean
	m.Variance = est.Sigma2
	ic := stats.CalculateIC(est.Likelihood.LogLikelihood(), est.Likelihood.Count, est.NParams)
	m.LogLik, m.AIC, m.AICc, m.BIC = ic.LogLik, ic.AIC, ic.AICc, ic.BIC
	m.fitted = true
	return nil
}

// Estimate returns the underlying fit, nil before Fit.
func (m *Model) Estimate() *arima.Estimate { return m.est }

// StateSpaceModel returns the fitted model in state space form.
func (m *Model) StateSpaceModel() *ssm.Matrices {
	if !m.fitted {
		return nil
	}
	return m.est.Model
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	forecasts, _, _, err := m.PredictWithInterval(steps, 0.95)
	return forecasts, err
}

// PredictWithInterval generates forecasts with prediction intervals.
// Returns point forecasts, lower bounds, and upper bounds at the given confidence level.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if !m.fitted {
		return nil, nil, nil, errNotFitted
	}
	if steps < 1 {
		return nil, nil, nil, errors.New("steps must be at least 1")
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	fc, err := m.est.Forecast(steps)
	if err != nil {
		return nil, nil, nil, err
	}
	forecasts = make([]float64, steps)
	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for h, d := range fc {
		forecasts[h] = d.Mean
		lower[h], upper[h] = d.Interval(confidence)
	}
	return forecasts, lower, upper, nil
}

// Residuals returns the one-step-ahead prediction errors, NaN for missing
// observations and for those that initialize the differencing.
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

// Summary represents a model summary.
type Summary struct {
	Order        Order
	ARCoeffs     []float64
	MACoeffs     []float64
	SARCoeffs    []float64
	SMACoeffs    []float64
	ARStdErrors  []float64
	MAStdErrors  []float64
	SARStdErrors []float64
	SMAStdErrors []float64
	Intercept    float64
	Variance     float64
	AIC          float64
	AICc         float64
	BIC          float64
	LogLik       float64
	NObs         int
	LjungBox     *stats.PortmanteauResult
}

// Summary returns a summary of the fitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}
	lags := 10
	if m.Order.M > 1 {
		lags = max(lags, 2*m.Order.M)
	}
	return &Summary{
		Order:        m.Order,
		ARCoeffs:     m.ARCoeffs,
		MACoeffs:     m.MACoeffs,
		SARCoeffs:    m.SARCoeffs,
		SMACoeffs:    m.SMACoeffs,
		ARStdErrors:  m.ARStdErrors,
		MAStdErrors:  m.MAStdErrors,
		SARStdErrors: m.SARStdErrors,
		SMAStdErrors: m.SMAStdErrors,
		Intercept:    m.Intercept,
		Variance:     m.Variance,
		AIC:          m.AIC,
		AICc:         m.AICc,
		BIC:          m.BIC,
		LogLik:       m.LogLik,
		NObs:         m.data.ObservedCount(),
		LjungBox:     m.est.Diagnostics(lags),
	}
}
