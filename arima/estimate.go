package arima

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/internal/mle"
	"github.com/sartorproj/statespace/kalman"
	"github.com/sartorproj/statespace/ssm"
	"github.com/sartorproj/statespace/stats"
	"github.com/sartorproj/statespace/timeseries"
)

// Factor is one multiplicative AR or MA factor of order Order in the lag
// operator Bˢ, s = Lag.
type Factor struct {
	Order int
	Lag   int
}

// Structure is a multiplicative ARIMA structure
//
//	Π φᵢ(B^sᵢ) (1−B)ᵈ (1−Bᵐ)ᴰ (y_t − μ) = Π θⱼ(B^sⱼ) ε_t
//
// μ is estimated only when Mean is set.
type Structure struct {
	AR     []Factor
	MA     []Factor
	D      int
	SD     int
	Period int
	Mean   bool
}

// ARMAParams counts the coefficients of all factors.
func (s Structure) ARMAParams() int {
	n := 0
	for _, f := range s.AR {
		n += f.Order
	}
	for _, f := range s.MA {
		n += f.Order
	}
	return n
}

// Estimate is a fitted Structure.
type Estimate struct {
	Structure Structure
	// AR and MA hold the coefficients of each factor.
	AR [][]float64
	MA [][]float64
	// StdErrors holds the standard errors of the AR then MA coefficients,
	// NaN where the information matrix could not be inverted.
	StdErrors []float64
	Mean      float64
	Sigma2    float64

	Likelihood kalman.Likelihood
	// NParams counts the coefficients, σ² and μ when estimated.
	NParams int

	Model *ssm.Matrices
	Run   *kalman.Run
	data  kalman.Masked
}

// FitConfig tunes the estimation.
type FitConfig struct {
	// MaxIterations bounds the Nelder-Mead iterations.
	MaxIterations int
	// FilterOptions are passed to every likelihood evaluation.
	FilterOptions []kalman.Option
	Logger        log.FieldLogger
}

// ErrTooShort is returned when the series has too few observations for the
// structure.
var ErrTooShort = errors.New("arima: insufficient data points for the specified order")

// Polynomials returns the full AR, MA and differencing polynomials.
func (e *Estimate) Polynomials() (ar, ma, delta Polynomial) {
	return polynomials(e.Structure, e.AR, e.MA)
}

func polynomials(s Structure, ar, ma [][]float64) (Polynomial, Polynomial, Polynomial) {
	arPoly, maPoly := Polynomial{1}, Polynomial{1}
	for i, f := range s.AR {
		arPoly = arPoly.Mul(ARPolynomial(ar[i], f.Lag))
	}
	for i, f := range s.MA {
		maPoly = maPoly.Mul(MAPolynomial(ma[i], f.Lag))
	}
	return arPoly, maPoly, Differencing(s.D, s.SD, s.Period)
}

// build maps the coefficients of every factor onto a state space model.
func build(s Structure, ar, ma [][]float64, sigma2 float64) (*ssm.Matrices, error) {
	arPoly, maPoly, delta := polynomials(s, ar, ma)
	return StateSpace(arPoly.ARCoefficients(), maPoly.MACoefficients(), delta.ARCoefficients(), sigma2)
}

// split cuts a flat parameter vector into per-factor blocks. When
// constrained is set, blocks are mapped onto the stationary and invertible
// regions.
func split(s Structure, x []float64, constrained bool) (ar, ma [][]float64) {
	off := 0
	for _, f := range s.AR {
		block := x[off : off+f.Order]
		if constrained {
			block = mle.Stationary(block)
		}
		ar = append(ar, append([]float64(nil), block...))
		off += f.Order
	}
	for _, f := range s.MA {
		block := x[off : off+f.Order]
		if constrained {
			block = mle.Invertible(block)
		}
		ma = append(ma, append([]float64(nil), block...))
		off += f.Order
	}
	return ar, ma
}

func flatten(ar, ma [][]float64) []float64 {
	var out []float64
	for _, b := range ar {
		out = append(out, b...)
	}
	for _, b := range ma {
		out = append(out, b...)
	}
	return out
}

// Fit estimates s on series by maximizing the exact likelihood with σ²
// concentrated out. Missing observations are skipped by the filter.
func Fit(series *timeseries.Series, s Structure, cfg FitConfig) (*Estimate, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	lags := Differencing(s.D, s.SD, s.Period).Degree()
	k := s.ARMAParams()
	if series.ObservedCount() < k+lags+10 {
		return nil, ErrTooShort
	}

	est := &Estimate{Structure: s}
	est.data = kalman.Masked{Values: make([]float64, series.Len()), Missing: series.Missing}
	if s.Mean {
		est.Mean = series.Mean()
	}
	for i, v := range series.Values {
		est.data.Values[i] = v - est.Mean
	}

	start := startingValues(series, s)
	objective := func(x []float64) (ssm.Model, error) {
		ar, ma := split(s, x, true)
		return build(s, ar, ma, 1)
	}
	res, err := mle.Minimize(mle.Problem{
		Objective:     kalman.NegConcentratedLogLikelihood(objective, est.data, cfg.FilterOptions...),
		Start:         start,
		MaxIterations: cfg.MaxIterations,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("arima: %w", err)
	}
	est.AR, est.MA = split(s, res.X, true)

	// σ̂² from the concentrated fit, then the exact run at σ̂²
	scaled, err := build(s, est.AR, est.MA, 1)
	if err != nil {
		return nil, err
	}
	lik, err := kalman.Evaluate(scaled, est.data, cfg.FilterOptions...)
	if err != nil {
		return nil, fmt.Errorf("arima: %w", err)
	}
	est.Sigma2 = lik.Sigma2()
	if est.Model, err = build(s, est.AR, est.MA, est.Sigma2); err != nil {
		return nil, err
	}
	if est.Run, err = kalman.Filter(est.Model, est.data, cfg.FilterOptions...); err != nil {
		return nil, fmt.Errorf("arima: %w", err)
	}
	est.Likelihood = est.Run.Likelihood
	est.NParams = k + 1
	if s.Mean {
		est.NParams++
	}
	est.StdErrors = est.stdErrors(cfg.FilterOptions)

	logger.WithFields(log.Fields{
		"params":      k,
		"loglik":      est.Likelihood.LogLikelihood(),
		"sigma2":      est.Sigma2,
		"evaluations": res.Evaluations,
	}).Debug("arima: fitted")
	return est, nil
}

// startingValues returns unconstrained parameters: Yule-Walker estimates
// for the first AR factor on the differenced series, 0.1 for the first MA
// factor and zero for seasonal factors.
func startingValues(series *timeseries.Series, s Structure) []float64 {
	diff := series
	for i := 0; i < s.D; i++ {
		diff = diff.Diff()
	}
	for i := 0; i < s.SD; i++ {
		diff = diff.SeasonalDiff(s.Period)
	}

	var x []float64
	for i, f := range s.AR {
		block := make([]float64, f.Order)
		if i == 0 && f.Order > 0 {
			if yw := mle.Shrink(stats.YuleWalker(diff, f.Order)); len(yw) == f.Order {
				block = yw
			}
		}
		u, ok := mle.Unconstrained(block)
		if !ok {
			u = make([]float64, f.Order)
		}
		x = append(x, u...)
	}
	for i, f := range s.MA {
		block := make([]float64, f.Order)
		if i == 0 {
			for j := range block {
				block[j] = 0.1
			}
		}
		u, ok := mle.UnconstrainedMA(block)
		if !ok {
			u = make([]float64, f.Order)
		}
		x = append(x, u...)
	}
	return x
}

// stdErrors inverts the finite-difference Hessian of the negative
// log-likelihood in the coefficients at σ̂².
func (e *Estimate) stdErrors(opts []kalman.Option) []float64 {
	x := flatten(e.AR, e.MA)
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(x) == 0 {
		return out
	}

	nll := kalman.NegLogLikelihood(func(c []float64) (ssm.Model, error) {
		ar, ma := split(e.Structure, c, false)
		return build(e.Structure, ar, ma, e.Sigma2)
	}, e.data, opts...)
	hess := mat.NewSymDense(len(x), nil)
	fd.Hessian(hess, nll, x, nil)

	var chol mat.Cholesky
	if !chol.Factorize(hess) {
		return out
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return out
	}
	for i := range out {
		if v := inv.At(i, i); v > 0 && !math.IsInf(v, 0) {
			out[i] = math.Sqrt(v)
		}
	}
	return out
}

// Forecast returns the h-step predictive distributions on the original
// scale.
func (e *Estimate) Forecast(steps int) ([]kalman.Distribution, error) {
	fc, err := e.Run.Forecast(steps)
	if err != nil {
		return nil, err
	}
	for i := range fc {
		fc[i].Mean += e.Mean
	}
	return fc, nil
}

// Residuals returns the one-step-ahead prediction errors. Missing
// observations and those spent on the diffuse initial lags are NaN.
func (e *Estimate) Residuals() []float64 {
	out := make([]float64, len(e.Run.Steps))
	for t, st := range e.Run.Steps {
		if st.Missing || st.Informative {
			out[t] = math.NaN()
			continue
		}
		out[t] = st.V
	}
	return out
}

// FittedValues returns the one-step-ahead predictions of the series.
func (e *Estimate) FittedValues() []float64 {
	pred, err := e.Run.Predictions()
	if err != nil {
		return nil
	}
	out := make([]float64, len(pred))
	for t, p := range pred {
		out[t] = p.Mean + e.Mean
		if math.IsInf(p.Variance, 1) {
			out[t] = math.NaN()
		}
	}
	return out
}

// Interpolate returns the smoothed estimate of every observation, with
// missing values filled in from the whole sample.
func (e *Estimate) Interpolate() ([]float64, error) {
	states, err := kalman.Smooth(e.Run)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(states))
	for t, s := range states {
		if y, ok := e.data.At(t); ok {
			out[t] = y + e.Mean
			continue
		}
		out[t] = mat.Dot(e.Model.Z, s.Mean) + e.Mean
	}
	return out, nil
}

// Diagnostics runs the Ljung-Box test on the standardized innovations.
func (e *Estimate) Diagnostics(lags int) *stats.PortmanteauResult {
	resid := timeseries.New(e.Run.StandardizedInnovations())
	return stats.LjungBox(resid, lags, e.Structure.ARMAParams())
}
