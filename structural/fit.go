package structural

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/sartorproj/statespace/internal/mle"
	"github.com/sartorproj/statespace/kalman"
	"github.com/sartorproj/statespace/ssm"
	"github.com/sartorproj/statespace/stats"
	"github.com/sartorproj/statespace/timeseries"
)

// ErrTooShort is returned when the series cannot identify the diffuse
// states and the free parameters.
var ErrTooShort = errors.New("structural: insufficient data points for the specification")

const defaultCyclePeriod = 20

// FitConfig tunes the estimation.
type FitConfig struct {
	MaxIterations int
	FilterOptions []kalman.Option
	Logger        log.FieldLogger
}

// Model is a fitted structural model.
type Model struct {
	Spec       Spec
	Params     Params
	Matrices   *ssm.Matrices
	Components ssm.Components

	Likelihood kalman.Likelihood
	// NParams counts the variances and the cycle parameters.
	NParams int
	AIC     float64
	AICc    float64
	BIC     float64

	Run *kalman.Run

	opts []kalman.Option
	data kalman.Masked
}

// ratio maps an unconstrained value onto a variance ratio.
func ratio(x float64) float64 {
	return math.Exp(max(-30, min(30, x)))
}

// params maps the unconstrained vector onto Params with unit irregular
// variance: log ratios of every disturbance variance, then logit ρ and
// log(2π/λ − 2) when the cycle is present.
func (s Spec) params(x []float64) Params {
	p := Params{Irregular: 1}
	i := 0
	next := func() float64 {
		v := x[i]
		i++
		return v
	}
	p.Level = ratio(next())
	if s.Slope {
		p.Slope = ratio(next())
	}
	if s.seasonal() {
		p.Seasonal = ratio(next())
	}
	if s.Cycle {
		p.Cycle = ratio(next())
		p.CycleDamping = 1 / (1 + math.Exp(-next()))
		p.CycleFrequency = 2 * math.Pi / (2 + ratio(next()))
	}
	return p
}

func (s Spec) start() []float64 {
	x := []float64{math.Log(0.1)}
	if s.Slope {
		x = append(x, math.Log(0.01))
	}
	if s.seasonal() {
		x = append(x, math.Log(0.01))
	}
	if s.Cycle {
		period := s.CyclePeriod
		if period == 0 {
			period = defaultCyclePeriod
		}
		x = append(x, math.Log(0.1), math.Log(0.9/0.1), math.Log(period-2))
	}
	return x
}

func (s Spec) diffuseDim() int {
	return s.layout().dim - 2*boolInt(s.Cycle)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Fit estimates the variances of spec on series by maximizing the diffuse
// likelihood with the irregular variance concentrated out.
func Fit(series *timeseries.Series, spec Spec, cfg FitConfig) (*Model, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	start := spec.start()
	if series.ObservedCount() < spec.diffuseDim()+len(start)+2 {
		return nil, ErrTooShort
	}

	data := kalman.Masked{Values: series.Values, Missing: series.Missing}
	objective := func(x []float64) (ssm.Model, error) {
		m, _, err := Build(spec, spec.params(x))
		return m, err
	}
	res, err := mle.Minimize(mle.Problem{
		Objective:     kalman.NegConcentratedLogLikelihood(objective, data, cfg.FilterOptions...),
		Start:         start,
		MaxIterations: cfg.MaxIterations,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("structural: %w", err)
	}

	p := spec.params(res.X)
	scaled, _, err := Build(spec, p)
	if err != nil {
		return nil, err
	}
	lik, err := kalman.Evaluate(scaled, data, cfg.FilterOptions...)
	if err != nil {
		return nil, fmt.Errorf("structural: %w", err)
	}
	s2 := lik.Sigma2()
	p.Level *= s2
	p.Slope *= s2
	p.Seasonal *= s2
	p.Cycle *= s2
	p.Irregular *= s2

	m := &Model{Spec: spec, Params: p, opts: cfg.FilterOptions, data: data}
	if m.Matrices, m.Components, err = Build(spec, p); err != nil {
		return nil, err
	}
	if m.Run, err = kalman.Filter(m.Matrices, data, cfg.FilterOptions...); err != nil {
		return nil, fmt.Errorf("structural: %w", err)
	}
	m.Likelihood = m.Run.Likelihood
	// start holds every parameter except the irregular variance
	m.NParams = len(start) + 1
	ic := stats.CalculateIC(m.Likelihood.LogLikelihood(), m.Likelihood.Count, m.NParams)
	m.AIC, m.AICc, m.BIC = ic.AIC, ic.AICc, ic.BIC

	logger.WithFields(log.Fields{
		"level":       p.Level,
		"slope":       p.Slope,
		"seasonal":    p.Seasonal,
		"cycle":       p.Cycle,
		"irregular":   p.Irregular,
		"loglik":      m.Likelihood.LogLikelihood(),
		"evaluations": res.Evaluations,
	}).Debug("structural: fitted")
	return m, nil
}

// Forecast returns the predictive distributions of the next steps
// observations.
func (m *Model) Forecast(steps int) ([]kalman.Distribution, error) {
	return m.Run.Forecast(steps)
}

// Component returns the smoothed path of the named component over the
// fitted sample.
func (m *Model) Component(name string) (kalman.ComponentSeries, error) {
	c, ok := m.Components.Lookup(name)
	if !ok {
		return kalman.ComponentSeries{}, fmt.Errorf("structural: no component %q", name)
	}
	states, err := kalman.Smooth(m.Run)
	if err != nil {
		return kalman.ComponentSeries{}, err
	}
	return kalman.Component(states, c.Loading), nil
}
