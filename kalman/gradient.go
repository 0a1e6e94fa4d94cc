package kalman

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/ssm"
)

// ErrNonFiniteGradient is returned when a finite-difference evaluation
// stepped outside the admissible parameter region.
var ErrNonFiniteGradient = errors.New("kalman: non-finite gradient")

// Objective maps a parameter vector to a model. It returns an error for
// parameters outside the admissible region.
type Objective func(params []float64) (ssm.Model, error)

// NegLogLikelihood returns the function minimized by maximum likelihood.
// Infeasible parameter vectors map to +Inf.
func NegLogLikelihood(obj Objective, y Observations, opts ...Option) func([]float64) float64 {
	return func(x []float64) float64 {
		lik, err := evaluateObjective(obj, y, x, opts)
		if err != nil {
			return math.Inf(1)
		}
		return -lik.LogLikelihood()
	}
}

// NegConcentratedLogLikelihood is NegLogLikelihood with the scale factor
// concentrated out.
func NegConcentratedLogLikelihood(obj Objective, y Observations, opts ...Option) func([]float64) float64 {
	return func(x []float64) float64 {
		lik, err := evaluateObjective(obj, y, x, opts)
		if err != nil || lik.Count == 0 {
			return math.Inf(1)
		}
		return -lik.ConcentratedLogLikelihood()
	}
}

func evaluateObjective(obj Objective, y Observations, x []float64, opts []Option) (Likelihood, error) {
	m, err := obj(x)
	if err != nil {
		return Likelihood{}, err
	}
	return Evaluate(m, y, opts...)
}

// Gradient returns the central finite-difference gradient of the negative
// log-likelihood at params.
func Gradient(obj Objective, y Observations, params []float64, opts ...Option) ([]float64, error) {
	if _, err := evaluateObjective(obj, y, params, opts); err != nil {
		return nil, err
	}
	g := fd.Gradient(nil, NegLogLikelihood(obj, y, opts...), params, &fd.Settings{
		Formula: fd.Central,
	})
	for _, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return g, ErrNonFiniteGradient
		}
	}
	return g, nil
}

// Residuals returns e_t = v_t/√f_t · exp((log|F|)/(2n)), whose sum of
// squares is minimized by the concentrated maximum likelihood estimate.
// Least-squares minimizers such as Gauss-Newton work on these directly.
func Residuals(obj Objective, y Observations, params []float64, opts ...Option) ([]float64, error) {
	m, err := obj(params)
	if err != nil {
		return nil, err
	}
	r, err := Filter(m, y, opts...)
	if err != nil {
		return nil, err
	}
	lik := r.Likelihood
	if lik.Count == 0 {
		return nil, nil
	}
	scale := math.Exp((lik.LogDet + lik.DiffuseLogDet) / (2 * float64(lik.Count)))
	e := r.StandardizedInnovations()
	for i := range e {
		e[i] *= scale
	}
	return e, nil
}

// Jacobian returns the central finite-difference Jacobian of Residuals,
// one row per residual and one column per parameter.
func Jacobian(obj Objective, y Observations, params []float64, opts ...Option) (*mat.Dense, error) {
	e, err := Residuals(obj, y, params, opts...)
	if err != nil {
		return nil, err
	}
	if len(e) == 0 || len(params) == 0 {
		return nil, errors.New("kalman: empty Jacobian")
	}
	jac := mat.NewDense(len(e), len(params), nil)
	fd.Jacobian(jac, func(dst, x []float64) {
		r, err := Residuals(obj, y, x, opts...)
		if err != nil || len(r) != len(dst) {
			for i := range dst {
				dst[i] = math.NaN()
			}
			return
		}
		copy(dst, r)
	}, params, &fd.JacobianSettings{
		Formula: fd.Central,
	})
	for _, v := range jac.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return jac, ErrNonFiniteGradient
		}
	}
	return jac, nil
}
