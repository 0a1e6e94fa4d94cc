// Package mle maximizes likelihoods with the Nelder-Mead simplex and maps
// unconstrained parameters onto the stationary and invertible regions.
package mle

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/optimize"
)

// ErrInfeasibleStart is returned when the objective is not finite at the
// starting point.
var ErrInfeasibleStart = errors.New("mle: objective not finite at the starting point")

// Problem is a minimization problem. Objective returns +Inf for parameters
// outside the admissible region.
type Problem struct {
	Objective func(x []float64) float64
	Start     []float64

	// MaxIterations bounds the simplex iterations (default 2000).
	MaxIterations int
	// Tolerance is the relative change of the objective below which the
	// search stops (default 1e-9).
	Tolerance float64
	// SimplexSize is the initial edge length (default 0.1).
	SimplexSize float64

	Logger log.FieldLogger
}

// Result is the minimizer found.
type Result struct {
	X           []float64
	F           float64
	Evaluations int
	Iterations  int
	Status      string
}

// Minimize runs Nelder-Mead from p.Start.
func Minimize(p Problem) (Result, error) {
	if len(p.Start) == 0 {
		v := p.Objective(nil)
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return Result{}, ErrInfeasibleStart
		}
		return Result{F: v, Evaluations: 1, Status: "NoParameters"}, nil
	}
	f0 := p.Objective(p.Start)
	if math.IsInf(f0, 0) || math.IsNaN(f0) {
		return Result{}, ErrInfeasibleStart
	}

	maxIter := p.MaxIterations
	if maxIter <= 0 {
		maxIter = 2000
	}
	tol := p.Tolerance
	if tol <= 0 {
		tol = 1e-9
	}
	size := p.SimplexSize
	if size <= 0 {
		size = 0.1
	}
	logger := p.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v := p.Objective(x)
			if math.IsNaN(v) {
				return math.Inf(1)
			}
			return v
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   tol,
			Relative:   tol,
			Iterations: 100,
		},
	}
	method := &optimize.NelderMead{SimplexSize: size}

	res, err := optimize.Minimize(problem, p.Start, settings, method)
	if res == nil {
		return Result{}, fmt.Errorf("mle: %w", err)
	}
	out := Result{
		X:           res.X,
		F:           res.F,
		Evaluations: res.FuncEvaluations,
		Iterations:  res.MajorIterations,
		Status:      res.Status.String(),
	}
	if res.F > f0 {
		out.X, out.F = append([]float64(nil), p.Start...), f0
	}
	logger.WithFields(log.Fields{
		"status":      out.Status,
		"f":           out.F,
		"evaluations": out.Evaluations,
	}).Debug("mle: optimization finished")
	if err != nil && res.Status != optimize.IterationLimit {
		logger.WithError(err).Debug("mle: optimizer stopped early")
	}
	return out, nil
}
