// Package kalman implements the Kalman filter and fixed-interval smoother
// for models described by ssm.Model with scalar observations.
//
// A single forward pass is a state machine over three phases:
//
//   - PhaseDiffuse: the exact initial filter. Part of the first state has
//     unbounded variance; every informative observation removes one diffuse
//     direction until none is left.
//   - PhaseOrdinary: the standard predict/update recursion. Covariance
//     updates are symmetric rank-1 downdates followed by symmetrization, or
//     Householder triangularizations in square-root mode.
//   - PhaseSteadyState: for time-invariant models with WithSteadyState, once
//     the innovation variance and gain stop changing the covariance is
//     frozen and each step only propagates the state.
//
// Missing observations are part of the input (Observations.At returns
// ok == false) and only propagate the state.
//
// # Usage
//
//	lik, err := kalman.Evaluate(model, kalman.Values(y))
//	if kalman.IsInfeasible(err) {
//		// reject this parameter vector
//	}
//
//	states, run, err := kalman.FilterAndSmooth(model, series, kalman.WithSteadyState(0, 0))
//	trend := kalman.Component(states, components[0].Loading)
//	fc, err := run.Forecast(12)
//
// Every run allocates its own workspace; the package holds no mutable state
// and independent runs may execute concurrently (see EvaluateAll).
package kalman
