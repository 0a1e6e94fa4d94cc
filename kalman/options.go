package kalman

import (
	log "github.com/sirupsen/logrus"
)

// Options configures a filtering run. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// InnovationTolerance is the smallest innovation variance accepted.
	InnovationTolerance float64
	// DiffuseTolerance decides whether an observation is informative about
	// the diffuse part of the state. It is relative to |Z|² λmax(P∞), with
	// λmax(P∞) = ‖B‖₂² for the diffuse basis B.
	DiffuseTolerance float64
	// PSDTolerance is the relative negative-eigenvalue slack used by the
	// square-root factorization and by the PSD checks.
	PSDTolerance float64

	// SteadyState enables the fast filter for time-invariant models.
	SteadyState bool
	// SteadyStateTolerance is the relative change in f and K below which a
	// step counts towards convergence.
	SteadyStateTolerance float64
	// SteadyStateSteps is the number of consecutive converged steps
	// required before the recursion is frozen.
	SteadyStateSteps int

	// SquareRoot carries the covariance as a factor S with P = S S' once
	// the diffuse phase is over.
	SquareRoot bool
	// StoreHistory keeps one Step per observation for the smoother.
	StoreHistory bool
	// CheckPSD verifies every predicted and smoothed covariance.
	CheckPSD bool

	Logger log.FieldLogger
}

// DefaultOptions returns the settings used when no option is given.
func DefaultOptions() Options {
	return Options{
		InnovationTolerance:  1e-12,
		DiffuseTolerance:     1e-9,
		PSDTolerance:         1e-8,
		SteadyStateTolerance: 1e-13,
		SteadyStateSteps:     3,
		StoreHistory:         true,
		Logger:               log.StandardLogger(),
	}
}

// Option modifies Options.
type Option func(*Options)

// WithSteadyState enables the fast filter. Non-positive arguments keep the
// defaults.
func WithSteadyState(tol float64, steps int) Option {
	return func(o *Options) {
		o.SteadyState = true
		if tol > 0 {
			o.SteadyStateTolerance = tol
		}
		if steps > 0 {
			o.SteadyStateSteps = steps
		}
	}
}

// WithSquareRoot selects the square-root covariance recursion.
func WithSquareRoot() Option {
	return func(o *Options) { o.SquareRoot = true }
}

// WithLogger sets the logger used for phase transitions and failures.
func WithLogger(l log.FieldLogger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithHistory controls whether Filter keeps the per-step results.
func WithHistory(store bool) Option {
	return func(o *Options) { o.StoreHistory = store }
}

// WithPSDCheck verifies positive semi-definiteness of every covariance.
func WithPSDCheck() Option {
	return func(o *Options) { o.CheckPSD = true }
}

// WithInnovationTolerance sets the smallest accepted innovation variance.
func WithInnovationTolerance(tol float64) Option {
	return func(o *Options) { o.InnovationTolerance = tol }
}

// WithDiffuseTolerance sets the relative threshold on F∞.
func WithDiffuseTolerance(tol float64) Option {
	return func(o *Options) { o.DiffuseTolerance = tol }
}

func newOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
	return o
}
