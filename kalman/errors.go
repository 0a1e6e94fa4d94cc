package kalman

import (
	"errors"
	"fmt"
)

// Kind classifies the failures of a filtering run.
type Kind int

const (
	// SingularInnovation means an innovation variance was not positive.
	SingularInnovation Kind = iota + 1
	// DiffuseInitializationIncomplete means the sample ended before the
	// diffuse part of the initial state was fully identified.
	DiffuseInitializationIncomplete
	// NonPositiveSemiDefiniteCovariance means a state covariance lost
	// positive semi-definiteness beyond tolerance.
	NonPositiveSemiDefiniteCovariance
	// ModelContractViolation means the model is malformed.
	ModelContractViolation
)

func (k Kind) String() string {
	switch k {
	case SingularInnovation:
		return "singular innovation"
	case DiffuseInitializationIncomplete:
		return "diffuse initialization incomplete"
	case NonPositiveSemiDefiniteCovariance:
		return "covariance not positive semi-definite"
	case ModelContractViolation:
		return "model contract violation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the failure type of every engine entry point.
type Error struct {
	Kind Kind
	// Step is the zero-based time index at which the run failed, or -1.
	Step   int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := "kalman: " + e.Kind.String()
	if e.Step >= 0 {
		msg += fmt.Sprintf(" at step %d", e.Step)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels for errors.Is.
var (
	ErrSingularInnovation                = &Error{Kind: SingularInnovation, Step: -1}
	ErrDiffuseInitializationIncomplete   = &Error{Kind: DiffuseInitializationIncomplete, Step: -1}
	ErrNonPositiveSemiDefiniteCovariance = &Error{Kind: NonPositiveSemiDefiniteCovariance, Step: -1}
	ErrModelContractViolation            = &Error{Kind: ModelContractViolation, Step: -1}
)

// ErrNoHistory is returned when smoothing a run that did not keep its steps.
var ErrNoHistory = errors.New("kalman: run has no step history")

// IsInfeasible reports whether err rejects a parameter vector rather than
// signalling a programming error. Optimizers treat such errors as an
// infinitely bad objective value.
func IsInfeasible(err error) bool {
	return errors.Is(err, ErrSingularInnovation) ||
		errors.Is(err, ErrDiffuseInitializationIncomplete) ||
		errors.Is(err, ErrNonPositiveSemiDefiniteCovariance)
}

func newError(kind Kind, step int, format string, args ...any) *Error {
	return &Error{Kind: kind, Step: step, Detail: fmt.Sprintf(format, args...)}
}
