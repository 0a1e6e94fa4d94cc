package kalman

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/ssm"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("fit: %w", newError(SingularInnovation, 4, "innovation variance %g", 0.0))

	assert.ErrorIs(t, err, ErrSingularInnovation)
	assert.NotErrorIs(t, err, ErrDiffuseInitializationIncomplete)
	assert.True(t, IsInfeasible(err))
	assert.Contains(t, err.Error(), "singular innovation at step 4")

	var kerr *Error
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, 4, kerr.Step)

	contract := &Error{Kind: ModelContractViolation, Step: -1, Err: ssm.ErrDimension}
	assert.False(t, IsInfeasible(contract))
	assert.ErrorIs(t, contract, ssm.ErrDimension)
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestSingularInnovation(t *testing.T) {
	m := unobservable()
	_, err := Evaluate(m, Values{1, 2})
	require.ErrorIs(t, err, ErrSingularInnovation)
	var kerr *Error
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, 0, kerr.Step)

	_, err = Evaluate(m, Values{1, 2}, WithSquareRoot())
	assert.ErrorIs(t, err, ErrSingularInnovation)

	// missing observations never fail
	_, err = Evaluate(m, Masked{Values: []float64{1, 2}, Missing: []bool{true, true}})
	assert.NoError(t, err)
}

// badModel reports a dimension that its matrices do not have.
type badModel struct {
	*ssm.Matrices
}

func (badModel) Dim() int { return 2 }

func TestModelContractViolation(t *testing.T) {
	_, err := Evaluate(badModel{ar1(0.5, 1, 1)}, Values{1})
	assert.ErrorIs(t, err, ErrModelContractViolation)
	assert.ErrorIs(t, err, ssm.ErrDimension)

	_, err = Evaluate(ar1(0.5, 1, 1), Values{1, math.NaN()})
	assert.ErrorIs(t, err, ErrModelContractViolation)

	// a dependent diffuse basis can never be fully identified
	m := localLinearTrend(0.1, 0.01, 1, ssm.Initialization{
		Stationary: mat.NewSymDense(2, nil),
		Diffuse:    mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	})
	m.Init.Diffuse = mat.NewDense(2, 2, []float64{1, 1, 0, 0})
	_, err = Evaluate(m, Values{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrModelContractViolation)
	assert.ErrorIs(t, err, ssm.ErrRankDeficient)
	assert.NotErrorIs(t, err, ErrDiffuseInitializationIncomplete)
}

func TestNonPositiveSemiDefiniteCovariance(t *testing.T) {
	m, err := ssm.NewMatrices(
		mat.NewDense(1, 1, []float64{0.7}),
		mat.NewVecDense(1, []float64{1}),
		5, nil,
		mat.NewSymDense(1, []float64{0.1}),
		ssm.Initialization{Stationary: mat.NewSymDense(1, []float64{-1})},
	)
	require.NoError(t, err)

	_, err = Evaluate(m, Values{1, 2, 3}, WithPSDCheck())
	assert.ErrorIs(t, err, ErrNonPositiveSemiDefiniteCovariance)
	assert.True(t, IsInfeasible(err))

	_, err = Evaluate(m, Values{1, 2, 3})
	assert.NoError(t, err)

	_, err = Evaluate(m, Values{1, 2, 3}, WithSquareRoot())
	assert.ErrorIs(t, err, ErrNonPositiveSemiDefiniteCovariance)
}

func TestLikelihoodDerived(t *testing.T) {
	l := Likelihood{SumSquares: 8, LogDet: 1, DiffuseLogDet: 0.5, Count: 4, DiffuseCount: 1}
	assert.Equal(t, 2.0, l.Sigma2())
	assert.InDelta(t, -0.5*(4*math.Log(2*math.Pi)+1.5+8), l.LogLikelihood(), 1e-15)
	assert.InDelta(t, -0.5*(4*(math.Log(2*math.Pi)+1+math.Log(2))+1.5), l.ConcentratedLogLikelihood(), 1e-15)
	assert.InDelta(t, -2*l.LogLikelihood(), l.Deviance(), 1e-15)

	var empty Likelihood
	assert.Equal(t, 0.0, empty.LogLikelihood())
	assert.Equal(t, 0.0, empty.ConcentratedLogLikelihood())
	assert.Equal(t, 0.0, empty.Sigma2())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "diffuse", PhaseDiffuse.String())
	assert.Equal(t, "ordinary", PhaseOrdinary.String())
	assert.Equal(t, "steady-state", PhaseSteadyState.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
