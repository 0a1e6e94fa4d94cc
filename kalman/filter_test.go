package kalman

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/linalg"
	"github.com/sartorproj/statespace/ssm"
)

func TestAR1HandComputed(t *testing.T) {
	y := Values{1, -0.5, 0.3, 2, 1.2}
	r, err := Filter(ar1(0.7, 1, 0), y)
	require.NoError(t, err)
	require.Len(t, r.Steps, 5)

	wantV := []float64{1, -1.2, 0.65, 1.79, -0.2}
	wantF := []float64{1 / 0.51, 1, 1, 1, 1}
	for i, st := range r.Steps {
		assert.InDelta(t, wantV[i], st.V, 1e-9, "v[%d]", i)
		assert.InDelta(t, wantF[i], st.F, 1e-9, "f[%d]", i)
		assert.Equal(t, PhaseOrdinary, st.Phase)
	}

	ssq := 0.51 + 1.44 + 0.4225 + 3.2041 + 0.04
	want := -0.5 * (5*math.Log(2*math.Pi) - math.Log(0.51) + ssq)
	assert.InDelta(t, ssq, r.Likelihood.SumSquares, 1e-9)
	assert.InDelta(t, want, r.Likelihood.LogLikelihood(), 1e-9)
	assert.InDelta(t, -7.739664942655247, r.Likelihood.LogLikelihood(), 1e-9)
	assert.Equal(t, 5, r.Likelihood.Count)

	// predicted state for t = 6
	assert.InDelta(t, 0.7*1.2, r.A.AtVec(0), 1e-9)
	assert.InDelta(t, 1.0, r.P.At(0, 0), 1e-9)
}

func TestEmptySequence(t *testing.T) {
	lik, err := Evaluate(ar1(0.5, 1, 0.1), Values{})
	require.NoError(t, err)
	assert.Equal(t, 0, lik.Count)
	assert.Equal(t, 0.0, lik.LogLikelihood())

	states, r, err := FilterAndSmooth(ar1(0.5, 1, 0.1), Values{})
	require.NoError(t, err)
	assert.Empty(t, states)
	assert.Equal(t, 0, r.N)
}

func TestDiffuseInitializationIncomplete(t *testing.T) {
	full := ssm.Initialization{
		Stationary: mat.NewSymDense(2, nil),
		Diffuse:    mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	}
	m := localLinearTrend(1, 0.1, 1, full)

	tests := []struct {
		name string
		y    Observations
	}{
		{"empty", Values{}},
		{"shorter than dimension", Values{3}},
		{"missing", Masked{Values: []float64{1, 2, 3}, Missing: []bool{false, true, true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(m, tt.y)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDiffuseInitializationIncomplete)
			assert.True(t, IsInfeasible(err))
		})
	}

	_, err := Evaluate(m, Values{1, 2})
	assert.NoError(t, err)
}

func TestLocalLevelDiffuseLikelihood(t *testing.T) {
	const q, h = 0.3, 1.5
	y := Values{2.1, 2.9, 2.2, 3.5, 4.1, 3.8, 4.4}

	r, err := Filter(localLevel(q, h), y)
	require.NoError(t, err)

	first := r.Steps[0]
	assert.Equal(t, PhaseDiffuse, first.Phase)
	assert.True(t, first.Informative)
	assert.InDelta(t, 1.0, first.FInf, 1e-15)
	assert.InDelta(t, h, first.F, 1e-15)
	assert.Equal(t, PhaseOrdinary, r.Steps[1].Phase)
	assert.Equal(t, 1, r.Likelihood.DiffuseCount)
	assert.Equal(t, len(y)-1, r.Likelihood.Count)
	assert.InDelta(t, 0.0, r.Likelihood.DiffuseLogDet, 1e-15)

	// After the diffuse step the filter is an ordinary filter started at
	// a = y_1, P = h + q.
	cond, err := ssm.NewMatrices(
		mat.NewDense(1, 1, []float64{1}),
		mat.NewVecDense(1, []float64{1}),
		h, nil,
		mat.NewSymDense(1, []float64{q}),
		ssm.Initialization{
			Mean:       mat.NewVecDense(1, []float64{y[0]}),
			Stationary: mat.NewSymDense(1, []float64{h + q}),
		},
	)
	require.NoError(t, err)
	want, err := Evaluate(cond, y[1:])
	require.NoError(t, err)

	assert.InDelta(t, want.SumSquares, r.Likelihood.SumSquares, 1e-12)
	assert.InDelta(t, want.LogDet, r.Likelihood.LogDet, 1e-12)
	assert.InDelta(t, want.LogLikelihood(), r.Likelihood.LogLikelihood(), 1e-12)
}

func TestDiffuseRankDecreasesByOne(t *testing.T) {
	full := ssm.Initialization{
		Stationary: mat.NewSymDense(2, nil),
		Diffuse:    mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	}
	y := Masked{Values: []float64{1, 0, 2, 2.5, 3.1}, Missing: []bool{false, true, false, false, false}}
	r, err := Filter(localLinearTrend(0.5, 0.1, 1, full), y)
	require.NoError(t, err)

	ranks := make([]int, 0, 3)
	for _, st := range r.Steps[:3] {
		require.Equal(t, PhaseDiffuse, st.Phase)
		ranks = append(ranks, rank(st.PInf))
	}
	assert.Equal(t, []int{2, 1, 1}, ranks)
	assert.True(t, r.Steps[0].Informative)
	assert.True(t, r.Steps[1].Missing)
	assert.True(t, r.Steps[2].Informative)
	assert.Equal(t, PhaseOrdinary, r.Steps[3].Phase)
	assert.Equal(t, 2, r.Likelihood.DiffuseCount)
	assert.Equal(t, 2, r.Likelihood.Count)
}

func TestDiffuseUninformativeStep(t *testing.T) {
	// Only the slope is diffuse; it is not seen until the transition has
	// moved it into the level.
	init := ssm.Initialization{
		Stationary: mat.NewSymDense(2, []float64{1, 0, 0, 0}),
		Diffuse:    mat.NewDense(2, 1, []float64{0, 1}),
	}
	r, err := Filter(localLinearTrend(0.2, 0.05, 0.5, init), Values{0.3, 1.1, 2.4, 2.9})
	require.NoError(t, err)

	assert.Equal(t, PhaseDiffuse, r.Steps[0].Phase)
	assert.False(t, r.Steps[0].Informative)
	assert.InDelta(t, 0.0, r.Steps[0].FInf, 1e-15)
	assert.True(t, r.Steps[1].Informative)
	assert.Equal(t, PhaseOrdinary, r.Steps[2].Phase)
	assert.Equal(t, 3, r.Likelihood.Count)
	assert.Equal(t, 1, r.Likelihood.DiffuseCount)
}

func TestDiffuseToleranceScalesWithLargestDirection(t *testing.T) {
	// With P∞ = I the first observation has F∞ = 1 = |Z|² λmax(P∞), so it is
	// informative at a tolerance of 0.6. The remaining direction T e₂ = (1, 1)
	// has F∞ = 1 < 0.6·2 at t = 1 and T² e₂ = (2, 1) has F∞ = 4 > 0.6·5 at
	// t = 2.
	full := ssm.Initialization{
		Stationary: mat.NewSymDense(2, nil),
		Diffuse:    mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	}
	r, err := Filter(localLinearTrend(0.5, 0.1, 1, full), Values{1, 1.8, 3.1, 4.2, 5}, WithDiffuseTolerance(0.6))
	require.NoError(t, err)

	assert.True(t, r.Steps[0].Informative)
	assert.InDelta(t, 1, r.Steps[0].FInf, 1e-12)
	assert.False(t, r.Steps[1].Informative)
	assert.Equal(t, PhaseDiffuse, r.Steps[1].Phase)
	assert.True(t, r.Steps[2].Informative)
	assert.InDelta(t, 4, r.Steps[2].FInf, 1e-12)
	assert.Equal(t, PhaseOrdinary, r.Steps[3].Phase)
	assert.Equal(t, 2, r.Likelihood.DiffuseCount)
	assert.Equal(t, 3, r.Likelihood.Count)
}

func TestIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	m := randomModel(rng, 4)
	y := simulate(rng, m, 200, 10, 50)

	a, err := Evaluate(m, y, WithSteadyState(0, 0))
	require.NoError(t, err)
	b, err := Evaluate(m, y, WithSteadyState(0, 0))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSteadyStateMatchesOrdinary(t *testing.T) {
	tests := []struct {
		d, n    int
		missing []int
	}{
		{1, 200, []int{20}},
		{2, 400, []int{40, 200}},
		{5, 2000, []int{100, 101, 900, 1500}},
		{12, 500, []int{250}},
		{20, 2000, []int{5, 1000}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("d=%d/n=%d", tt.d, tt.n), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(uint64(tt.d), uint64(tt.n)))
			m := randomModel(rng, tt.d)
			y := simulate(rng, m, tt.n, tt.missing...)

			ord, err := Filter(m, y)
			require.NoError(t, err)
			fast, err := Filter(m, y, WithSteadyState(0, 0))
			require.NoError(t, err)

			steady := 0
			for i := range ord.Steps {
				o, f := ord.Steps[i], fast.Steps[i]
				require.Equal(t, o.Missing, f.Missing)
				assert.InDelta(t, o.F, f.F, 1e-9*o.F, "f[%d]", i)
				if f.Phase == PhaseSteadyState {
					steady++
				}
				if o.Missing {
					continue
				}
				assert.InDelta(t, o.V, f.V, 1e-8*(1+math.Abs(o.V)), "v[%d]", i)
				assert.LessOrEqual(t, linalg.MaxAbsDiff(o.K, f.K), 1e-9*math.Max(1, linalg.MaxAbs(o.K)), "K[%d]", i)
			}
			assert.Positive(t, steady, "fast filter never froze")

			lo, lf := ord.Likelihood, fast.Likelihood
			assert.Equal(t, lo.Count, lf.Count)
			assert.InDelta(t, lo.LogLikelihood(), lf.LogLikelihood(), 1e-9*math.Abs(lo.LogLikelihood()))
			assert.InDelta(t, lo.SumSquares, lf.SumSquares, 1e-9*lo.SumSquares)
		})
	}
}

func TestSteadyStateLeftOnMissing(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	m := randomModel(rng, 2)
	y := simulate(rng, m, 600, 300)

	r, err := Filter(m, y, WithSteadyState(0, 0))
	require.NoError(t, err)
	require.Equal(t, PhaseSteadyState, r.Steps[299].Phase)
	assert.True(t, r.Steps[300].Missing)
	assert.Equal(t, PhaseSteadyState, r.Steps[300].Phase)
	assert.Equal(t, PhaseOrdinary, r.Steps[301].Phase)
	assert.Equal(t, PhaseSteadyState, r.Steps[599].Phase)
}

// timeVarying wraps a model and scales its loading with t.
type timeVarying struct {
	*ssm.Matrices
}

func (m timeVarying) TimeInvariant() bool { return false }

func (m timeVarying) Loading(t int) mat.Vector {
	z := mat.VecDenseCopyOf(m.Z)
	z.ScaleVec(1+0.1*float64(t%3), z)
	return z
}

func TestTimeVaryingNeverFreezes(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	m := timeVarying{randomModel(rng, 3)}
	y := simulate(rng, m.Matrices, 300)

	r, err := Filter(m, y, WithSteadyState(0, 0))
	require.NoError(t, err)
	for _, st := range r.Steps {
		require.NotEqual(t, PhaseSteadyState, st.Phase)
	}
	ord, err := Evaluate(m, y)
	require.NoError(t, err)
	assert.Equal(t, ord, r.Likelihood)
}

func TestSquareRootMatchesOrdinary(t *testing.T) {
	diffuse := localLinearTrend(0.5, 0.1, 1, ssm.Initialization{
		Stationary: mat.NewSymDense(2, nil),
		Diffuse:    mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	})
	rng := rand.New(rand.NewPCG(21, 4))

	tests := []struct {
		name string
		m    *ssm.Matrices
		y    Observations
	}{
		{"ar1", ar1(0.7, 1, 0.2), Values{1, -0.5, 0.3, 2, 1.2}},
		{"random d=3", nil, nil},
		{"random d=8", nil, nil},
		{"diffuse trend", diffuse, Masked{
			Values:  []float64{1, 2, 0, 3.5, 4, 5.5, 5.9, 7.2},
			Missing: []bool{false, false, true, false, false, false, false, false},
		}},
	}
	tests[1].m = randomModel(rng, 3)
	tests[1].y = simulate(rng, tests[1].m, 200, 7, 8, 150)
	tests[2].m = randomModel(rng, 8)
	tests[2].y = simulate(rng, tests[2].m, 300, 30)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ord, err := Filter(tt.m, tt.y)
			require.NoError(t, err)
			sq, err := Filter(tt.m, tt.y, WithSquareRoot(), WithSteadyState(0, 0))
			require.NoError(t, err)

			for i := range ord.Steps {
				o, s := ord.Steps[i], sq.Steps[i]
				assert.InDelta(t, o.F, s.F, 1e-9*o.F, "f[%d]", i)
				assert.InDelta(t, o.V, s.V, 1e-9*(1+math.Abs(o.V)), "v[%d]", i)
				assert.LessOrEqual(t, linalg.MaxAbsDiffMatrix(o.P, s.P), 1e-9*math.Max(1, maxAbsSym(o.P)), "P[%d]", i)
				assert.NotEqual(t, PhaseSteadyState, s.Phase)
			}
			assert.InDelta(t, ord.Likelihood.LogLikelihood(), sq.Likelihood.LogLikelihood(),
				1e-9*math.Abs(ord.Likelihood.LogLikelihood()))
			assert.LessOrEqual(t, linalg.MaxAbsDiffMatrix(ord.P, sq.P), 1e-9*math.Max(1, maxAbsSym(ord.P)))
		})
	}
}

func TestPredictedCovariancesArePSD(t *testing.T) {
	rng := rand.New(rand.NewPCG(99, 1))
	for _, d := range []int{1, 4, 10} {
		m := randomModel(rng, d)
		y := simulate(rng, m, 300, 3, 4, 5)
		r, err := Filter(m, y, WithPSDCheck(), WithSteadyState(0, 0))
		require.NoError(t, err)
		for i, st := range r.Steps {
			require.True(t, linalg.IsPSD(st.P, 1e-8), "P[%d] d=%d", i, d)
		}
	}
}

func TestRoundTripReproducesTrajectory(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 12))
	m := randomModel(rng, 3)
	y := simulate(rng, m, 120)

	r, err := Filter(m, y)
	require.NoError(t, err)

	// a_{t+1} = T a_t + K_t v_t
	a := mat.VecDenseCopyOf(r.Steps[0].A)
	next := mat.NewVecDense(3, nil)
	for i, st := range r.Steps {
		require.LessOrEqual(t, linalg.MaxAbsDiff(a, st.A), 1e-10, "a[%d]", i)
		next.MulVec(m.T, a)
		next.AddScaledVec(next, st.V, st.K)
		a.CopyVec(next)
	}
	assert.LessOrEqual(t, linalg.MaxAbsDiff(a, r.A), 1e-10)
}

func rank(p *mat.SymDense) int {
	var es mat.EigenSym
	if !es.Factorize(p, false) {
		return -1
	}
	n := 0
	for _, v := range es.Values(nil) {
		if v > 1e-10 {
			n++
		}
	}
	return n
}
