package kalman

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/statespace/linalg"
	"github.com/sartorproj/statespace/ssm"
)

// Distribution is a Gaussian predictive distribution of one observation.
type Distribution struct {
	Mean     float64
	Variance float64
}

// Interval returns the central prediction interval with the given coverage,
// for instance 0.95.
func (d Distribution) Interval(level float64) (lo, hi float64) {
	switch {
	case math.IsInf(d.Variance, 1):
		return math.Inf(-1), math.Inf(1)
	case !(d.Variance > 0):
		return d.Mean, d.Mean
	}
	n := distuv.Normal{Mu: d.Mean, Sigma: math.Sqrt(d.Variance)}
	return n.Quantile((1 - level) / 2), n.Quantile((1 + level) / 2)
}

// Forecast filters y and extends the last prediction horizon steps ahead
// without further updates.
func Forecast(m ssm.Model, y Observations, horizon int, opts ...Option) ([]Distribution, error) {
	o := newOptions(opts)
	o.StoreHistory = false
	r, err := run(m, y, o)
	if err != nil {
		return nil, err
	}
	return r.Forecast(horizon)
}

// Forecast returns the predictive distributions of y_{N+1}, ..., y_{N+horizon}.
func (r *Run) Forecast(horizon int) ([]Distribution, error) {
	if horizon < 0 {
		return nil, errors.New("kalman: negative forecast horizon")
	}
	d := r.model.Dim()
	a := mat.VecDenseCopyOf(r.A)
	p := symCopy(r.P)
	tmp := mat.NewVecDense(d, nil)
	w1 := mat.NewDense(d, d, nil)
	w2 := mat.NewDense(d, d, nil)
	zp := mat.NewVecDense(d, nil)

	out := make([]Distribution, horizon)
	for h := 0; h < horizon; h++ {
		t := r.N + h
		z := r.model.Loading(t)
		zp.MulVec(p, z)
		out[h] = Distribution{
			Mean:     mat.Dot(z, a),
			Variance: mat.Dot(z, zp) + r.model.ObservationVariance(t),
		}

		tr := r.model.Transition(t)
		tmp.MulVec(tr, a)
		a.CopyVec(tmp)
		linalg.Sandwich(p, tr, p, w1, w2)
		ssm.AddQ(r.model, t, p)
	}
	return out, nil
}

// Predictions returns the one-step-ahead predictive distribution of every
// observation of the sample. Steps that still carry diffuse variance have
// infinite variance.
func (r *Run) Predictions() ([]Distribution, error) {
	if len(r.Steps) != r.N {
		return nil, ErrNoHistory
	}
	out := make([]Distribution, r.N)
	for t, st := range r.Steps {
		z := r.model.Loading(t)
		out[t].Mean = mat.Dot(z, st.A)
		out[t].Variance = st.F
		switch {
		case st.Informative:
			out[t].Variance = math.Inf(1)
		case st.Phase == PhaseDiffuse && st.Missing:
			if mat.Inner(z, st.PInf, z) > 0 {
				out[t].Variance = math.Inf(1)
				continue
			}
			var m mat.VecDense
			m.MulVec(st.P, z)
			out[t].Variance = mat.Dot(z, &m) + r.model.ObservationVariance(t)
		}
	}
	return out, nil
}

// StandardizedInnovations returns v_t/√f_t for every observed step that
// enters the likelihood sum of squares, in time order.
func (r *Run) StandardizedInnovations() []float64 {
	out := make([]float64, 0, r.Likelihood.Count)
	for _, st := range r.Steps {
		if st.Missing || st.Informative {
			continue
		}
		out = append(out, st.V/math.Sqrt(st.F))
	}
	return out
}

// ComponentSeries is the smoothed path of one linear combination of the
// state.
type ComponentSeries struct {
	Mean     []float64
	Variance []float64
}

// Component extracts loading' α_t from smoothed states.
func Component(states []SmoothedState, loading mat.Vector) ComponentSeries {
	c := ComponentSeries{
		Mean:     make([]float64, len(states)),
		Variance: make([]float64, len(states)),
	}
	for t, s := range states {
		c.Mean[t] = mat.Dot(loading, s.Mean)
		c.Variance[t] = mat.Inner(loading, s.Covariance, loading)
	}
	return c
}
