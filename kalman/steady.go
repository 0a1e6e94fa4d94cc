package kalman

import (
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/linalg"
)

// convergence tracks how many consecutive observed steps left f and K
// unchanged within tolerance.
type convergence struct {
	f     float64
	k     *mat.VecDense
	have  bool
	count int
}

func (c *convergence) reset() {
	c.have = false
	c.count = 0
}

// steadyState is the frozen solution of the Riccati recursion. p is shared
// by every step recorded while frozen.
type steadyState struct {
	p    *mat.SymDense
	m, k *mat.VecDense
	f    float64
	// l = K √f is the direction by which a missing observation moves the
	// covariance away from p.
	l *mat.VecDense
}

func (f *filter) detectSteadyState(t int, fv float64) {
	if !f.fast {
		return
	}
	c := &f.conv
	if c.have {
		tol := f.opts.SteadyStateTolerance
		df := math.Abs(fv-c.f) <= tol*fv
		dk := linalg.MaxAbsDiff(f.ws.k, c.k) <= tol*math.Max(1, linalg.MaxAbs(f.ws.k))
		if df && dk {
			c.count++
		} else {
			c.count = 0
		}
	}
	c.f = fv
	c.k.CopyVec(f.ws.k)
	c.have = true

	if c.count >= f.opts.SteadyStateSteps {
		f.freeze(t)
	}
}

// freeze switches to the steady-state recursion using the covariance just
// predicted for t+1.
func (f *filter) freeze(t int) {
	ws := f.ws
	d := ws.d
	tr := f.model.Transition(t + 1)
	z := f.model.Loading(t + 1)

	s := &steadyState{
		p: symCopy(ws.p),
		m: mat.NewVecDense(d, nil),
		k: mat.NewVecDense(d, nil),
		l: mat.NewVecDense(d, nil),
	}
	s.m.MulVec(s.p, z)
	s.f = mat.Dot(z, s.m) + f.model.ObservationVariance(t+1)
	if !(s.f > f.opts.InnovationTolerance) {
		f.conv.reset()
		return
	}
	s.k.MulVec(tr, s.m)
	s.k.ScaleVec(1/s.f, s.k)
	s.l.ScaleVec(math.Sqrt(s.f), s.k)

	f.steady = s
	f.conv.reset()
	f.log.WithFields(log.Fields{"f": s.f}).Debug("kalman: gain converged")
	f.setPhase(PhaseSteadyState, t+1)
}

// steadyStep applies a = T a + K v with the frozen gain. A missing
// observation adds l l' to the covariance and hands control back to the
// ordinary recursion, which will detect convergence again.
func (f *filter) steadyStep(t int, y float64, observed bool) error {
	ws := f.ws
	s := f.steady
	st := f.begin(PhaseSteadyState)
	tr := f.model.Transition(t)
	z := f.model.Loading(t)

	ws.tmp.MulVec(tr, ws.a)
	if !observed {
		st.Missing = true
		st.F = s.f
		ws.a.CopyVec(ws.tmp)
		// T P̄ T' + Q = P̄ + K̄ f̄ K̄'
		ws.p.CopySym(s.p)
		linalg.SymRankUpdate(ws.p, 1, s.l)
		f.commit(st)
		f.setPhase(PhaseOrdinary, t+1)
		return nil
	}

	v := y - mat.Dot(z, ws.a)
	f.lik.add(v, s.f)
	ws.a.CopyVec(ws.tmp)
	linalg.AddScaled(ws.a, v, s.k)

	st.V, st.F = v, s.f
	if f.opts.StoreHistory {
		st.M, st.K = s.m, s.k
	}
	f.commit(st)
	return nil
}
