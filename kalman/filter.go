package kalman

import (
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/linalg"
	"github.com/sartorproj/statespace/ssm"
)

// Step is the output of the filter at one time index. Vectors and matrices
// are owned by the Run and must not be modified. During the steady-state
// phase P, M and K point to the same frozen values for every step.
type Step struct {
	Phase   Phase
	Missing bool
	// Informative is set for diffuse steps that removed one diffuse
	// direction.
	Informative bool

	// V is the innovation and F its variance (F* while diffuse).
	V, F float64
	// FInf is Z P∞ Z' during the diffuse phase.
	FInf float64

	// A and P are the predicted state and covariance before the update
	// (P* while diffuse). PInf is the diffuse covariance B B'.
	A    *mat.VecDense
	P    *mat.SymDense
	PInf *mat.SymDense

	// M is P Z' (P* Z' while diffuse) and MInf is P∞ Z'.
	M, MInf *mat.VecDense
	// K is the gain T M / F. On informative diffuse steps K is K⁽⁰⁾ =
	// T M∞/F∞ and K1 is K⁽¹⁾.
	K, K1 *mat.VecDense
}

// Run is the result of a forward pass.
type Run struct {
	Likelihood Likelihood
	// Steps is nil when the run did not keep its history.
	Steps []Step
	// A and P are the one-step predictions for time N.
	A *mat.VecDense
	P *mat.SymDense
	N int

	model ssm.Model
	opts  Options
}

// Model returns the model the run was computed for.
func (r *Run) Model() ssm.Model { return r.model }

// Filter runs the Kalman filter of m over y.
func Filter(m ssm.Model, y Observations, opts ...Option) (*Run, error) {
	return run(m, y, newOptions(opts))
}

// Evaluate returns the likelihood of y under m without keeping the step
// history.
func Evaluate(m ssm.Model, y Observations, opts ...Option) (Likelihood, error) {
	o := newOptions(opts)
	o.StoreHistory = false
	r, err := run(m, y, o)
	if err != nil {
		return Likelihood{}, err
	}
	return r.Likelihood, nil
}

type filter struct {
	model ssm.Model
	opts  Options
	log   log.FieldLogger
	ws    *workspace
	phase Phase
	lik   Likelihood

	steps []Step
	mem   arena

	fast   bool
	conv   convergence
	steady *steadyState

	q     mat.Symmetric // Q for time-invariant models
	noise *mat.Dense    // R sqrt(V) for time-invariant models
}

func run(m ssm.Model, y Observations, o Options) (*Run, error) {
	if err := ssm.Validate(m, 0); err != nil {
		return nil, &Error{Kind: ModelContractViolation, Step: -1, Err: err}
	}
	n := y.Len()
	f, err := newFilter(m, n, o)
	if err != nil {
		return nil, err
	}

	for t := 0; t < n; t++ {
		if t > 0 && !m.TimeInvariant() {
			if err := ssm.Validate(m, t); err != nil {
				return nil, &Error{Kind: ModelContractViolation, Step: t, Err: err}
			}
		}
		obs, ok := y.At(t)
		if ok && (math.IsNaN(obs) || math.IsInf(obs, 0)) {
			return nil, newError(ModelContractViolation, t, "non-finite observation %g", obs)
		}
		if err := f.step(t, obs, ok); err != nil {
			f.log.WithFields(log.Fields{
				"step":  t,
				"phase": f.phase,
			}).Debugf("kalman: run failed: %v", err)
			return nil, err
		}
	}

	if f.phase == PhaseDiffuse {
		_, k := f.ws.b.Dims()
		return nil, newError(DiffuseInitializationIncomplete, n, "%d diffuse directions left after %d observations", k, n)
	}
	return f.result(n), nil
}

func newFilter(m ssm.Model, n int, o Options) (*filter, error) {
	d := m.Dim()
	f := &filter{
		model: m,
		opts:  o,
		log:   o.Logger,
		ws:    newWorkspace(d),
		phase: PhaseOrdinary,
		fast:  o.SteadyState && !o.SquareRoot && m.TimeInvariant(),
	}
	if o.StoreHistory {
		f.steps = make([]Step, 0, n)
		f.mem = newArena(n, d)
	}
	if f.fast {
		f.conv.k = mat.NewVecDense(d, nil)
	}

	in := m.Initialization()
	if in.Mean != nil {
		f.ws.a.CopyVec(in.Mean)
	}
	if in.Stationary != nil {
		f.ws.p.CopySym(in.Stationary)
	}
	if in.DiffuseDim() > 0 {
		f.ws.b = mat.DenseCopyOf(in.Diffuse)
		f.phase = PhaseDiffuse
	} else if o.SquareRoot {
		if err := f.factorize(0); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *filter) step(t int, y float64, observed bool) error {
	switch f.phase {
	case PhaseDiffuse:
		return f.diffuseStep(t, y, observed)
	case PhaseSteadyState:
		return f.steadyStep(t, y, observed)
	}
	if f.opts.SquareRoot {
		return f.squareRootStep(t, y, observed)
	}
	return f.ordinaryStep(t, y, observed)
}

func (f *filter) result(n int) *Run {
	if f.opts.SquareRoot && f.ws.s != nil {
		f.ws.p.SymOuterK(1, f.ws.s)
	}
	return &Run{
		Likelihood: f.lik,
		Steps:      f.steps,
		A:          mat.VecDenseCopyOf(f.ws.a),
		P:          symCopy(f.ws.p),
		N:          n,
		model:      f.model,
		opts:       f.opts,
	}
}

// begin starts the record of step t with the predicted state.
func (f *filter) begin(phase Phase) Step {
	st := Step{Phase: phase}
	if !f.opts.StoreHistory {
		return st
	}
	st.A = f.mem.vec(f.ws.a)
	switch {
	case phase == PhaseSteadyState:
		st.P = f.steady.p
	case phase == PhaseOrdinary && f.opts.SquareRoot:
		f.ws.p.SymOuterK(1, f.ws.s)
		st.P = f.mem.sym(f.ws.p)
	default:
		st.P = f.mem.sym(f.ws.p)
	}
	return st
}

func (f *filter) commit(st Step) {
	if f.opts.StoreHistory {
		f.steps = append(f.steps, st)
	}
}

func (f *filter) keep(v *mat.VecDense) *mat.VecDense {
	if !f.opts.StoreHistory {
		return nil
	}
	return f.mem.vec(v)
}

func (f *filter) stateCovariance(t int) mat.Symmetric {
	if !f.model.TimeInvariant() {
		return ssm.StateCovariance(f.model, t)
	}
	if f.q == nil {
		f.q = ssm.StateCovariance(f.model, t)
	}
	return f.q
}

// predict moves the filtered a and P to the next time index.
func (f *filter) predict(t int, tr mat.Matrix) error {
	ws := f.ws
	ws.tmp.MulVec(tr, ws.a)
	ws.a.CopyVec(ws.tmp)
	linalg.Sandwich(ws.p, tr, ws.p, ws.w1, ws.w2)
	ws.p.AddSym(ws.p, f.stateCovariance(t))
	return f.checkPSD(t, ws.p)
}

func (f *filter) checkPSD(t int, p *mat.SymDense) error {
	if !f.opts.CheckPSD || linalg.IsPSD(p, f.opts.PSDTolerance) {
		return nil
	}
	min, _, _ := linalg.MinEigenvalue(p)
	return newError(NonPositiveSemiDefiniteCovariance, t, "smallest eigenvalue %g", min)
}

func (f *filter) setPhase(phase Phase, t int) {
	f.log.WithFields(log.Fields{
		"step": t,
		"from": f.phase,
		"to":   phase,
	}).Debug("kalman: phase transition")
	f.phase = phase
}

func symCopy(s *mat.SymDense) *mat.SymDense {
	c := mat.NewSymDense(s.SymmetricDim(), nil)
	c.CopySym(s)
	return c
}
