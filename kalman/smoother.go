package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/linalg"
	"github.com/sartorproj/statespace/ssm"
)

// SmoothedState is the distribution of α_t given the whole sample.
// Covariance may be shared between consecutive steady-state time points.
type SmoothedState struct {
	Mean       *mat.VecDense
	Covariance *mat.SymDense
}

// FilterAndSmooth runs the filter with history and the smoother.
func FilterAndSmooth(m ssm.Model, y Observations, opts ...Option) ([]SmoothedState, *Run, error) {
	o := newOptions(opts)
	o.StoreHistory = true
	r, err := run(m, y, o)
	if err != nil {
		return nil, nil, err
	}
	states, err := Smooth(r)
	if err != nil {
		return nil, r, err
	}
	return states, r, nil
}

// Smooth runs the fixed-interval smoother backwards over the steps of r.
//
// With r_n = 0 and N_n = 0 it computes, for t = n..1,
//
//	r_{t-1} = Z' v/F + L' r_t,     L = T - K Z
//	N_{t-1} = Z' Z/F + L' N_t L
//	â_t = a_t + P_t r_{t-1}
//	V_t = P_t - P_t N_{t-1} P_t
//
// Missing observations contribute nothing (Z = 0). Steps of the diffuse
// phase use the exact initial recursions for r⁰, r¹, N⁰, N¹ and N².
func Smooth(r *Run) ([]SmoothedState, error) {
	if len(r.Steps) != r.N {
		return nil, ErrNoHistory
	}
	s := newSmoother(r)
	for t := r.N - 1; t >= 0; t-- {
		st := &r.Steps[t]
		switch {
		case st.Phase == PhaseDiffuse:
			s.diffuseStep(t, st)
		case st.Missing:
			s.missingStep(t, st)
		case st.Phase == PhaseSteadyState:
			s.steadyStep(t, st)
		default:
			s.ordinaryStep(t, st)
		}
		if err := s.check(t); err != nil {
			return nil, err
		}
	}
	return s.out, nil
}

type smoother struct {
	model ssm.Model
	opts  Options
	d     int
	out   []SmoothedState

	r, r1  *mat.VecDense
	n      *mat.SymDense
	n1     *mat.Dense
	n2     *mat.SymDense
	z, tmp *mat.VecDense
	l      *mat.Dense
	w1, w2 *mat.Dense

	// steady-state segment
	steadyP *mat.SymDense
	steadyL *mat.Dense
	prevN   *mat.SymDense
	nConv   int
	frozen  bool
	steadyV *mat.SymDense
}

func newSmoother(r *Run) *smoother {
	d := r.model.Dim()
	return &smoother{
		model: r.model,
		opts:  r.opts,
		d:     d,
		out:   make([]SmoothedState, r.N),
		r:     mat.NewVecDense(d, nil),
		r1:    mat.NewVecDense(d, nil),
		n:     mat.NewSymDense(d, nil),
		n1:    mat.NewDense(d, d, nil),
		n2:    mat.NewSymDense(d, nil),
		z:     mat.NewVecDense(d, nil),
		tmp:   mat.NewVecDense(d, nil),
		l:     mat.NewDense(d, d, nil),
		w1:    mat.NewDense(d, d, nil),
		w2:    mat.NewDense(d, d, nil),
		prevN: mat.NewSymDense(d, nil),
	}
}

func (s *smoother) check(t int) error {
	if !s.opts.CheckPSD {
		return nil
	}
	v := s.out[t].Covariance
	if linalg.IsPSD(v, s.opts.PSDTolerance) {
		return nil
	}
	min, _, _ := linalg.MinEigenvalue(v)
	return newError(NonPositiveSemiDefiniteCovariance, t, "smoothed covariance eigenvalue %g", min)
}

// gainLoss stores T - K Z' into dst.
func gainLoss(dst *mat.Dense, tr mat.Matrix, k, z mat.Vector) {
	dst.Outer(-1, k, z)
	dst.Add(dst, tr)
}

// backwardR applies r ← Z (v/F - K'r) + T'r.
func (s *smoother) backwardR(tr mat.Matrix, st *Step) {
	c := st.V/st.F - mat.Dot(st.K, s.r)
	s.tmp.MulVec(tr.T(), s.r)
	s.r.AddScaledVec(s.tmp, c, s.z)
}

// backwardN applies N ← Z Z'/F + L' N L.
func (s *smoother) backwardN(l *mat.Dense, f float64) {
	s.w1.Mul(s.n, l)
	s.w2.Mul(l.T(), s.w1)
	linalg.Symmetrize(s.n, s.w2)
	linalg.SymRankUpdate(s.n, 1/f, s.z)
}

// state stores â = a + P r and V = P - P N P for time t.
func (s *smoother) state(t int, st *Step) {
	mean := mat.NewVecDense(s.d, nil)
	mean.MulVec(st.P, s.r)
	mean.AddVec(mean, st.A)
	s.out[t] = SmoothedState{Mean: mean, Covariance: s.covariance(st.P)}
}

func (s *smoother) covariance(p *mat.SymDense) *mat.SymDense {
	s.w1.Mul(p, s.n)
	s.w2.Mul(s.w1, p)
	v := mat.NewSymDense(s.d, nil)
	for i := 0; i < s.d; i++ {
		for j := i; j < s.d; j++ {
			v.SetSym(i, j, p.At(i, j)-0.5*(s.w2.At(i, j)+s.w2.At(j, i)))
		}
	}
	return v
}

func (s *smoother) resetSteady() {
	s.steadyP = nil
	s.steadyL = nil
	s.nConv = 0
	s.frozen = false
	s.steadyV = nil
}

func (s *smoother) ordinaryStep(t int, st *Step) {
	s.resetSteady()
	tr := s.model.Transition(t)
	s.z.CopyVec(s.model.Loading(t))

	s.backwardR(tr, st)
	gainLoss(s.l, tr, st.K, s.z)
	s.backwardN(s.l, st.F)
	s.state(t, st)
}

func (s *smoother) missingStep(t int, st *Step) {
	s.resetSteady()
	tr := s.model.Transition(t)

	// r ← T'r, N ← T'N T
	s.tmp.MulVec(tr.T(), s.r)
	s.r.CopyVec(s.tmp)
	linalg.Sandwich(s.n, tr.T(), s.n, s.w1, s.w2)
	s.state(t, st)
}

// steadyStep reuses L̄ = T - K̄ Z for the whole frozen segment. Once N has
// converged as well, N and V stay fixed and only r is propagated.
func (s *smoother) steadyStep(t int, st *Step) {
	tr := s.model.Transition(t)
	s.z.CopyVec(s.model.Loading(t))
	if st.P != s.steadyP {
		s.resetSteady()
		s.steadyP = st.P
		s.steadyL = mat.NewDense(s.d, s.d, nil)
		gainLoss(s.steadyL, tr, st.K, s.z)
	}

	s.backwardR(tr, st)
	if !s.frozen {
		s.prevN.CopySym(s.n)
		s.backwardN(s.steadyL, st.F)
		tol := s.opts.SteadyStateTolerance
		if linalg.MaxAbsDiffMatrix(s.n, s.prevN) <= tol*math.Max(1, maxAbsSym(s.n)) {
			s.nConv++
		} else {
			s.nConv = 0
		}
		s.frozen = s.nConv >= s.opts.SteadyStateSteps
	}

	mean := mat.NewVecDense(s.d, nil)
	mean.MulVec(st.P, s.r)
	mean.AddVec(mean, st.A)
	var cov *mat.SymDense
	switch {
	case s.frozen && s.steadyV != nil:
		cov = s.steadyV
	case s.frozen:
		s.steadyV = s.covariance(st.P)
		cov = s.steadyV
	default:
		cov = s.covariance(st.P)
	}
	s.out[t] = SmoothedState{Mean: mean, Covariance: cov}
}

// diffuseStep implements the exact initial smoothing recursions
//
//	r⁰ ← L⁰'r⁰
//	r¹ ← Z v/F∞ + L⁰'r¹ + L¹'r⁰
//	N⁰ ← L⁰'N⁰L⁰
//	N¹ ← Z Z'/F∞ + L⁰'N¹L⁰ + L¹'N⁰L⁰
//	N² ← Z Z'F⁽²⁾ + L⁰'N²L⁰ + L⁰'N¹L¹ + (L⁰'N¹L¹)' + L¹'N⁰L¹
//
// with L⁰ = T - K⁰Z, L¹ = -K¹Z and F⁽²⁾ = -F*/F∞² for informative steps.
// Uninformative steps use the ordinary recursion for r⁰ and N⁰ and carry
// r¹, N¹ and N² through T.
func (s *smoother) diffuseStep(t int, st *Step) {
	s.resetSteady()
	tr := s.model.Transition(t)
	s.z.CopyVec(s.model.Loading(t))

	var r0, r1 mat.VecDense
	var n0, n1, n2 *mat.Dense
	switch {
	case st.Missing:
		r0.MulVec(tr.T(), s.r)
		r1.MulVec(tr.T(), s.r1)
		n0 = quad(tr, s.n, tr)
		n1 = quad(tr, s.n1, tr)
		n2 = quad(tr, s.n2, tr)

	case !st.Informative:
		l := mat.NewDense(s.d, s.d, nil)
		gainLoss(l, tr, st.K, s.z)
		c := st.V/st.F - mat.Dot(st.K, s.r)
		r0.MulVec(tr.T(), s.r)
		r0.AddScaledVec(&r0, c, s.z)
		r1.MulVec(tr.T(), s.r1)
		n0 = quad(l, s.n, l)
		addOuter(n0, 1/st.F, s.z)
		n1 = quad(tr, s.n1, l)
		n2 = quad(tr, s.n2, tr)

	default:
		l0 := mat.NewDense(s.d, s.d, nil)
		gainLoss(l0, tr, st.K, s.z)
		l1 := mat.NewDense(s.d, s.d, nil)
		l1.Outer(-1, st.K1, s.z)
		f1 := 1 / st.FInf
		f2 := -st.F / (st.FInf * st.FInf)

		r0.MulVec(l0.T(), s.r)
		r1.MulVec(l0.T(), s.r1)
		s.tmp.MulVec(l1.T(), s.r)
		r1.AddVec(&r1, s.tmp)
		r1.AddScaledVec(&r1, st.V*f1, s.z)

		n0 = quad(l0, s.n, l0)
		n1 = quad(l0, s.n1, l0)
		n1.Add(n1, quad(l1, s.n, l0))
		addOuter(n1, f1, s.z)
		x := quad(l0, s.n1, l1)
		n2 = quad(l0, s.n2, l0)
		n2.Add(n2, x)
		n2.Add(n2, x.T())
		n2.Add(n2, quad(l1, s.n, l1))
		addOuter(n2, f2, s.z)
	}
	s.r.CopyVec(&r0)
	s.r1.CopyVec(&r1)
	linalg.Symmetrize(s.n, n0)
	s.n1.Copy(n1)
	linalg.Symmetrize(s.n2, n2)

	// â = a + P* r⁰ + P∞ r¹
	mean := mat.NewVecDense(s.d, nil)
	mean.MulVec(st.P, s.r)
	mean.AddVec(mean, st.A)
	s.tmp.MulVec(st.PInf, s.r1)
	mean.AddVec(mean, s.tmp)

	// V = P* - P* N⁰ P* - P∞ N¹ P* - (P∞ N¹ P*)' - P∞ N² P∞
	a := quad(st.P, s.n, st.P)
	b := quad(st.PInf, s.n1, st.P)
	c := quad(st.PInf, s.n2, st.PInf)
	cov := mat.NewSymDense(s.d, nil)
	for i := 0; i < s.d; i++ {
		for j := i; j < s.d; j++ {
			v := st.P.At(i, j) -
				0.5*(a.At(i, j)+a.At(j, i)) -
				b.At(i, j) - b.At(j, i) -
				0.5*(c.At(i, j)+c.At(j, i))
			cov.SetSym(i, j, v)
		}
	}
	s.out[t] = SmoothedState{Mean: mean, Covariance: cov}
}

// quad returns a' n b.
func quad(a, n, b mat.Matrix) *mat.Dense {
	var w, out mat.Dense
	w.Mul(n, b)
	out.Mul(a.T(), &w)
	return &out
}

// addOuter adds alpha x x' to dst.
func addOuter(dst *mat.Dense, alpha float64, x mat.Vector) {
	var o mat.Dense
	o.Outer(alpha, x, x)
	dst.Add(dst, &o)
}

func maxAbsSym(a *mat.SymDense) float64 {
	m := 0.0
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			m = math.Max(m, math.Abs(a.At(i, j)))
		}
	}
	return m
}
