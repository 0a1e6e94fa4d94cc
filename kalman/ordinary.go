package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/linalg"
)

func (f *filter) ordinaryStep(t int, y float64, observed bool) error {
	ws := f.ws
	st := f.begin(PhaseOrdinary)
	tr := f.model.Transition(t)
	z := f.model.Loading(t)

	// m = P Z', f = Z P Z' + H
	ws.m.MulVec(ws.p, z)
	fv := mat.Dot(z, ws.m) + f.model.ObservationVariance(t)
	if !observed {
		st.Missing = true
		st.F = fv
		f.conv.reset()
		if err := f.predict(t, tr); err != nil {
			return err
		}
		f.commit(st)
		return nil
	}
	if !(fv > f.opts.InnovationTolerance) {
		return newError(SingularInnovation, t, "innovation variance %g", fv)
	}

	v := y - mat.Dot(z, ws.a)
	f.lik.add(v, fv)

	// a|t = a + m v/f, P|t = P - m m'/f
	linalg.AddScaled(ws.a, v/fv, ws.m)
	linalg.SymRankUpdate(ws.p, -1/fv, ws.m)
	ws.k.MulVec(tr, ws.m)
	ws.k.ScaleVec(1/fv, ws.k)

	st.V, st.F = v, fv
	st.M, st.K = f.keep(ws.m), f.keep(ws.k)
	if err := f.predict(t, tr); err != nil {
		return err
	}
	f.commit(st)

	f.detectSteadyState(t, fv)
	return nil
}

// factorize replaces the covariance of the workspace by its square-root
// factor.
func (f *filter) factorize(t int) error {
	s, err := linalg.SqrtFactor(f.ws.p, f.opts.PSDTolerance)
	if err != nil {
		return &Error{Kind: NonPositiveSemiDefiniteCovariance, Step: t, Err: err}
	}
	f.ws.s = s
	return nil
}

// noiseFactor returns a matrix G with G G' = R V R'.
func (f *filter) noiseFactor(t int) (*mat.Dense, error) {
	if f.noise != nil {
		return f.noise, nil
	}
	sel, cov := f.model.Noise(t)
	sv, err := linalg.SqrtFactor(cov, f.opts.PSDTolerance)
	if err != nil {
		return nil, &Error{Kind: NonPositiveSemiDefiniteCovariance, Step: t, Detail: "state noise", Err: err}
	}
	g := sv
	if sel != nil {
		g = &mat.Dense{}
		g.Mul(sel, sv)
	}
	if f.model.TimeInvariant() {
		f.noise = g
	}
	return g, nil
}

// squareRootStep is ordinaryStep with P carried as S S'. The measurement
// update triangularizes
//
//	[ √H  Z S ]
//	[ 0    S  ]
//
// and the time update triangularizes [ T S|t  R √V ].
func (f *filter) squareRootStep(t int, y float64, observed bool) error {
	ws := f.ws
	d := ws.d
	st := f.begin(PhaseOrdinary)
	tr := f.model.Transition(t)
	z := f.model.Loading(t)
	h := f.model.ObservationVariance(t)

	ws.zs.MulVec(ws.s.T(), z)
	if !observed {
		st.Missing = true
		st.F = mat.Dot(ws.zs, ws.zs) + h
		if err := f.squareRootPredict(t, tr, ws.s); err != nil {
			return err
		}
		f.commit(st)
		return nil
	}

	pre := mat.NewDense(d+1, d+1, nil)
	pre.Set(0, 0, math.Sqrt(h))
	for j := 0; j < d; j++ {
		pre.Set(0, j+1, ws.zs.AtVec(j))
	}
	pre.Slice(1, d+1, 1, d+1).(*mat.Dense).Copy(ws.s)
	post := linalg.TriangularizeRows(pre)

	l00 := post.At(0, 0)
	fv := l00 * l00
	if !(fv > f.opts.InnovationTolerance) {
		return newError(SingularInnovation, t, "innovation variance %g", fv)
	}
	for i := 0; i < d; i++ {
		ws.m.SetVec(i, post.At(i+1, 0)*l00)
	}

	v := y - mat.Dot(z, ws.a)
	f.lik.add(v, fv)
	linalg.AddScaled(ws.a, v/fv, ws.m)
	ws.k.MulVec(tr, ws.m)
	ws.k.ScaleVec(1/fv, ws.k)

	st.V, st.F = v, fv
	st.M, st.K = f.keep(ws.m), f.keep(ws.k)
	if err := f.squareRootPredict(t, tr, post.Slice(1, d+1, 1, d+1)); err != nil {
		return err
	}
	f.commit(st)
	return nil
}

func (f *filter) squareRootPredict(t int, tr, s mat.Matrix) error {
	ws := f.ws
	d := ws.d
	g, err := f.noiseFactor(t)
	if err != nil {
		return err
	}
	_, r := g.Dims()

	pre := mat.NewDense(d, d+r, nil)
	pre.Slice(0, d, 0, d).(*mat.Dense).Mul(tr, s)
	pre.Slice(0, d, d, d+r).(*mat.Dense).Copy(g)
	ws.s = linalg.TriangularizeRows(pre)

	ws.tmp.MulVec(tr, ws.a)
	ws.a.CopyVec(ws.tmp)
	return nil
}
