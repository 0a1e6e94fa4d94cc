package kalman

import (
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/linalg"
)

// diffuseStep is the exact initial Kalman filter step. P∞ = B B' is carried
// by its basis B, so every informative observation removes exactly one
// column and rank(P∞) can only decrease.
func (f *filter) diffuseStep(t int, y float64, observed bool) error {
	ws := f.ws
	st := f.begin(PhaseDiffuse)
	if f.opts.StoreHistory {
		pinf := mat.NewSymDense(ws.d, f.mem.take(ws.d*ws.d))
		pinf.SymOuterK(1, ws.b)
		st.PInf = pinf
	}
	tr := f.model.Transition(t)
	z := f.model.Loading(t)

	if !observed {
		st.Missing = true
		if err := f.diffusePredict(t, tr); err != nil {
			return err
		}
		f.commit(st)
		return nil
	}

	_, k := ws.b.Dims()
	// w = B' Z', F∞ = w'w
	w := mat.NewVecDense(k, nil)
	w.MulVec(ws.b.T(), z)
	finf := mat.Dot(w, w)
	// M* = P* Z', F* = Z P* Z' + H
	ws.m.MulVec(ws.p, z)
	fstar := mat.Dot(z, ws.m) + f.model.ObservationVariance(t)
	v := y - mat.Dot(z, ws.a)
	st.V, st.F, st.FInf = v, fstar, finf

	// |Z|² λmax(P∞)
	bnorm := mat.Norm(ws.b, 2)
	scale := mat.Dot(z, z) * bnorm * bnorm
	if finf > f.opts.DiffuseTolerance*scale {
		ws.mInf.MulVec(ws.b, w)
		f.lik.addDiffuse(finf)

		// a|t  = a + M∞ v/F∞
		// P*|t = P* + (F*/F∞²) M∞ M∞' - (M∞ M*' + M* M∞')/F∞
		linalg.AddScaled(ws.a, v/finf, ws.mInf)
		linalg.SymRankTwoUpdate(ws.p, -1/finf, ws.mInf, ws.m)
		linalg.SymRankUpdate(ws.p, fstar/(finf*finf), ws.mInf)

		// K0 = T M∞/F∞, K1 = T (M*/F∞ - M∞ F*/F∞²)
		ws.k.MulVec(tr, ws.mInf)
		ws.k.ScaleVec(1/finf, ws.k)
		ws.tmp.ScaleVec(1/finf, ws.m)
		linalg.AddScaled(ws.tmp, -fstar/(finf*finf), ws.mInf)
		ws.k1.MulVec(tr, ws.tmp)

		st.Informative = true
		st.M, st.MInf = f.keep(ws.m), f.keep(ws.mInf)
		st.K, st.K1 = f.keep(ws.k), f.keep(ws.k1)
		ws.b = collapse(ws.b, w)
	} else {
		if !(fstar > f.opts.InnovationTolerance) {
			return newError(SingularInnovation, t, "innovation variance %g with F∞ %g", fstar, finf)
		}
		f.lik.add(v, fstar)
		linalg.AddScaled(ws.a, v/fstar, ws.m)
		linalg.SymRankUpdate(ws.p, -1/fstar, ws.m)
		ws.k.MulVec(tr, ws.m)
		ws.k.ScaleVec(1/fstar, ws.k)
		st.M, st.K = f.keep(ws.m), f.keep(ws.k)
	}

	if err := f.diffusePredict(t, tr); err != nil {
		return err
	}
	f.commit(st)

	if ws.b == nil {
		f.log.WithFields(log.Fields{
			"diffuse": f.lik.DiffuseCount,
		}).Debug("kalman: diffuse part identified")
		f.setPhase(PhaseOrdinary, t+1)
		if f.opts.SquareRoot {
			return f.factorize(t + 1)
		}
	}
	return nil
}

func (f *filter) diffusePredict(t int, tr mat.Matrix) error {
	if err := f.predict(t, tr); err != nil {
		return err
	}
	if f.ws.b != nil {
		var tb mat.Dense
		tb.Mul(tr, f.ws.b)
		f.ws.b = &tb
	}
	return nil
}

// collapse removes from b the single direction seen by the loading, where
// w = b' z. A Householder reflection H maps w onto the first axis; the
// columns of b H other than the first are orthogonal to z and span the
// remaining diffuse subspace. It returns nil when b had one column.
func collapse(b *mat.Dense, w *mat.VecDense) *mat.Dense {
	d, k := b.Dims()
	if k == 1 {
		return nil
	}
	norm := mat.Norm(w, 2)
	alpha := -norm
	if w.AtVec(0) < 0 {
		alpha = norm
	}
	u := mat.VecDenseCopyOf(w)
	u.SetVec(0, u.AtVec(0)-alpha)
	beta := mat.Dot(u, u)

	out := mat.NewDense(d, k-1, nil)
	for i := 0; i < d; i++ {
		row := b.RawRowView(i)
		c := 0.0
		for j, x := range row {
			c += x * u.AtVec(j)
		}
		c *= 2 / beta
		for j := 1; j < k; j++ {
			out.Set(i, j-1, row[j]-c*u.AtVec(j))
		}
	}
	return out
}
