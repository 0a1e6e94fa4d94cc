package kalman

import (
	"gonum.org/v1/gonum/mat"
)

// workspace is the mutable state of one filtering run. It is owned by the
// call that created it and never shared.
type workspace struct {
	d int

	a *mat.VecDense // predicted state
	p *mat.SymDense // predicted covariance, P* while diffuse
	b *mat.Dense    // diffuse basis, nil once collapsed
	s *mat.Dense    // covariance factor in square-root mode

	m, mInf, k, k1 *mat.VecDense
	tmp, zs        *mat.VecDense
	w1, w2         *mat.Dense
}

func newWorkspace(d int) *workspace {
	return &workspace{
		d:    d,
		a:    mat.NewVecDense(d, nil),
		p:    mat.NewSymDense(d, nil),
		m:    mat.NewVecDense(d, nil),
		mInf: mat.NewVecDense(d, nil),
		k:    mat.NewVecDense(d, nil),
		k1:   mat.NewVecDense(d, nil),
		tmp:  mat.NewVecDense(d, nil),
		zs:   mat.NewVecDense(d, nil),
		w1:   mat.NewDense(d, d, nil),
		w2:   mat.NewDense(d, d, nil),
	}
}

// arena hands out slices of large blocks so the step history costs a few
// allocations per run instead of several per step.
type arena struct {
	buf   []float64
	block int
}

func newArena(n, d int) arena {
	steps := n
	if steps > 256 {
		steps = 256
	}
	return arena{block: max(1, steps) * (4*d + d*d)}
}

func (ar *arena) take(n int) []float64 {
	if len(ar.buf) < n {
		ar.buf = make([]float64, max(n, ar.block))
	}
	s := ar.buf[:n:n]
	ar.buf = ar.buf[n:]
	return s
}

func (ar *arena) vec(src *mat.VecDense) *mat.VecDense {
	n := src.Len()
	v := mat.NewVecDense(n, ar.take(n))
	v.CopyVec(src)
	return v
}

func (ar *arena) sym(src *mat.SymDense) *mat.SymDense {
	n := src.SymmetricDim()
	s := mat.NewSymDense(n, ar.take(n*n))
	s.CopySym(src)
	return s
}
