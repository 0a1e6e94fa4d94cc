package kalman

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/ssm"
)

func ar1(phi, q, h float64) *ssm.Matrices {
	m, err := ssm.NewMatrices(
		mat.NewDense(1, 1, []float64{phi}),
		mat.NewVecDense(1, []float64{1}),
		h,
		nil,
		mat.NewSymDense(1, []float64{q}),
		ssm.Initialization{Stationary: mat.NewSymDense(1, []float64{q / (1 - phi*phi)})},
	)
	if err != nil {
		panic(err)
	}
	return m
}

func localLevel(q, h float64) *ssm.Matrices {
	m, err := ssm.NewMatrices(
		mat.NewDense(1, 1, []float64{1}),
		mat.NewVecDense(1, []float64{1}),
		h,
		nil,
		mat.NewSymDense(1, []float64{q}),
		ssm.Initialization{
			Stationary: mat.NewSymDense(1, nil),
			Diffuse:    mat.NewDense(1, 1, []float64{1}),
		},
	)
	if err != nil {
		panic(err)
	}
	return m
}

func localLinearTrend(qLevel, qSlope, h float64, init ssm.Initialization) *ssm.Matrices {
	m, err := ssm.NewMatrices(
		mat.NewDense(2, 2, []float64{1, 1, 0, 1}),
		mat.NewVecDense(2, []float64{1, 0}),
		h,
		nil,
		mat.NewSymDense(2, []float64{qLevel, 0, 0, qSlope}),
		init,
	)
	if err != nil {
		panic(err)
	}
	return m
}

// randomModel returns a stable model of dimension d with a rank-deficient
// state noise and its stationary initialization.
func randomModel(rng *rand.Rand, d int) *ssm.Matrices {
	t := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			t.Set(i, j, rng.NormFloat64())
		}
	}
	t.Scale(0.8/ssm.SpectralRadius(t), t)

	z := mat.NewVecDense(d, nil)
	for i := 0; i < d; i++ {
		z.SetVec(i, rng.NormFloat64())
	}
	r := min(2, d)
	sel := mat.NewDense(d, r, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < r; j++ {
			sel.Set(i, j, rng.NormFloat64())
		}
	}
	v := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetSym(i, i, 0.5+rng.Float64())
	}

	m, err := ssm.NewMatrices(t, z, 0.5+rng.Float64(), sel, v, ssm.Initialization{})
	if err != nil {
		panic(err)
	}
	p0, err := ssm.StationaryCovariance(t, ssm.StateCovariance(m, 0))
	if err != nil {
		panic(err)
	}
	m.Init.Stationary = p0
	return m
}

// simulate draws n observations from m starting at the zero state. The
// indices in missing are marked missing.
func simulate(rng *rand.Rand, m *ssm.Matrices, n int, missing ...int) Masked {
	d := m.Dim()
	_, r := m.V.Dims()
	x := mat.NewVecDense(d, nil)
	next := mat.NewVecDense(d, nil)
	eta := mat.NewVecDense(r, nil)
	noise := mat.NewVecDense(d, nil)

	out := Masked{Values: make([]float64, n), Missing: make([]bool, n)}
	for t := 0; t < n; t++ {
		out.Values[t] = mat.Dot(m.Z, x) + rng.NormFloat64()*math.Sqrt(m.H)
		for i := 0; i < r; i++ {
			eta.SetVec(i, rng.NormFloat64()*math.Sqrt(m.V.At(i, i)))
		}
		if m.R == nil {
			noise.CopyVec(eta)
		} else {
			noise.MulVec(m.R, eta)
		}
		next.MulVec(m.T, x)
		x.AddVec(next, noise)
	}
	for _, i := range missing {
		out.Missing[i] = true
	}
	return out
}

// unobservable has Z = 0 and H = 0, so every innovation variance is zero.
func unobservable() *ssm.Matrices {
	m, err := ssm.NewMatrices(
		mat.NewDense(1, 1, []float64{0.5}),
		mat.NewVecDense(1, []float64{0}),
		0,
		nil,
		mat.NewSymDense(1, []float64{1}),
		ssm.Initialization{Stationary: mat.NewSymDense(1, []float64{1})},
	)
	if err != nil {
		panic(err)
	}
	return m
}
