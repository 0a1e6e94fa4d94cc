package linalg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSymRankUpdate(t *testing.T) {
	p := mat.NewSymDense(2, []float64{4, 1, 1, 3})
	m := mat.NewVecDense(2, []float64{2, 1})

	SymRankUpdate(p, -0.5, m)

	assert.InDelta(t, 2.0, p.At(0, 0), 1e-15)
	assert.InDelta(t, 0.0, p.At(0, 1), 1e-15)
	assert.InDelta(t, 0.0, p.At(1, 0), 1e-15)
	assert.InDelta(t, 2.5, p.At(1, 1), 1e-15)
}

func TestSymRankTwoUpdate(t *testing.T) {
	p := mat.NewSymDense(2, nil)
	x := mat.NewVecDense(2, []float64{1, 0})
	y := mat.NewVecDense(2, []float64{0, 1})

	SymRankTwoUpdate(p, 2, x, y)

	assert.Equal(t, 0.0, p.At(0, 0))
	assert.Equal(t, 2.0, p.At(0, 1))
	assert.Equal(t, 2.0, p.At(1, 0))
}

func TestAddScaledAndOuter(t *testing.T) {
	dst := mat.NewVecDense(3, []float64{1, 1, 1})
	AddScaled(dst, 2, mat.NewVecDense(3, []float64{1, 2, 3}))
	assert.Equal(t, []float64{3, 5, 7}, dst.RawVector().Data)

	o := Outer(1, mat.NewVecDense(2, []float64{1, 2}), mat.NewVecDense(2, []float64{3, 4}))
	assert.Equal(t, 8.0, o.At(1, 1))
	assert.Equal(t, 4.0, o.At(0, 1))

	s := SymOuter(2, mat.NewVecDense(2, []float64{1, 3}))
	assert.Equal(t, 6.0, s.At(1, 0))
	assert.Equal(t, 18.0, s.At(1, 1))
}

func TestSandwich(t *testing.T) {
	tr := mat.NewDense(2, 2, []float64{1, 1, 0, 1})
	p := mat.NewSymDense(2, []float64{1, 0, 0, 2})
	w1 := mat.NewDense(2, 2, nil)
	w2 := mat.NewDense(2, 2, nil)

	Sandwich(p, tr, p, w1, w2)

	// [[1 1][0 1]] diag(1,2) [[1 0][1 1]] = [[3 2][2 2]]
	want := mat.NewSymDense(2, []float64{3, 2, 2, 2})
	assert.True(t, mat.EqualApprox(p, want, 1e-14))
}

func TestCholeskySolve(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		4, 2, 0,
		2, 5, 1,
		0, 1, 3,
	})
	x := mat.NewVecDense(3, []float64{1, -2, 0.5})
	var b mat.VecDense
	b.MulVec(a, x)

	got, ch, err := CholeskySolve(a, &b)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Less(t, MaxAbsDiff(got, x), 1e-12)

	_, _, err = CholeskySolve(mat.NewSymDense(2, []float64{1, 1, 1, 1}), mat.NewVecDense(2, nil))
	assert.ErrorIs(t, err, ErrSingular)
}

func TestSqrtFactor(t *testing.T) {
	tests := []struct {
		name string
		p    *mat.SymDense
	}{
		{"definite", mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})},
		{"singular", mat.NewSymDense(2, []float64{1, 1, 1, 1})},
		{"zero", mat.NewSymDense(3, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := SqrtFactor(tt.p, 1e-10)
			require.NoError(t, err)

			var ss mat.Dense
			ss.Mul(s, s.T())
			assert.True(t, mat.EqualApprox(&ss, tt.p, 1e-12))
		})
	}

	_, err := SqrtFactor(mat.NewSymDense(2, []float64{1, 0, 0, -1}), 1e-10)
	assert.ErrorIs(t, err, ErrNotPSD)
}

func TestPSDAndSymmetry(t *testing.T) {
	assert.True(t, IsPSD(mat.NewSymDense(2, []float64{1, 1, 1, 1}), 1e-12))
	assert.False(t, IsPSD(mat.NewSymDense(2, []float64{1, 2, 2, 1}), 1e-12))

	min, scale, ok := MinEigenvalue(mat.NewSymDense(2, []float64{1, 2, 2, 1}))
	require.True(t, ok)
	assert.InDelta(t, -1, min, 1e-12)
	assert.InDelta(t, 3, scale, 1e-12)

	assert.True(t, IsSymmetric(mat.NewDense(2, 2, []float64{1, 2, 2 + 1e-13, 1}), 1e-12))
	assert.False(t, IsSymmetric(mat.NewDense(2, 2, []float64{1, 2, 3, 1}), 1e-12))
	assert.False(t, IsSymmetric(mat.NewDense(2, 3, nil), 1e-12))

	dst := mat.NewSymDense(2, nil)
	Symmetrize(dst, mat.NewDense(2, 2, []float64{1, 2, 4, 1}))
	assert.Equal(t, 3.0, dst.At(0, 1))
}

func TestTriangularizeRows(t *testing.T) {
	pre := mat.NewDense(2, 4, []float64{
		1, 2, 0, 1,
		3, -1, 2, 0.5,
	})
	l := TriangularizeRows(pre)

	assert.Equal(t, 0.0, l.At(0, 1))

	var want, got mat.Dense
	want.Mul(pre, pre.T())
	got.Mul(l, l.T())
	assert.True(t, mat.EqualApprox(&got, &want, 1e-12))
}

func TestSolveLowerTriangular(t *testing.T) {
	l := mat.NewTriDense(2, mat.Lower, []float64{2, 0, 1, 4})
	b := mat.NewVecDense(2, []float64{2, 9})

	SolveLowerTriangular(l, b)
	assert.InDelta(t, 1.0, b.AtVec(0), 1e-15)
	assert.InDelta(t, 2.0, b.AtVec(1), 1e-15)

	SolveLowerTriangularTransposed(l, b)
	// [[2 1][0 4]] x = [1 2]
	assert.InDelta(t, 0.25, b.AtVec(0), 1e-15)
	assert.InDelta(t, 0.5, b.AtVec(1), 1e-15)
}

func TestMaxAbs(t *testing.T) {
	a := mat.NewVecDense(3, []float64{1, -4, 2})
	b := mat.NewVecDense(3, []float64{1, 1, 2})
	assert.Equal(t, 4.0, MaxAbs(a))
	assert.Equal(t, 5.0, MaxAbsDiff(a, b))
	assert.Equal(t, 0.0, MaxAbsDiffMatrix(mat.NewDense(1, 1, []float64{math.Pi}), mat.NewDense(1, 1, []float64{math.Pi})))
}
