package linalg

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// ErrNotPSD is returned when a matrix has a negative eigenvalue beyond the
// allowed tolerance.
var ErrNotPSD = errors.New("linalg: matrix is not positive semi-definite")

// ErrSingular is returned by the solvers when the system matrix is singular.
var ErrSingular = errors.New("linalg: matrix is singular")

// AddScaled computes dst += alpha * x.
func AddScaled(dst *mat.VecDense, alpha float64, x *mat.VecDense) {
	blas64.Axpy(alpha, x.RawVector(), dst.RawVector())
}

// Outer returns alpha * x y'.
func Outer(alpha float64, x, y mat.Vector) *mat.Dense {
	var o mat.Dense
	o.Outer(alpha, x, y)
	return &o
}

// SymOuter returns alpha * x x' as a symmetric matrix.
func SymOuter(alpha float64, x *mat.VecDense) *mat.SymDense {
	n := x.Len()
	s := mat.NewSymDense(n, nil)
	SymRankUpdate(s, alpha, x)
	return s
}

// SymRankUpdate computes a += alpha * x x' in place. Only the stored upper
// triangle is touched.
func SymRankUpdate(a *mat.SymDense, alpha float64, x *mat.VecDense) {
	blas64.Syr(alpha, x.RawVector(), a.RawSymmetric())
}

// SymRankTwoUpdate computes a += alpha * (x y' + y x') in place.
func SymRankTwoUpdate(a *mat.SymDense, alpha float64, x, y *mat.VecDense) {
	blas64.Syr2(alpha, x.RawVector(), y.RawVector(), a.RawSymmetric())
}

// Symmetrize stores (a + a')/2 into dst. a must be square with the same
// dimension as dst; a may be dst itself.
func Symmetrize(dst *mat.SymDense, a mat.Matrix) {
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
}

// Sandwich stores t p t' into dst and symmetrizes the result. w1 and w2 are
// d×d work matrices; dst may alias p.
func Sandwich(dst *mat.SymDense, t, p mat.Matrix, w1, w2 *mat.Dense) {
	// w1 = T P
	w1.Mul(t, p)
	// w2 = T P T'
	w2.Mul(w1, t.T())
	Symmetrize(dst, w2)
}

// SolveLowerTriangular solves l x = b in place: on return b holds x.
func SolveLowerTriangular(l *mat.TriDense, b *mat.VecDense) {
	blas64.Trsv(blas.NoTrans, l.RawTriangular(), b.RawVector())
}

// SolveLowerTriangularTransposed solves l' x = b in place.
func SolveLowerTriangularTransposed(l *mat.TriDense, b *mat.VecDense) {
	blas64.Trsv(blas.Trans, l.RawTriangular(), b.RawVector())
}

// CholeskySolve solves a x = b for a symmetric positive definite a using a
// Cholesky factorization followed by two triangular solves. The factorization
// is returned so callers can reuse it (for instance to get the inverse).
func CholeskySolve(a mat.Symmetric, b mat.Vector) (*mat.VecDense, *mat.Cholesky, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(a); !ok {
		return nil, nil, ErrSingular
	}
	var l mat.TriDense
	ch.LTo(&l)

	x := mat.VecDenseCopyOf(b)
	// L z = b
	SolveLowerTriangular(&l, x)
	// L' x = z
	SolveLowerTriangularTransposed(&l, x)
	return x, &ch, nil
}

// eigenSym returns the eigenvalues (ascending) and eigenvectors of a.
func eigenSym(a mat.Symmetric, vectors bool) ([]float64, *mat.Dense, bool) {
	var es mat.EigenSym
	if ok := es.Factorize(a, vectors); !ok {
		return nil, nil, false
	}
	vals := es.Values(nil)
	if !vectors {
		return vals, nil, true
	}
	var ev mat.Dense
	es.VectorsTo(&ev)
	return vals, &ev, true
}

// MinEigenvalue returns the smallest eigenvalue of a and the largest
// eigenvalue in absolute value. ok is false when the decomposition fails.
func MinEigenvalue(a mat.Symmetric) (min, scale float64, ok bool) {
	vals, _, ok := eigenSym(a, false)
	if !ok || len(vals) == 0 {
		return 0, 0, ok
	}
	min = vals[0]
	for _, v := range vals {
		scale = math.Max(scale, math.Abs(v))
	}
	return min, scale, true
}

// IsPSD reports whether a is positive semi-definite, allowing negative
// eigenvalues down to -tol*max(1, |λ|max).
func IsPSD(a mat.Symmetric, tol float64) bool {
	min, scale, ok := MinEigenvalue(a)
	if !ok {
		return false
	}
	return min >= -tol*math.Max(1, scale)
}

// IsSymmetric reports whether |a(i,j) - a(j,i)| <= tol for all i, j.
func IsSymmetric(a mat.Matrix, tol float64) bool {
	r, c := a.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(a.At(i, j)-a.At(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

// SqrtFactor returns a d×d matrix S with S S' = p. p may be singular:
// eigenvalues in [-tol*max(1, |λ|max), 0) are clipped to zero, anything more
// negative yields ErrNotPSD.
func SqrtFactor(p mat.Symmetric, tol float64) (*mat.Dense, error) {
	vals, vecs, ok := eigenSym(p, true)
	if !ok {
		return nil, ErrNotPSD
	}
	scale := 0.0
	for _, v := range vals {
		scale = math.Max(scale, math.Abs(v))
	}
	n := len(vals)
	s := mat.NewDense(n, n, nil)
	for j, v := range vals {
		if v < -tol*math.Max(1, scale) {
			return nil, ErrNotPSD
		}
		if v <= 0 {
			continue
		}
		sv := math.Sqrt(v)
		for i := 0; i < n; i++ {
			s.Set(i, j, vecs.At(i, j)*sv)
		}
	}
	return s, nil
}

// TriangularizeRows returns the m×m lower triangular L with L L' = pre pre'
// for an m×n pre-array with n >= m. The orthogonal transformation is the
// Householder QR of pre'.
func TriangularizeRows(pre *mat.Dense) *mat.Dense {
	m, n := pre.Dims()
	if n < m {
		panic(mat.ErrShape)
	}
	// pre' = Q R, so pre Q = R' is lower trapezoidal
	var tr mat.Dense
	tr.CloneFrom(pre.T())
	var qr mat.QR
	qr.Factorize(&tr)
	var r mat.Dense
	qr.RTo(&r)

	l := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j <= i; j++ {
			l.Set(i, j, r.At(j, i))
		}
	}
	return l
}

// MaxAbsDiff returns max_i |a_i - b_i| for two vectors of equal length.
func MaxAbsDiff(a, b mat.Vector) float64 {
	d := 0.0
	for i := 0; i < a.Len(); i++ {
		d = math.Max(d, math.Abs(a.AtVec(i)-b.AtVec(i)))
	}
	return d
}

// MaxAbs returns max_i |a_i|.
func MaxAbs(a mat.Vector) float64 {
	d := 0.0
	for i := 0; i < a.Len(); i++ {
		d = math.Max(d, math.Abs(a.AtVec(i)))
	}
	return d
}

// MaxAbsDiffMatrix returns max_ij |a_ij - b_ij|.
func MaxAbsDiffMatrix(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	d := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d = math.Max(d, math.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return d
}
