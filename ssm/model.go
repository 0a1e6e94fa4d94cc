package ssm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDimension is returned when the matrices of a model disagree with its
// declared state dimension.
var ErrDimension = errors.New("ssm: dimension mismatch")

// ErrNegativeVariance is returned for a negative observation variance.
var ErrNegativeVariance = errors.New("ssm: negative variance")

// ErrRankDeficient is returned when the columns of a diffuse basis are
// linearly dependent.
var ErrRankDeficient = errors.New("ssm: diffuse basis is rank deficient")

// Model describes a linear Gaussian state-space model with a scalar
// observation:
//
//	y_t     = Z_t α_t + ε_t,      ε_t ~ N(0, H_t)
//	α_{t+1} = T_t α_t + R_t η_t,  η_t ~ N(0, V_t)
//
// The engine only reads from a Model. Matrices returned by its methods must
// not be modified by the caller.
type Model interface {
	// Dim is the state dimension d.
	Dim() int
	// TimeInvariant reports whether T, Z, H, R and V are the same at every t.
	TimeInvariant() bool
	// Transition returns the d×d matrix T_t.
	Transition(t int) mat.Matrix
	// Loading returns Z_t as a vector of length d.
	Loading(t int) mat.Vector
	// ObservationVariance returns H_t.
	ObservationVariance(t int) float64
	// Noise returns the d×r selection matrix R_t and the r×r covariance V_t.
	// A nil selection matrix means the identity.
	Noise(t int) (sel mat.Matrix, cov mat.Symmetric)
	// Initialization describes the distribution of α_1.
	Initialization() Initialization
}

// covarianceCache is implemented by models that can hand out a precomputed
// Q_t = R_t V_t R_t'.
type covarianceCache interface {
	StateCovariance(t int) mat.Symmetric
}

// Initialization is the distribution of the first state,
// α_1 ~ N(Mean, Stationary + κ Diffuse Diffuse') with κ → ∞.
type Initialization struct {
	// Mean is a_1; nil means zero.
	Mean *mat.VecDense
	// Stationary is the finite part P*_1 of the initial covariance; nil
	// means zero.
	Stationary *mat.SymDense
	// Diffuse is a d×k basis of the subspace with unbounded variance; nil
	// when there is none.
	Diffuse *mat.Dense
}

// DiffuseDim returns the number of diffuse directions k.
func (in Initialization) DiffuseDim() int {
	if in.Diffuse == nil || in.Diffuse.IsEmpty() {
		return 0
	}
	_, k := in.Diffuse.Dims()
	return k
}

// ApplyT stores T_t x into dst. dst must not share storage with x.
func ApplyT(m Model, t int, dst, x *mat.VecDense) {
	dst.MulVec(m.Transition(t), x)
}

// ApplyTTranspose stores T_t' x into dst. dst must not share storage with x.
func ApplyTTranspose(m Model, t int, dst, x *mat.VecDense) {
	dst.MulVec(m.Transition(t).T(), x)
}

// ApplyZ returns Z_t x.
func ApplyZ(m Model, t int, x mat.Vector) float64 {
	return mat.Dot(m.Loading(t), x)
}

// LoadingInto stores P Z_t' into dst.
func LoadingInto(m Model, t int, p mat.Symmetric, dst *mat.VecDense) {
	dst.MulVec(p, m.Loading(t))
}

// StateCovariance returns Q_t = R_t V_t R_t'.
func StateCovariance(m Model, t int) mat.Symmetric {
	if c, ok := m.(covarianceCache); ok {
		return c.StateCovariance(t)
	}
	return noiseCovariance(m.Noise(t))
}

// AddQ adds Q_t to p in place.
func AddQ(m Model, t int, p *mat.SymDense) {
	p.AddSym(p, StateCovariance(m, t))
}

func noiseCovariance(sel mat.Matrix, cov mat.Symmetric) *mat.SymDense {
	if sel == nil {
		q := mat.NewSymDense(cov.SymmetricDim(), nil)
		q.CopySym(cov)
		return q
	}
	d, _ := sel.Dims()
	// tmp = R V
	var tmp, full mat.Dense
	tmp.Mul(sel, cov)
	full.Mul(&tmp, sel.T())

	q := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			q.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}
	return q
}

// Validate checks the dimensions of every matrix of m at time t against
// m.Dim(). Initialization is checked as well.
func Validate(m Model, t int) error {
	d := m.Dim()
	if d <= 0 {
		return fmt.Errorf("%w: state dimension %d", ErrDimension, d)
	}
	if r, c := m.Transition(t).Dims(); r != d || c != d {
		return fmt.Errorf("%w: T is %dx%d, want %dx%d", ErrDimension, r, c, d, d)
	}
	if n := m.Loading(t).Len(); n != d {
		return fmt.Errorf("%w: Z has length %d, want %d", ErrDimension, n, d)
	}
	sel, cov := m.Noise(t)
	if cov == nil {
		return fmt.Errorf("%w: missing state noise covariance", ErrDimension)
	}
	k := cov.SymmetricDim()
	if sel == nil {
		if k != d {
			return fmt.Errorf("%w: V is %dx%d with identity selection, want %dx%d", ErrDimension, k, k, d, d)
		}
	} else if r, c := sel.Dims(); r != d || c != k {
		return fmt.Errorf("%w: R is %dx%d, want %dx%d", ErrDimension, r, c, d, k)
	}
	if h := m.ObservationVariance(t); h < 0 {
		return fmt.Errorf("%w: observation variance %g", ErrNegativeVariance, h)
	}

	in := m.Initialization()
	if in.Mean != nil && in.Mean.Len() != d {
		return fmt.Errorf("%w: initial mean has length %d, want %d", ErrDimension, in.Mean.Len(), d)
	}
	if in.Stationary != nil && in.Stationary.SymmetricDim() != d {
		return fmt.Errorf("%w: initial covariance is %dx%d, want %dx%d", ErrDimension,
			in.Stationary.SymmetricDim(), in.Stationary.SymmetricDim(), d, d)
	}
	if k := in.DiffuseDim(); k > 0 {
		r, _ := in.Diffuse.Dims()
		if r != d || k > d {
			return fmt.Errorf("%w: diffuse basis is %dx%d for state dimension %d", ErrDimension, r, k, d)
		}
		if rank := columnRank(in.Diffuse); rank < k {
			return fmt.Errorf("%w: rank %d with %d columns", ErrRankDeficient, rank, k)
		}
	}
	return nil
}

// columnRank counts the singular values of a above the usual
// max(r, c)·ε·σ₁ threshold.
func columnRank(a mat.Matrix) int {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return 0
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return 0
	}
	r, c := a.Dims()
	tol := float64(max(r, c)) * 2.220446049250313e-16 * values[0]
	rank := 0
	for _, v := range values {
		if v > tol {
			rank++
		}
	}
	return rank
}
