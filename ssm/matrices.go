package ssm

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ErrNonStationary is returned when a transition matrix has an eigenvalue on
// or outside the unit circle and no stationary covariance exists.
var ErrNonStationary = errors.New("ssm: transition is not stationary")

// Matrices is a time-invariant model held as dense matrices.
type Matrices struct {
	T    *mat.Dense
	Z    *mat.VecDense
	H    float64
	R    *mat.Dense // nil means identity
	V    *mat.SymDense
	Init Initialization

	q *mat.SymDense
}

// NewMatrices builds a time-invariant model and checks its dimensions.
func NewMatrices(t *mat.Dense, z *mat.VecDense, h float64, r *mat.Dense, v *mat.SymDense, init Initialization) (*Matrices, error) {
	m := &Matrices{T: t, Z: z, H: h, R: r, V: v, Init: init}
	if t == nil || z == nil || v == nil {
		return nil, fmt.Errorf("%w: T, Z and V are required", ErrDimension)
	}
	if err := Validate(m, 0); err != nil {
		return nil, err
	}
	m.q = noiseCovariance(m.Noise(0))
	return m, nil
}

func (m *Matrices) Dim() int {
	r, _ := m.T.Dims()
	return r
}

func (m *Matrices) TimeInvariant() bool { return true }

func (m *Matrices) Transition(int) mat.Matrix { return m.T }

func (m *Matrices) Loading(int) mat.Vector { return m.Z }

func (m *Matrices) ObservationVariance(int) float64 { return m.H }

func (m *Matrices) Noise(int) (mat.Matrix, mat.Symmetric) {
	if m.R == nil {
		return nil, m.V
	}
	return m.R, m.V
}

func (m *Matrices) Initialization() Initialization { return m.Init }

// StateCovariance returns the cached R V R'.
func (m *Matrices) StateCovariance(int) mat.Symmetric {
	if m.q == nil {
		m.q = noiseCovariance(m.Noise(0))
	}
	return m.q
}

// WithObservationVariance returns a copy of m with H replaced. The matrices
// are shared.
func (m *Matrices) WithObservationVariance(h float64) *Matrices {
	c := *m
	c.H = h
	return &c
}

// Clone returns a deep copy of m.
func (m *Matrices) Clone() *Matrices {
	c := &Matrices{
		T: mat.DenseCopyOf(m.T),
		Z: mat.VecDenseCopyOf(m.Z),
		H: m.H,
	}
	if m.R != nil {
		c.R = mat.DenseCopyOf(m.R)
	}
	c.V = mat.NewSymDense(m.V.SymmetricDim(), nil)
	c.V.CopySym(m.V)
	if m.Init.Mean != nil {
		c.Init.Mean = mat.VecDenseCopyOf(m.Init.Mean)
	}
	if m.Init.Stationary != nil {
		c.Init.Stationary = mat.NewSymDense(m.Init.Stationary.SymmetricDim(), nil)
		c.Init.Stationary.CopySym(m.Init.Stationary)
	}
	if m.Init.DiffuseDim() > 0 {
		c.Init.Diffuse = mat.DenseCopyOf(m.Init.Diffuse)
	}
	c.q = noiseCovariance(c.Noise(0))
	return c
}

// Component is a named sub-component of the state, extracted from a state
// vector x as Loading' x.
type Component struct {
	Name    string
	Loading *mat.VecDense
}

// Components is the list of components a model builder exposes.
type Components []Component

// Lookup returns the component with the given name.
func (cs Components) Lookup(name string) (Component, bool) {
	for _, c := range cs {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// Names returns the component names in order.
func (cs Components) Names() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}

// StationaryCovariance solves P = T P T' + Q for the unconditional state
// covariance of a stable transition. The d²×d² system (I - T⊗T) vec(P) =
// vec(Q) is solved directly, which is fine for the small state dimensions of
// ARIMA and structural models.
func StationaryCovariance(t mat.Matrix, q mat.Symmetric) (*mat.SymDense, error) {
	d, c := t.Dims()
	if d != c || q.SymmetricDim() != d {
		return nil, fmt.Errorf("%w: T is %dx%d, Q is %dx%d", ErrDimension, d, c, q.SymmetricDim(), q.SymmetricDim())
	}
	if !IsStable(t) {
		return nil, ErrNonStationary
	}

	var kron mat.Dense
	kron.Kronecker(t, t)
	n := d * d
	sys := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -kron.At(i, j)
			if i == j {
				v++
			}
			sys.Set(i, j, v)
		}
	}
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			rhs.SetVec(i*d+j, q.At(i, j))
		}
	}

	var vec mat.VecDense
	if err := vec.SolveVec(sys, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonStationary, err)
	}
	p := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			p.SetSym(i, j, 0.5*(vec.AtVec(i*d+j)+vec.AtVec(j*d+i)))
		}
	}
	return p, nil
}

// IsStable reports whether every eigenvalue of t lies strictly inside the
// unit circle.
func IsStable(t mat.Matrix) bool {
	return SpectralRadius(t) < 1
}

// SpectralRadius returns the largest eigenvalue modulus of t, or +Inf when
// the decomposition fails.
func SpectralRadius(t mat.Matrix) float64 {
	var eig mat.Eigen
	if ok := eig.Factorize(t, mat.EigenNone); !ok {
		return math.Inf(1)
	}
	rho := 0.0
	for _, v := range eig.Values(nil) {
		rho = math.Max(rho, cmplx.Abs(v))
	}
	return rho
}
