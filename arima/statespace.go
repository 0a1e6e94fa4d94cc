package arima

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/ssm"
)

// StateSpace returns the state space form of the ARIMA model
//
//	δ(B) y_t = w_t,  φ(B) w_t = θ(B) ε_t,  ε_t ~ N(0, σ²)
//
// with φ(B) = 1 − ΣφᵢBⁱ, θ(B) = 1 + ΣθⱼBʲ and δ(B) = 1 − ΣδₖBᵏ. The state
// stacks the r = max(p, q+1) ARMA states of Harvey's representation and the
// last k = len(delta) observations. The ARMA block starts from its
// stationary covariance and the lagged observations are diffuse.
func StateSpace(phi, theta, delta []float64, sigma2 float64) (*ssm.Matrices, error) {
	if sigma2 < 0 {
		return nil, errors.New("arima: negative innovation variance")
	}
	p, q, k := len(phi), len(theta), len(delta)
	r := max(p, q+1)
	d := r + k

	tr := mat.NewDense(d, d, nil)
	for i := 0; i < p; i++ {
		tr.Set(i, 0, phi[i])
	}
	for i := 0; i < r-1; i++ {
		tr.Set(i, i+1, 1)
	}
	z := mat.NewVecDense(d, nil)
	z.SetVec(0, 1)
	if k > 0 {
		// y_t = w_t + Σ δₖ y_{t-k} enters the first lag slot
		tr.Set(r, 0, 1)
		for j := 0; j < k; j++ {
			tr.Set(r, r+j, delta[j])
			z.SetVec(r+j, delta[j])
		}
		for j := 1; j < k; j++ {
			tr.Set(r+j, r+j-1, 1)
		}
	}

	sel := mat.NewDense(d, 1, nil)
	sel.Set(0, 0, 1)
	for j := 0; j < q; j++ {
		sel.Set(j+1, 0, theta[j])
	}
	v := mat.NewSymDense(1, []float64{sigma2})

	q0 := mat.NewSymDense(r, nil)
	q0.SymOuterK(sigma2, sel.Slice(0, r, 0, 1))
	p0, err := ssm.StationaryCovariance(tr.Slice(0, r, 0, r), q0)
	if err != nil {
		return nil, fmt.Errorf("arima: AR part: %w", err)
	}
	init := ssm.Initialization{Stationary: mat.NewSymDense(d, nil)}
	init.Stationary.SliceSym(0, r).(*mat.SymDense).CopySym(p0)
	if k > 0 {
		init.Diffuse = mat.NewDense(d, k, nil)
		for j := 0; j < k; j++ {
			init.Diffuse.Set(r+j, j, 1)
		}
	}
	return ssm.NewMatrices(tr, z, 0, sel, v, init)
}
