// Package ssm defines the contract between a linear Gaussian state-space
// model and the filtering engine.
//
// A model is anything implementing Model. Builders in the arima, sarima and
// structural packages return *Matrices, a time-invariant model held as dense
// gonum matrices, together with the Components that let callers pull trend,
// seasonal or cycle series out of a smoothed state.
//
// # Initialization
//
// The first state is distributed as N(a, P* + κ B B') with κ → ∞. Stationary
// parts go into P*, typically computed with StationaryCovariance, and
// non-stationary directions (unit roots, fixed regression effects) are listed
// as the columns of the diffuse basis B:
//
//	init := ssm.Initialization{
//		Stationary: p0,
//		Diffuse:    mat.NewDense(3, 1, []float64{0, 0, 1}),
//	}
//	m, err := ssm.NewMatrices(t, z, 0, r, v, init)
package ssm
