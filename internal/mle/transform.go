package mle

import "math"

// Stationary maps unconstrained values onto the coefficients of a
// stationary AR polynomial 1 − φ₁B − … − φₚBᵖ. Each value is first mapped
// to a partial autocorrelation in (−1, 1) by x/√(1+x²) and the
// coefficients follow from the Durbin-Levinson recursion.
func Stationary(x []float64) []float64 {
	p := len(x)
	phi := make([]float64, p)
	prev := make([]float64, p)
	for k := 0; k < p; k++ {
		r := x[k] / math.Sqrt(1+x[k]*x[k])
		copy(prev, phi[:k])
		for j := 0; j < k; j++ {
			phi[j] = prev[j] - r*prev[k-1-j]
		}
		phi[k] = r
	}
	return phi
}

// Unconstrained inverts Stationary. ok is false when phi is not strictly
// stationary.
func Unconstrained(phi []float64) (x []float64, ok bool) {
	p := len(phi)
	x = make([]float64, p)
	cur := append([]float64(nil), phi...)
	for k := p - 1; k >= 0; k-- {
		r := cur[k]
		if math.Abs(r) >= 1 {
			return nil, false
		}
		x[k] = r / math.Sqrt(1-r*r)
		den := 1 - r*r
		next := make([]float64, k)
		for j := 0; j < k; j++ {
			next[j] = (cur[j] + r*cur[k-1-j]) / den
		}
		cur = next
	}
	return x, true
}

// Invertible maps unconstrained values onto the coefficients of an
// invertible MA polynomial 1 + θ₁B + … + θ_qB^q.
func Invertible(x []float64) []float64 {
	theta := Stationary(x)
	for i := range theta {
		theta[i] = -theta[i]
	}
	return theta
}

// UnconstrainedMA inverts Invertible.
func UnconstrainedMA(theta []float64) ([]float64, bool) {
	phi := make([]float64, len(theta))
	for i, v := range theta {
		phi[i] = -v
	}
	return Unconstrained(phi)
}

// Shrink scales the coefficients of polynomial 1 − c₁B − … towards zero
// until every root lies outside the unit circle with margin, so that it
// can serve as a starting point. It returns nil if no scaling works.
func Shrink(c []float64) []float64 {
	out := append([]float64(nil), c...)
	for i := 0; i < 50; i++ {
		if _, ok := Unconstrained(out); ok {
			return out
		}
		for j := range out {
			out[j] *= 0.9
		}
	}
	return nil
}
