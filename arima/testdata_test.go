package arima

import "math/rand/v2"

// simulateARMA draws n values of an ARMA(p, q) process with unit
// innovation variance after a burn-in of 200 steps.
func simulateARMA(seed uint64, n int, phi, theta []float64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 42))
	burn := 200
	e := make([]float64, n+burn)
	y := make([]float64, n+burn)
	for t := range y {
		e[t] = rng.NormFloat64()
		y[t] = e[t]
		for i, c := range phi {
			if t-i-1 >= 0 {
				y[t] += c * y[t-i-1]
			}
		}
		for j, c := range theta {
			if t-j-1 >= 0 {
				y[t] += c * e[t-j-1]
			}
		}
	}
	return y[burn:]
}

// integrate returns the cumulative sum of x starting from level.
func integrate(x []float64, level float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		level += v
		out[i] = level
	}
	return out
}
