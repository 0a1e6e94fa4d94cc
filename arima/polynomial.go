package arima

// Polynomial holds the coefficients c₀ + c₁B + c₂B² + … of a polynomial in
// the lag operator B, indexed by power.
type Polynomial []float64

// ARPolynomial returns 1 − φ₁Bˢ − φ₂B²ˢ − … for lag s.
func ARPolynomial(phi []float64, lag int) Polynomial {
	p := make(Polynomial, len(phi)*lag+1)
	p[0] = 1
	for i, c := range phi {
		p[(i+1)*lag] = -c
	}
	return p
}

// MAPolynomial returns 1 + θ₁Bˢ + θ₂B²ˢ + … for lag s.
func MAPolynomial(theta []float64, lag int) Polynomial {
	p := make(Polynomial, len(theta)*lag+1)
	p[0] = 1
	for i, c := range theta {
		p[(i+1)*lag] = c
	}
	return p
}

// Differencing returns (1 − B)ᵈ (1 − Bˢ)ᴰ.
func Differencing(d, sd, period int) Polynomial {
	p := Polynomial{1}
	for i := 0; i < d; i++ {
		p = p.Mul(Polynomial{1, -1})
	}
	for i := 0; i < sd; i++ {
		p = p.Mul(ARPolynomial([]float64{1}, period))
	}
	return p
}

// Mul returns the product p·q.
func (p Polynomial) Mul(q Polynomial) Polynomial {
	if len(p) == 0 || len(q) == 0 {
		return Polynomial{}
	}
	out := make(Polynomial, len(p)+len(q)-1)
	for i, a := range p {
		if a == 0 {
			continue
		}
		for j, b := range q {
			out[i+j] += a * b
		}
	}
	return out
}

// Degree is the highest power with a non-zero coefficient.
func (p Polynomial) Degree() int {
	for i := len(p) - 1; i > 0; i-- {
		if p[i] != 0 {
			return i
		}
	}
	return 0
}

// ARCoefficients returns φ with p = 1 − φ₁B − … − φₖBᵏ.
func (p Polynomial) ARCoefficients() []float64 {
	k := p.Degree()
	out := make([]float64, k)
	for i := 1; i <= k; i++ {
		out[i-1] = -p[i]
	}
	return out
}

// MACoefficients returns θ with p = 1 + θ₁B + … + θₖBᵏ.
func (p Polynomial) MACoefficients() []float64 {
	k := p.Degree()
	out := make([]float64, k)
	copy(out, p[1:k+1])
	return out
}
