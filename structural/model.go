package structural

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/ssm"
)

// Component names exposed by Build.
const (
	Level    = "level"
	Slope    = "slope"
	Seasonal = "seasonal"
	Cycle    = "cycle"
)

// Spec selects the components of the basic structural model
//
//	y_t = μ_t + γ_t + ψ_t + ε_t
//	μ_{t+1} = μ_t + ν_t + η_t,  ν_{t+1} = ν_t + ζ_t
//	γ_{t+1} = −(γ_t + … + γ_{t−s+2}) + ω_t
//	[ψ ψ*]_{t+1} = ρ [cos λ  sin λ; −sin λ  cos λ] [ψ ψ*]_t + κ_t
//
// The level is always present.
type Spec struct {
	// Slope adds the stochastic slope ν, making the trend a local linear
	// trend.
	Slope bool
	// Period is the length s of the dummy seasonal; 0 or 1 means none.
	Period int
	// Cycle adds the damped stochastic cycle ψ.
	Cycle bool
	// CyclePeriod is the starting value of 2π/λ in Fit (default 20).
	CyclePeriod float64
}

// Params holds the disturbance variances and the cycle parameters.
type Params struct {
	Level     float64 // Var η
	Slope     float64 // Var ζ
	Seasonal  float64 // Var ω
	Cycle     float64 // Var κ, per cycle state
	Irregular float64 // Var ε

	CycleDamping   float64 // ρ in [0, 1)
	CycleFrequency float64 // λ in (0, π)
}

// Validate checks the spec.
func (s Spec) Validate() error {
	switch {
	case s.Period < 0:
		return fmt.Errorf("structural: negative seasonal period %d", s.Period)
	case s.CyclePeriod != 0 && s.CyclePeriod <= 2:
		return fmt.Errorf("structural: cycle period %g must exceed 2", s.CyclePeriod)
	}
	return nil
}

func (s Spec) seasonal() bool { return s.Period > 1 }

// layout gives the index of the first state of each component, -1 when the
// component is absent.
type layout struct {
	dim, slope, seasonal, cycle int
}

func (s Spec) layout() layout {
	l := layout{dim: 1, slope: -1, seasonal: -1, cycle: -1}
	if s.Slope {
		l.slope = l.dim
		l.dim++
	}
	if s.seasonal() {
		l.seasonal = l.dim
		l.dim += s.Period - 1
	}
	if s.Cycle {
		l.cycle = l.dim
		l.dim += 2
	}
	return l
}

var errCycle = errors.New("structural: cycle damping must lie in [0, 1) and frequency in (0, π)")

// Build returns the state space form of spec with parameters p, and the
// loadings of its components. Trend and seasonal states are diffuse; the
// cycle starts from its stationary distribution.
func Build(spec Spec, p Params) (*ssm.Matrices, ssm.Components, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}
	for _, v := range []float64{p.Level, p.Slope, p.Seasonal, p.Cycle, p.Irregular} {
		if v < 0 || math.IsNaN(v) {
			return nil, nil, fmt.Errorf("structural: %w %g", ssm.ErrNegativeVariance, v)
		}
	}
	if spec.Cycle && !(p.CycleDamping >= 0 && p.CycleDamping < 1 && p.CycleFrequency > 0 && p.CycleFrequency < math.Pi) {
		return nil, nil, errCycle
	}

	l := spec.layout()
	d := l.dim
	tr := mat.NewDense(d, d, nil)
	z := mat.NewVecDense(d, nil)
	v := mat.NewSymDense(d, nil)
	diffuse := []int{0}

	tr.Set(0, 0, 1)
	z.SetVec(0, 1)
	v.SetSym(0, 0, p.Level)
	comps := ssm.Components{{Name: Level, Loading: unit(d, 0)}}

	if i := l.slope; i >= 0 {
		tr.Set(0, i, 1)
		tr.Set(i, i, 1)
		v.SetSym(i, i, p.Slope)
		diffuse = append(diffuse, i)
		comps = append(comps, ssm.Component{Name: Slope, Loading: unit(d, i)})
	}

	if i := l.seasonal; i >= 0 {
		k := spec.Period - 1
		for j := 0; j < k; j++ {
			tr.Set(i, i+j, -1)
			diffuse = append(diffuse, i+j)
		}
		for j := 1; j < k; j++ {
			tr.Set(i+j, i+j-1, 1)
		}
		z.SetVec(i, 1)
		v.SetSym(i, i, p.Seasonal)
		comps = append(comps, ssm.Component{Name: Seasonal, Loading: unit(d, i)})
	}

	init := ssm.Initialization{Stationary: mat.NewSymDense(d, nil)}
	if i := l.cycle; i >= 0 {
		rho := p.CycleDamping
		c, s := rho*math.Cos(p.CycleFrequency), rho*math.Sin(p.CycleFrequency)
		tr.Set(i, i, c)
		tr.Set(i, i+1, s)
		tr.Set(i+1, i, -s)
		tr.Set(i+1, i+1, c)
		z.SetVec(i, 1)
		v.SetSym(i, i, p.Cycle)
		v.SetSym(i+1, i+1, p.Cycle)
		// the rotation preserves a scaled identity
		p0 := p.Cycle / (1 - rho*rho)
		init.Stationary.SetSym(i, i, p0)
		init.Stationary.SetSym(i+1, i+1, p0)
		comps = append(comps, ssm.Component{Name: Cycle, Loading: unit(d, i)})
	}

	init.Diffuse = mat.NewDense(d, len(diffuse), nil)
	for j, i := range diffuse {
		init.Diffuse.Set(i, j, 1)
	}

	m, err := ssm.NewMatrices(tr, z, p.Irregular, nil, v, init)
	if err != nil {
		return nil, nil, err
	}
	return m, comps, nil
}

func unit(d, i int) *mat.VecDense {
	e := mat.NewVecDense(d, nil)
	e.SetVec(i, 1)
	return e
}
