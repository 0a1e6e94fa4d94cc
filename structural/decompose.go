package structural

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/kalman"
	"github.com/sartorproj/statespace/timeseries"
)

// Decomposition splits a series into smoothed components. Components the
// model lacks are zero, so for every observed t
//
//	Observed = Trend + Seasonal + Cycle + Irregular
//
// Irregular is NaN where the series is missing.
type Decomposition struct {
	Observed  []float64
	Trend     []float64
	Seasonal  []float64
	Cycle     []float64
	Irregular []float64
	// Slope is nil without a slope component.
	Slope []float64
	// TrendVariance is the smoothed variance of the trend.
	TrendVariance []float64
	// SeasonallyAdjusted is Observed − Seasonal, with missing values
	// replaced by Trend + Cycle.
	SeasonallyAdjusted []float64
}

// Decompose runs the filter and smoother of m on series and extracts every
// component through its loading on the smoothed state.
func Decompose(series *timeseries.Series, m *Model) (*Decomposition, error) {
	data := kalman.Masked{Values: series.Values, Missing: series.Missing}
	states, _, err := kalman.FilterAndSmooth(m.Matrices, data, m.opts...)
	if err != nil {
		return nil, err
	}

	n := len(states)
	dec := &Decomposition{
		Observed:           series.Values,
		Seasonal:           make([]float64, n),
		Cycle:              make([]float64, n),
		Irregular:          make([]float64, n),
		SeasonallyAdjusted: make([]float64, n),
	}
	for _, c := range m.Components {
		path := kalman.Component(states, c.Loading)
		switch c.Name {
		case Level:
			dec.Trend, dec.TrendVariance = path.Mean, path.Variance
		case Slope:
			dec.Slope = path.Mean
		case Seasonal:
			dec.Seasonal = path.Mean
		case Cycle:
			dec.Cycle = path.Mean
		}
	}

	for t, s := range states {
		y, ok := data.At(t)
		if !ok {
			dec.Irregular[t] = math.NaN()
			dec.SeasonallyAdjusted[t] = dec.Trend[t] + dec.Cycle[t]
			continue
		}
		dec.Irregular[t] = y - mat.Dot(m.Matrices.Z, s.Mean)
		dec.SeasonallyAdjusted[t] = y - dec.Seasonal[t]
	}
	return dec, nil
}
