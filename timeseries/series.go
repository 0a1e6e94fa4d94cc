// Package timeseries provides the series type fed to the filters, with an
// explicit missing-observation mask.
package timeseries

import (
	"errors"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series is a univariate time series. Missing is nil when every value is
// observed; otherwise it has the length of Values and Values holds NaN at
// the missing positions.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Missing    []bool
	Name       string
}

// New creates a series from a copy of values at hourly timestamps. NaN
// values are marked missing.
func New(values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	base := time.Now()
	for i := range timestamps {
		timestamps[i] = base.Add(time.Duration(i) * time.Hour)
	}
	s := &Series{Timestamps: timestamps, Values: slices.Clone(values)}
	for i, v := range values {
		if math.IsNaN(v) {
			s.SetMissing(i)
		}
	}
	return s
}

// NewWithTimestamps creates a series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	s := New(values)
	s.Timestamps = timestamps
	return s, nil
}

// NewWithMissing creates a series whose values at the positions where
// missing is true are unobserved.
func NewWithMissing(values []float64, missing []bool) (*Series, error) {
	if len(missing) != len(values) {
		return nil, errors.New("values and missing mask must have the same length")
	}
	s := New(values)
	for i, m := range missing {
		if m {
			s.SetMissing(i)
		}
	}
	return s, nil
}

// Len returns the length of the series, missing positions included.
func (s *Series) Len() int {
	return len(s.Values)
}

// At returns the value at t and whether it was observed.
func (s *Series) At(t int) (float64, bool) {
	if s.IsMissing(t) {
		return 0, false
	}
	return s.Values[t], true
}

// IsMissing reports whether the value at t is unobserved.
func (s *Series) IsMissing(t int) bool {
	return s.Missing != nil && s.Missing[t]
}

// SetMissing marks the value at t as unobserved and clears it to NaN in
// the series' own values.
func (s *Series) SetMissing(t int) {
	if s.Missing == nil {
		s.Missing = make([]bool, len(s.Values))
	}
	s.Missing[t] = true
	s.Values[t] = math.NaN()
}

// HasMissing reports whether any value is unobserved.
func (s *Series) HasMissing() bool {
	return slices.Contains(s.Missing, true)
}

// ObservedCount returns the number of observed values.
func (s *Series) ObservedCount() int {
	n := 0
	for t := range s.Values {
		if !s.IsMissing(t) {
			n++
		}
	}
	return n
}

// Observed returns the observed values in time order.
func (s *Series) Observed() []float64 {
	out := make([]float64, 0, len(s.Values))
	for t, v := range s.Values {
		if !s.IsMissing(t) {
			out = append(out, v)
		}
	}
	return out
}

// Mean calculates the arithmetic mean of the observed values.
func (s *Series) Mean() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return 0
	}
	return stat.Mean(obs, nil)
}

// Variance calculates the sample variance of the observed values.
func (s *Series) Variance() float64 {
	obs := s.Observed()
	if len(obs) < 2 {
		return 0
	}
	return stat.Variance(obs, nil)
}

// Std calculates the standard deviation of the observed values.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the smallest observed value.
func (s *Series) Min() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return math.NaN()
	}
	return floats.Min(obs)
}

// Max returns the largest observed value.
func (s *Series) Max() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return math.NaN()
	}
	return floats.Max(obs)
}

// Median returns the median of the observed values.
func (s *Series) Median() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return math.NaN()
	}
	slices.Sort(obs)
	n := len(obs)
	if n%2 == 0 {
		return (obs[n/2-1] + obs[n/2]) / 2
	}
	return obs[n/2]
}

// derive builds a series of length n whose value i is f(i) and which is
// missing whenever any of the source positions src(i) is missing.
func (s *Series) derive(n, offset int, suffix string, f func(i int) float64, src func(i int) []int) *Series {
	out := &Series{
		Timestamps: make([]time.Time, n),
		Values:     make([]float64, n),
		Name:       s.Name + suffix,
	}
	if len(s.Timestamps) >= offset+n {
		copy(out.Timestamps, s.Timestamps[offset:offset+n])
	}
	for i := 0; i < n; i++ {
		missing := false
		for _, j := range src(i) {
			if s.IsMissing(j) {
				missing = true
				break
			}
		}
		if missing {
			out.SetMissing(i)
			continue
		}
		out.Values[i] = f(i)
	}
	return out
}

func empty() *Series {
	return &Series{Values: []float64{}}
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	return s.lagDiff(1, "_diff")
}

// DiffN applies the first difference n times.
func (s *Series) DiffN(n int) *Series {
	if n <= 0 || len(s.Values) <= n {
		return empty()
	}
	out := s
	for i := 0; i < n; i++ {
		out = out.Diff()
	}
	return out
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.lagDiff(m, "_seasonal_diff")
}

func (s *Series) lagDiff(k int, suffix string) *Series {
	if k <= 0 || len(s.Values) <= k {
		return empty()
	}
	return s.derive(len(s.Values)-k, k, suffix,
		func(i int) float64 { return s.Values[i+k] - s.Values[i] },
		func(i int) []int { return []int{i, i + k} })
}

// Lag returns the series shifted k steps, aligned with the timestamps of
// the original from position k on.
func (s *Series) Lag(k int) *Series {
	if k <= 0 || k >= len(s.Values) {
		return empty()
	}
	return s.derive(len(s.Values)-k, k, "_lag",
		func(i int) float64 { return s.Values[i] },
		func(i int) []int { return []int{i} })
}

// Slice returns the values from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	start = max(start, 0)
	end = min(end, len(s.Values))
	if start >= end {
		return empty()
	}
	out := s.derive(end-start, start, "",
		func(i int) float64 { return s.Values[start+i] },
		func(i int) []int { return []int{start + i} })
	if len(s.Timestamps) < end {
		out.Timestamps = make([]time.Time, end-start)
	}
	return out
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	return &Series{
		Timestamps: slices.Clone(s.Timestamps),
		Values:     slices.Clone(s.Values),
		Missing:    slices.Clone(s.Missing),
		Name:       s.Name,
	}
}

// Log applies the natural logarithm. Non-positive values become missing.
func (s *Series) Log() *Series {
	out := s.derive(len(s.Values), 0, "_log",
		func(i int) float64 { return math.Log(s.Values[i]) },
		func(i int) []int { return []int{i} })
	for i, v := range out.Values {
		if !out.IsMissing(i) && (math.IsNaN(v) || math.IsInf(v, 0)) {
			out.SetMissing(i)
		}
	}
	return out
}

// MovingAverage calculates a trailing moving average with the given window.
// A window containing a missing value is missing.
func (s *Series) MovingAverage(window int) *Series {
	if window <= 0 || window > len(s.Values) {
		return empty()
	}
	return s.derive(len(s.Values)-window+1, window-1, "_ma",
		func(i int) float64 { return stat.Mean(s.Values[i:i+window], nil) },
		func(i int) []int {
			idx := make([]int, window)
			for j := range idx {
				idx[j] = i + j
			}
			return idx
		})
}

// Normalize standardizes the observed values to zero mean and unit
// variance.
func (s *Series) Normalize() *Series {
	mean, std := s.Mean(), s.Std()
	if std == 0 {
		return s.Copy()
	}
	return s.derive(len(s.Values), 0, "_normalized",
		func(i int) float64 { return (s.Values[i] - mean) / std },
		func(i int) []int { return []int{i} })
}
