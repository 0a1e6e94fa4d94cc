package timeseries

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	s := New(values)

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, values, s.Values)
	assert.Nil(t, s.Missing)
	assert.False(t, s.HasMissing())
	assert.Len(t, s.Timestamps, 5)
}

func TestNewCopiesValues(t *testing.T) {
	values := []float64{1, 2, 3}
	s := New(values)
	s.SetMissing(1)

	assert.Equal(t, []float64{1, 2, 3}, values)
	assert.True(t, s.IsMissing(1))
	assert.True(t, math.IsNaN(s.Values[1]))
	_, ok := s.At(1)
	assert.False(t, ok)

	masked, err := NewWithMissing(values, []bool{false, false, true})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, values)
	assert.Equal(t, 2, masked.ObservedCount())
}

func TestNewMarksNaNMissing(t *testing.T) {
	s := New([]float64{1, math.NaN(), 3})
	assert.True(t, s.IsMissing(1))
	assert.Equal(t, 2, s.ObservedCount())

	v, ok := s.At(1)
	assert.False(t, ok)
	assert.Zero(t, v)
	v, ok = s.At(2)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestNewWithMissing(t *testing.T) {
	s, err := NewWithMissing([]float64{1, 2, 3, 4}, []bool{false, true, false, false})
	require.NoError(t, err)
	assert.True(t, s.HasMissing())
	assert.True(t, math.IsNaN(s.Values[1]))
	assert.Equal(t, []float64{1, 3, 4}, s.Observed())

	_, err = NewWithMissing([]float64{1}, []bool{false, true})
	assert.Error(t, err)
}

func TestStatistics(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		mean     float64
		median   float64
		variance float64
	}{
		{"simple", []float64{1, 2, 3, 4, 5}, 3, 3, 2.5},
		{"single", []float64{5}, 5, 5, 0},
		{"negative", []float64{-1, -2, -3}, -2, -2, 1},
		{"even", []float64{1, 2, 3, 4}, 2.5, 2.5, 5.0 / 3},
		{"missing skipped", []float64{1, math.NaN(), 3, math.NaN(), 5}, 3, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.values)
			assert.InDelta(t, tt.mean, s.Mean(), 1e-10)
			assert.InDelta(t, tt.median, s.Median(), 1e-10)
			assert.InDelta(t, tt.variance, s.Variance(), 1e-10)
			assert.InDelta(t, math.Sqrt(tt.variance), s.Std(), 1e-10)
		})
	}

	empty := New(nil)
	assert.Zero(t, empty.Mean())
	assert.True(t, math.IsNaN(empty.Min()))
	assert.True(t, math.IsNaN(empty.Median()))
}

func TestMinMax(t *testing.T) {
	s := New([]float64{5, 2, math.NaN(), 8, 1, 9, 3})
	assert.Equal(t, 1.0, s.Min())
	assert.Equal(t, 9.0, s.Max())
}

func TestDiff(t *testing.T) {
	s := New([]float64{1, 3, 6, 10, 15})
	assert.InDeltaSlice(t, []float64{2, 3, 4, 5}, s.Diff().Values, 1e-10)
}

func TestDiffN(t *testing.T) {
	s := New([]float64{1, 3, 6, 10, 15, 21})
	assert.InDeltaSlice(t, []float64{1, 1, 1, 1}, s.DiffN(2).Values, 1e-10)
	assert.Zero(t, s.DiffN(6).Len())
}

func TestSeasonalDiff(t *testing.T) {
	values := []float64{10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30, 32, 11, 13, 15, 17}
	diff := New(values).SeasonalDiff(12)
	assert.InDeltaSlice(t, []float64{1, 1, 1, 1}, diff.Values, 1e-10)
}

func TestDiffPropagatesMissing(t *testing.T) {
	s, err := NewWithMissing([]float64{1, 2, 0, 7, 11}, []bool{false, false, true, false, false})
	require.NoError(t, err)

	d := s.Diff()
	require.Equal(t, 4, d.Len())
	assert.Equal(t, []bool{false, true, true, false}, d.Missing)
	assert.Equal(t, 1.0, d.Values[0])
	assert.Equal(t, 4.0, d.Values[3])

	d2 := s.DiffN(2)
	assert.Equal(t, []bool{true, true, true}, d2.Missing)
}

func TestLag(t *testing.T) {
	s := New([]float64{1, 2, 3, 4, 5})
	lagged := s.Lag(2)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, lagged.Values, 1e-10)
	assert.Equal(t, s.Timestamps[2], lagged.Timestamps[0])
}

func TestSlice(t *testing.T) {
	s, err := NewWithMissing([]float64{1, 2, 3, 4, 5}, []bool{false, false, true, false, false})
	require.NoError(t, err)

	sliced := s.Slice(1, 4)
	assert.Equal(t, 3, sliced.Len())
	assert.Equal(t, 2.0, sliced.Values[0])
	assert.True(t, sliced.IsMissing(1))
	assert.Equal(t, s.Timestamps[1], sliced.Timestamps[0])

	assert.Zero(t, s.Slice(4, 2).Len())
}

func TestLog(t *testing.T) {
	logged := New([]float64{1, math.E, math.E * math.E, 0, -1}).Log()
	assert.InDeltaSlice(t, []float64{0, 1, 2}, logged.Values[:3], 1e-10)
	assert.True(t, logged.IsMissing(3))
	assert.True(t, logged.IsMissing(4))
}

func TestMovingAverage(t *testing.T) {
	s := New([]float64{1, 2, 3, 4, 5, 6, 7})
	assert.InDeltaSlice(t, []float64{2, 3, 4, 5, 6}, s.MovingAverage(3).Values, 1e-10)

	s.SetMissing(3)
	ma := s.MovingAverage(3)
	assert.Equal(t, []bool{false, true, true, true, false}, ma.Missing)
}

func TestNormalize(t *testing.T) {
	normalized := New([]float64{1, 2, math.NaN(), 4, 5}).Normalize()
	assert.InDelta(t, 0, normalized.Mean(), 1e-10)
	assert.InDelta(t, 1, normalized.Std(), 1e-10)
	assert.True(t, normalized.IsMissing(2))
}

func TestCopy(t *testing.T) {
	s := New([]float64{1, 2, 3})
	s.SetMissing(2)
	copied := s.Copy()

	s.Values[0] = 100
	s.Missing[2] = false

	assert.Equal(t, 1.0, copied.Values[0])
	assert.True(t, copied.IsMissing(2))
}
