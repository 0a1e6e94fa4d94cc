package autoarima

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/statespace/arima"
	"github.com/sartorproj/statespace/timeseries"
)

func ar1(seed uint64, n int, phi, mu float64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 3))
	y := make([]float64, n+100)
	for t := 1; t < len(y); t++ {
		y[t] = phi*y[t-1] + rng.NormFloat64()
	}
	out := y[100:]
	for i := range out {
		out[i] += mu
	}
	return out
}

func driftingWalk(seed uint64, n int, drift float64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 5))
	y := make([]float64, n)
	y[0] = 100
	for t := 1; t < n; t++ {
		y[t] = y[t-1] + drift + rng.NormFloat64()
	}
	return y
}

// seasonalWalk has a slowly evolving seasonal pattern of period m.
func seasonalWalk(seed uint64, n, m int) []float64 {
	rng := rand.New(rand.NewPCG(seed, 9))
	y := make([]float64, n)
	for t := range y {
		y[t] = 10*math.Sin(2*math.Pi*float64(t)/float64(m)) + rng.NormFloat64()
		if t >= m {
			y[t] = y[t-m] + rng.NormFloat64()
		}
	}
	return y
}

func quietConfig() *Config {
	c := DefaultConfig()
	logger, _ := test.NewNullLogger()
	c.Logger = logger
	return c
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 5, config.MaxP)
	assert.Equal(t, 2, config.MaxD)
	assert.Equal(t, 5, config.MaxQ)
	assert.Equal(t, "aic", config.Criterion)
	assert.True(t, config.Stepwise)
	assert.Equal(t, -1, config.D)
	assert.Equal(t, -1, config.SD)
	assert.GreaterOrEqual(t, config.Parallelism, 1)
}

func TestAutoARIMAStationary(t *testing.T) {
	series := timeseries.New(ar1(1, 300, 0.6, 100))
	config := quietConfig()
	config.MaxP = 3
	config.MaxQ = 3

	result, err := AutoARIMA(series, config)
	require.NoError(t, err)

	assert.LessOrEqual(t, result.D, 1)
	assert.False(t, result.IsSeasonal)
	require.NotNil(t, result.Model)
	assert.Equal(t, result.AIC, result.Criterion)
	assert.Greater(t, result.ModelsEvaluated, 0)
}

func TestAutoARIMANonStationary(t *testing.T) {
	series := timeseries.New(driftingWalk(2, 200, 0.5))
	config := quietConfig()
	config.MaxP = 2
	config.MaxQ = 2

	result, err := AutoARIMA(series, config)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.D, 1)
	assert.Equal(t, result.D, result.Model.Order.D)
}

func TestAutoARIMAExhaustiveSearch(t *testing.T) {
	series := timeseries.New(ar1(3, 200, 0.5, 0))
	config := quietConfig()
	config.Stepwise = false
	config.D = 0
	config.MaxP = 2
	config.MaxQ = 1

	result, err := AutoARIMA(series, config)
	require.NoError(t, err)
	assert.Equal(t, 6, result.ModelsEvaluated)
	assert.Zero(t, result.ModelsFailed)

	best, bestP, bestQ := math.Inf(1), -1, -1
	for p := 0; p <= 2; p++ {
		for q := 0; q <= 1; q++ {
			m := arima.New(p, 0, q)
			require.NoError(t, m.Fit(series))
			if m.AIC < best {
				best, bestP, bestQ = m.AIC, p, q
			}
		}
	}
	assert.Equal(t, bestP, result.P)
	assert.Equal(t, bestQ, result.Q)
	assert.InDelta(t, best, result.Criterion, 1e-9)
}

func TestAutoARIMAParallelismIsDeterministic(t *testing.T) {
	series := timeseries.New(ar1(4, 150, -0.4, 5))
	var orders []string
	var criteria []float64
	for _, par := range []int{1, 4} {
		config := quietConfig()
		config.MaxP = 2
		config.MaxQ = 2
		config.Parallelism = par
		result, err := AutoARIMA(series, config)
		require.NoError(t, err)
		orders = append(orders, result.Order().String())
		criteria = append(criteria, result.Criterion)
	}
	assert.Equal(t, orders[0], orders[1])
	assert.Equal(t, criteria[0], criteria[1])
}

func TestAutoARIMASeasonal(t *testing.T) {
	series := timeseries.New(seasonalWalk(5, 144, 12))
	config := quietConfig()
	config.Seasonal = true
	config.SeasonalM = 12
	config.D = 0
	config.SD = 1
	config.MaxP = 1
	config.MaxQ = 1
	config.MaxSP = 1
	config.MaxSQ = 1

	result, err := AutoARIMA(series, config)
	require.NoError(t, err)
	assert.True(t, result.IsSeasonal)
	require.NotNil(t, result.SeasonalModel)
	assert.Equal(t, 12, result.M)
	assert.Equal(t, 1, result.SD)
	assert.Equal(t, result.Order(), result.SeasonalModel.Order)

	forecasts, err := result.Predict(12)
	require.NoError(t, err)
	assert.Len(t, forecasts, 12)
	assert.Len(t, result.Residuals(), 144)
}

func TestAutoARIMABICCriterion(t *testing.T) {
	series := timeseries.New(ar1(6, 200, 0.7, 0))
	config := quietConfig()
	config.Criterion = "bic"
	config.MaxP = 2
	config.MaxQ = 2

	result, err := AutoARIMA(series, config)
	require.NoError(t, err)
	assert.Equal(t, result.BIC, result.Criterion)

	config.Criterion = "aicc"
	result, err = AutoARIMA(series, config)
	require.NoError(t, err)
	assert.Equal(t, result.AICc, result.Criterion)
}

func TestAutoARIMAStepwiseLogsEachCandidateOnce(t *testing.T) {
	logger, hook := test.NewNullLogger()
	config := DefaultConfig()
	config.Logger = logger
	config.Trace = true
	config.D = 0
	config.MaxP = 2
	config.MaxQ = 2

	result, err := AutoARIMA(timeseries.New(ar1(7, 150, 0.5, 0)), config)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, e := range hook.AllEntries() {
		if e.Message != "autoarima: candidate fitted" {
			continue
		}
		assert.Equal(t, logrus.InfoLevel, e.Level)
		order := e.Data["order"].(string)
		assert.False(t, seen[order], "order %s fitted twice", order)
		seen[order] = true
	}
	assert.Len(t, seen, result.ModelsEvaluated)
	assert.Equal(t, "autoarima: selected model", hook.LastEntry().Message)
}

func TestAutoARIMANoModel(t *testing.T) {
	_, err := AutoARIMA(timeseries.New([]float64{1, 2, 3, 4, 5}), quietConfig())
	assert.ErrorIs(t, err, ErrNoModel)

	var r Result
	_, err = r.Predict(3)
	assert.ErrorIs(t, err, ErrNoModel)
	assert.Nil(t, r.Residuals())
}

func TestAutoARIMACancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AutoARIMAContext(ctx, timeseries.New(ar1(8, 100, 0.3, 0)), quietConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutoARIMANilConfig(t *testing.T) {
	logrus.SetLevel(logrus.WarnLevel)
	result, err := AutoARIMA(timeseries.New(ar1(9, 100, 0.2, 50)), nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotNil(t, result.Model)
}
