package main

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeConfig stores a random-walk-plus-noise dataset with two gaps and
// returns the path of the YAML file.
func writeConfig(t *testing.T, n int) string {
	t.Helper()
	rng := rand.New(rand.NewPCG(11, 42))
	values := make([]*float64, n)
	level := 20.0
	for i := range values {
		level += 0.5 * rng.NormFloat64()
		v := level + rng.NormFloat64()
		values[i] = &v
	}
	values[7], values[23] = nil, nil

	noSlope := false
	cfg := Config{
		DataDir: ".",
		Datasets: []Dataset{{
			Name:       "walk",
			Values:     values,
			Structural: StructuralSpec{Slope: &noSlope},
		}},
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	require.NoError(t, cmd.Execute(), stderr.String())
	return stdout.Bytes()
}

func TestDecomposeCommand(t *testing.T) {
	path := writeConfig(t, 60)
	out := run(t, "decompose", "--config", path, "--log-level", "error")

	var results []DecompositionResult
	require.NoError(t, json.Unmarshal(out, &results))
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, "walk", res.Name)
	assert.Equal(t, 60, res.NObs)
	assert.Equal(t, 2, res.Missing)
	assert.Nil(t, res.Slope)
	assert.Nil(t, res.Observed[7])
	assert.Nil(t, res.Irregular[7])
	require.NotNil(t, res.Trend[7], "the trend is smoothed through gaps")

	for i, obs := range res.Observed {
		if obs == nil {
			continue
		}
		sum := *res.Trend[i] + *res.Seasonal[i] + *res.Cycle[i] + *res.Irregular[i]
		assert.InDelta(t, *obs, sum, 1e-8, "t=%d", i)
	}
	assert.False(t, math.IsNaN(res.LogLik))
}

func TestForecastCommand(t *testing.T) {
	path := writeConfig(t, 80)
	out := run(t, "forecast", "-c", path, "-n", "walk", "-p", "2", "--confidence", "0.9", "--log-level", "error")

	var results []DatasetResult
	require.NoError(t, json.Unmarshal(out, &results))
	require.Len(t, results, 1)
	res := results[0]

	size := testSize(80, 0)
	assert.Len(t, res.TestData, size)
	assert.Len(t, res.TrainData, 80-size)
	assert.Equal(t, makeRange(80-size+1, 80), res.TestIndex)
	assert.Contains(t, res.Stationarity, "ndiffs")
	assert.NotEmpty(t, res.ACF)

	require.NotEmpty(t, res.Models)
	names := map[string]bool{}
	for _, m := range res.Models {
		names[m.ModelName] = true
		require.Len(t, m.Forecasts, size, m.ModelName)
		for h := range m.Forecasts {
			require.NotNil(t, m.Lower[h])
			require.NotNil(t, m.Upper[h])
			assert.Less(t, *m.Lower[h], m.Forecasts[h])
			assert.Greater(t, *m.Upper[h], m.Forecasts[h])
		}
	}
	assert.True(t, names["Auto-ARIMA"])
}

func TestUnknownDataset(t *testing.T) {
	path := writeConfig(t, 30)
	cmd := NewCmd()
	cmd.SetArgs([]string{"decompose", "-c", path, "-n", "missing"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), `unknown dataset "missing"`)
}
