package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sartorproj/statespace/arima"
	"github.com/sartorproj/statespace/autoarima"
	"github.com/sartorproj/statespace/sarima"
	"github.com/sartorproj/statespace/stats"
	"github.com/sartorproj/statespace/structural"
	"github.com/sartorproj/statespace/timeseries"
)

// ForecastResult holds model results for JSON export
type ForecastResult struct {
	ModelName       string     `json:"model_name"`
	Order           string     `json:"order"`
	AIC             float64    `json:"aic"`
	AICc            float64    `json:"aicc"`
	BIC             float64    `json:"bic"`
	RMSE            float64    `json:"rmse"`
	MAE             float64    `json:"mae"`
	MAPE            float64    `json:"mape"`
	Forecasts       []float64  `json:"forecasts"`
	Lower           []*float64 `json:"lower"`
	Upper           []*float64 `json:"upper"`
	ModelsEvaluated int        `json:"models_evaluated,omitempty"`
}

// DatasetResult holds analysis results for a dataset
type DatasetResult struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	NObs         int              `json:"n_obs"`
	TrainData    []*float64       `json:"train_data"`
	TestData     []*float64       `json:"test_data"`
	TrainIndex   []int            `json:"train_index"`
	TestIndex    []int            `json:"test_index"`
	Models       []ForecastResult `json:"models"`
	Stationarity map[string]any   `json:"stationarity"`
	ACF          []float64        `json:"acf"`
	PACF         []float64        `json:"pacf"`
}

type forecastSettings struct {
	confidence  float64
	parallelism int
}

func doForecast(cmd *cobra.Command, args []string) error {
	cfg, selected, err := datasets(cmd)
	if err != nil {
		return err
	}
	var fs forecastSettings
	if fs.confidence, err = cmd.Flags().GetFloat64("confidence"); err != nil {
		return err
	}
	if fs.parallelism, err = cmd.Flags().GetInt("parallelism"); err != nil {
		return err
	}

	out := []DatasetResult{}
	for _, ds := range selected {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		res, err := analyze(cmd, cfg.DataDir, ds, fs)
		if err != nil {
			log.WithField("dataset", ds.Name).WithError(err).Error("forecast failed")
			continue
		}
		out = append(out, *res)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

// analyze performs complete analysis on a dataset
func analyze(cmd *cobra.Command, dataDir string, ds Dataset, fs forecastSettings) (*DatasetResult, error) {
	entry := log.WithField("dataset", ds.Name)
	series, err := ds.Load(dataDir)
	if err != nil {
		return nil, err
	}

	n := series.Len()
	size := testSize(n, ds.Period)
	trainSize := n - size
	train := series.Slice(0, trainSize)
	test := series.Slice(trainSize, n)
	entry.WithFields(log.Fields{
		"n_obs": n,
		"train": trainSize,
		"test":  size,
	}).Info("loaded")

	result := &DatasetResult{
		Name:         ds.Name,
		Description:  ds.Description,
		NObs:         n,
		TrainData:    nullable(train.Values),
		TestData:     nullable(test.Values),
		TrainIndex:   makeRange(1, trainSize),
		TestIndex:    makeRange(trainSize+1, n),
		Models:       []ForecastResult{},
		Stationarity: map[string]any{},
	}

	if adf := stats.ADF(train, 0); adf != nil {
		result.Stationarity["adf_pvalue"] = adf.PValue
		result.Stationarity["adf_stationary"] = adf.IsStationary
	}
	if kpss := stats.KPSS(train, "c", 0); kpss != nil {
		result.Stationarity["kpss_pvalue"] = kpss.PValue
		result.Stationarity["kpss_stationary"] = kpss.IsStationary
	}
	result.Stationarity["ndiffs"] = stats.NDiffs(train, 2, "kpss")

	maxLag := min(24, trainSize/2)
	result.ACF = stats.ACF(train, maxLag)
	result.PACF = stats.PACF(train, maxLag)

	type candidate struct {
		name, order string
		fit         func() (ForecastResult, error)
	}
	var candidates []candidate
	if ds.Period > 1 {
		for _, o := range []sarima.Order{
			{P: 1, SP: 1, SD: 1, M: ds.Period},
			{Q: 1, D: 1, SQ: 1, SD: 1, M: ds.Period}, // Airline model
			{P: 1, D: 1, Q: 1, SP: 1, SD: 1, SQ: 1, M: ds.Period},
		} {
			candidates = append(candidates, candidate{"SARIMA", o.String(), func() (ForecastResult, error) {
				m := sarima.New(o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
				if err := m.Fit(train); err != nil {
					return ForecastResult{}, err
				}
				f, lo, hi, err := m.PredictWithInterval(size, fs.confidence)
				return ForecastResult{AIC: m.AIC, AICc: m.AICc, BIC: m.BIC, Forecasts: f, Lower: nullable(lo), Upper: nullable(hi)}, err
			}})
		}
	} else {
		for _, o := range []arima.Order{{D: 1}, {P: 1, D: 1}, {P: 1, D: 1, Q: 1}} {
			candidates = append(candidates, candidate{"ARIMA", fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q), func() (ForecastResult, error) {
				m := arima.New(o.P, o.D, o.Q)
				if err := m.Fit(train); err != nil {
					return ForecastResult{}, err
				}
				f, lo, hi, err := m.PredictWithInterval(size, fs.confidence)
				return ForecastResult{AIC: m.AIC, AICc: m.AICc, BIC: m.BIC, Forecasts: f, Lower: nullable(lo), Upper: nullable(hi)}, err
			}})
		}
	}
	candidates = append(candidates,
		candidate{"Auto-ARIMA", "", func() (ForecastResult, error) {
			return autoForecast(cmd, train, ds.Period, size, fs)
		}},
		candidate{"Structural", "", func() (ForecastResult, error) {
			return structuralForecast(train, ds.Spec(), size, fs.confidence)
		}},
	)

	for _, c := range candidates {
		res, err := c.fit()
		if err != nil {
			entry.WithFields(log.Fields{"model": c.name, "order": c.order}).WithError(err).Warn("model failed")
			continue
		}
		res.ModelName = c.name
		if res.Order == "" {
			res.Order = c.order
		}
		res.RMSE, res.MAE, res.MAPE = metrics(test.Values, res.Forecasts)
		entry.WithFields(log.Fields{
			"model": res.ModelName,
			"order": res.Order,
			"rmse":  res.RMSE,
		}).Info("forecast")
		result.Models = append(result.Models, res)
	}
	return result, nil
}

func autoForecast(cmd *cobra.Command, train *timeseries.Series, period, steps int, fs forecastSettings) (ForecastResult, error) {
	cfg := autoarima.DefaultConfig()
	cfg.MaxP, cfg.MaxQ, cfg.MaxSP, cfg.MaxSQ = 3, 3, 1, 1
	cfg.Criterion = "aicc"
	cfg.Seasonal = period > 1
	cfg.SeasonalM = period
	if fs.parallelism > 0 {
		cfg.Parallelism = fs.parallelism
	}
	auto, err := autoarima.AutoARIMAContext(cmd.Context(), train, cfg)
	if err != nil {
		return ForecastResult{}, err
	}
	f, lo, hi, err := auto.PredictWithInterval(steps, fs.confidence)
	return ForecastResult{
		Order: auto.Order().String(),
		AIC:   auto.AIC, AICc: auto.AICc, BIC: auto.BIC,
		Forecasts: f, Lower: nullable(lo), Upper: nullable(hi),
		ModelsEvaluated: auto.ModelsEvaluated,
	}, err
}

func structuralForecast(train *timeseries.Series, spec structural.Spec, steps int, confidence float64) (ForecastResult, error) {
	m, err := structural.Fit(train, spec, structural.FitConfig{})
	if err != nil {
		return ForecastResult{}, err
	}
	fc, err := m.Forecast(steps)
	if err != nil {
		return ForecastResult{}, err
	}
	res := ForecastResult{
		Order: fmt.Sprintf("slope=%t period=%d cycle=%t", spec.Slope, spec.Period, spec.Cycle),
		AIC:   m.AIC, AICc: m.AICc, BIC: m.BIC,
		Forecasts: make([]float64, steps),
	}
	lo, hi := make([]float64, steps), make([]float64, steps)
	for h, d := range fc {
		res.Forecasts[h] = d.Mean
		lo[h], hi[h] = d.Interval(confidence)
	}
	res.Lower, res.Upper = nullable(lo), nullable(hi)
	return res, nil
}
