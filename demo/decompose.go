package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sartorproj/statespace/structural"
)

// DecompositionResult holds the structural decomposition of one dataset.
type DecompositionResult struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	NObs        int               `json:"n_obs"`
	Missing     int               `json:"missing"`
	Params      structural.Params `json:"params"`
	LogLik      float64           `json:"loglik"`
	AIC         float64           `json:"aic"`
	BIC         float64           `json:"bic"`

	Observed           []*float64 `json:"observed"`
	Trend              []*float64 `json:"trend"`
	Slope              []*float64 `json:"slope,omitempty"`
	Seasonal           []*float64 `json:"seasonal"`
	Cycle              []*float64 `json:"cycle"`
	Irregular          []*float64 `json:"irregular"`
	SeasonallyAdjusted []*float64 `json:"seasonally_adjusted"`
}

func doDecompose(cmd *cobra.Command, args []string) error {
	cfg, selected, err := datasets(cmd)
	if err != nil {
		return err
	}

	out := []DecompositionResult{}
	for _, ds := range selected {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		entry := log.WithField("dataset", ds.Name)
		res, err := decompose(cfg.DataDir, ds)
		if err != nil {
			entry.WithError(err).Error("decompose failed")
			continue
		}
		entry.WithFields(log.Fields{
			"n_obs":  res.NObs,
			"loglik": res.LogLik,
		}).Info("decomposed")
		out = append(out, *res)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func decompose(dataDir string, ds Dataset) (*DecompositionResult, error) {
	series, err := ds.Load(dataDir)
	if err != nil {
		return nil, err
	}
	model, err := structural.Fit(series, ds.Spec(), structural.FitConfig{})
	if err != nil {
		return nil, err
	}
	dec, err := structural.Decompose(series, model)
	if err != nil {
		return nil, err
	}

	res := &DecompositionResult{
		Name:               ds.Name,
		Description:        ds.Description,
		NObs:               series.Len(),
		Missing:            series.Len() - series.ObservedCount(),
		Params:             model.Params,
		LogLik:             model.Likelihood.LogLikelihood(),
		AIC:                model.AIC,
		BIC:                model.BIC,
		Observed:           nullable(dec.Observed),
		Trend:              nullable(dec.Trend),
		Seasonal:           nullable(dec.Seasonal),
		Cycle:              nullable(dec.Cycle),
		Irregular:          nullable(dec.Irregular),
		SeasonallyAdjusted: nullable(dec.SeasonallyAdjusted),
	}
	if dec.Slope != nil {
		res.Slope = nullable(dec.Slope)
	}
	return res, nil
}
