package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sartorproj/statespace/structural"
	"github.com/sartorproj/statespace/timeseries"
)

// Config is the dataset file read by every command.
type Config struct {
	DataDir  string    `yaml:"data_dir"`
	Datasets []Dataset `yaml:"datasets"`
}

// Dataset defines a time series dataset to analyze
type Dataset struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	File        string  `yaml:"file"`          // CSV filename, relative to the data directory
	Column      string  `yaml:"column"`        // Value column name
	FilterCol   string  `yaml:"filter_column"` // Column to filter on (optional)
	FilterVal   string  `yaml:"filter_value"`  // Value to filter for (optional)
	Period      int     `yaml:"period"`        // Seasonal period (0 = non-seasonal)
	Scale       float64 `yaml:"scale"`         // Scale factor for values (e.g., 1e-6 for millions)
	SkipFirst   int     `yaml:"skip_first"`    // Number of initial observations to skip
	MaxObs      int     `yaml:"max_obs"`       // Max observations to use (0 = all, from end)

	// Values holds the data inline instead of File; null entries are
	// missing.
	Values []*float64 `yaml:"values"`

	Structural StructuralSpec `yaml:"structural"`
}

// StructuralSpec selects the optional components of the structural model
// fitted by decompose and forecast.
type StructuralSpec struct {
	Slope       *bool   `yaml:"slope"` // default true
	Cycle       bool    `yaml:"cycle"`
	CyclePeriod float64 `yaml:"cycle_period"`
}

// Spec returns the structural specification of the dataset.
func (ds Dataset) Spec() structural.Spec {
	slope := ds.Structural.Slope == nil || *ds.Structural.Slope
	return structural.Spec{
		Slope:       slope,
		Period:      ds.Period,
		Cycle:       ds.Structural.Cycle,
		CyclePeriod: ds.Structural.CyclePeriod,
	}
}

// LoadConfig reads a YAML dataset file. A relative data_dir is resolved
// against the directory of the file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := ParseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(filepath.Dir(path), cfg.DataDir)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a dataset file.
func ParseConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	if len(cfg.Datasets) == 0 {
		return nil, errors.New("no datasets defined")
	}
	for i, ds := range cfg.Datasets {
		switch {
		case ds.Name == "":
			return nil, fmt.Errorf("dataset %d has no name", i)
		case ds.File == "" && len(ds.Values) == 0:
			return nil, fmt.Errorf("dataset %q needs a file or inline values", ds.Name)
		case ds.File != "" && ds.Column == "":
			return nil, fmt.Errorf("dataset %q: file %s needs a column", ds.Name, ds.File)
		case ds.Period < 0:
			return nil, fmt.Errorf("dataset %q: negative period", ds.Name)
		}
	}
	return cfg, nil
}

// Select returns the datasets with the given names, all of them when names
// is empty.
func (c *Config) Select(names []string) ([]Dataset, error) {
	if len(names) == 0 {
		return c.Datasets, nil
	}
	var out []Dataset
	for _, name := range names {
		i := slices.IndexFunc(c.Datasets, func(ds Dataset) bool { return ds.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("unknown dataset %q", name)
		}
		out = append(out, c.Datasets[i])
	}
	return out, nil
}

// Load reads the dataset and applies its transformations.
func (ds Dataset) Load(dataDir string) (*timeseries.Series, error) {
	var series *timeseries.Series
	var err error

	switch {
	case len(ds.Values) > 0:
		values := make([]float64, len(ds.Values))
		missing := make([]bool, len(ds.Values))
		for i, v := range ds.Values {
			if v == nil {
				missing[i] = true
				continue
			}
			values[i] = *v
		}
		series, err = timeseries.NewWithMissing(values, missing)
	case ds.FilterCol != "":
		series, err = timeseries.LoadCSVFiltered(filepath.Join(dataDir, ds.File), ds.FilterCol, ds.FilterVal, ds.Column)
	default:
		series, err = timeseries.LoadCSVColumn(filepath.Join(dataDir, ds.File), ds.Column)
	}
	if err != nil {
		return nil, err
	}
	series.Name = ds.Name

	if ds.SkipFirst > 0 && series.Len() > ds.SkipFirst {
		series = series.Slice(ds.SkipFirst, series.Len())
	}
	if ds.MaxObs > 0 && series.Len() > ds.MaxObs {
		series = series.Slice(series.Len()-ds.MaxObs, series.Len())
	}
	if ds.Scale != 0 {
		for i := range series.Values {
			series.Values[i] *= ds.Scale
		}
	}
	return series, nil
}
