// Package timeseries provides the Series type fed to the models and
// filters, together with CSV input and output.
//
// # Missing Values
//
// A series carries an explicit mask. NaN values passed to New are marked
// missing, and NewWithMissing takes the mask directly:
//
//	series, err := timeseries.NewWithMissing(values, missing)
//	n := series.ObservedCount()
//	obs := series.Observed() // observed values in time order
//
// Summary statistics skip missing positions. A derived value is missing
// whenever one of its inputs is: a difference across a gap, a moving
// average over a window touching one, a logarithm of a missing value.
// Series implements kalman.Observations through At, so the filters skip
// the update step wherever a value is missing.
//
// # Transformations
//
//	dy := series.Diff()               // y_t − y_{t−1}
//	d2 := series.DiffN(2)             // second difference
//	sy := series.SeasonalDiff(12)     // y_t − y_{t−12}
//	train := series.Slice(0, n-12)    // keeps timestamps and mask
//	z := series.Log().Normalize()
//
// # CSV
//
// LoadCSV and LoadCSVFromReader read one value column, chosen by
// CSVOptions.ValueColumn or by the conventional names y and value, with an
// optional date column and an optional id column to filter on:
//
//	series, err := timeseries.LoadCSVFiltered("tourism.csv", "region", "North", "trips")
//
// Cells holding NA, NaN, null or nothing are read as missing unless
// CSVOptions.KeepMissing is false, in which case their rows are dropped.
// WriteCSV and SaveCSV write missing values back as NA.
package timeseries
