// Package autoarima selects ARIMA and SARIMA orders by information
// criterion.
//
// The differencing orders are fixed first. Unless Config.D and Config.SD
// are set, NSDiffs chooses the seasonal order from the seasonal strength and
// NDiffs the regular one from a unit-root test on the seasonally differenced
// series. The AR and MA orders are then searched with every candidate
// estimated by exact maximum likelihood:
//
//	cfg := autoarima.DefaultConfig()
//	cfg.Seasonal, cfg.SeasonalM = true, 12
//	cfg.Criterion = "aicc"
//	res, err := autoarima.AutoARIMAContext(ctx, series, cfg)
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Order(), res.AICc, res.ModelsEvaluated)
//	forecasts, lower, upper, _ := res.PredictWithInterval(12, 0.95)
//
// # Search
//
// The stepwise search (the default) starts from four orders and moves to
// the neighbours of the current best model, changing one order by one, until
// no neighbour improves the criterion. Setting Stepwise to false fits every
// order up to the configured maxima.
//
// Each round of candidates is fitted concurrently, at most Parallelism at a
// time. Results are compared in candidate order, so the selected model does
// not depend on scheduling, and an order is never fitted twice. Candidates
// whose likelihood cannot be evaluated are skipped and counted in
// ModelsFailed; ErrNoModel is returned when none fits. With Trace set,
// every candidate is logged at Info level.
package autoarima
