// Package structural implements basic structural time series models:
// a stochastic level with optional slope, dummy seasonal and damped
// cycle, plus an irregular term.
//
// Build casts a Spec and its variances in state space form together with
// the loading of every component. Fit estimates the variances by maximum
// likelihood on the diffuse Kalman filter, and Decompose recovers trend,
// seasonal, cycle and irregular from the smoothed state.
//
//	model, err := structural.Fit(series, structural.Spec{Slope: true, Period: 12}, structural.FitConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dec, _ := structural.Decompose(series, model)
//	fmt.Println(dec.Trend, dec.Seasonal)
//
// Missing observations are allowed everywhere; Decompose interpolates them
// through the smoother.
package structural
