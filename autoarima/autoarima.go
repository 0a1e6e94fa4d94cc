// Package autoarima implements automatic ARIMA model selection.
package autoarima

import (
	"context"
	"errors"
	"math"
	"runtime"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/statespace/arima"
	"github.com/sartorproj/statespace/sarima"
	"github.com/sartorproj/statespace/stats"
	"github.com/sartorproj/statespace/timeseries"
)

// ErrNoModel is returned when no candidate could be fitted.
var ErrNoModel = errors.New("autoarima: no candidate model could be fitted")

// Config holds configuration for auto ARIMA search.
type Config struct {
	MaxP        int    // Maximum AR order (default: 5)
	MaxD        int    // Maximum differencing order (default: 2)
	MaxQ        int    // Maximum MA order (default: 5)
	MaxSP       int    // Maximum seasonal AR order (default: 2)
	MaxSD       int    // Maximum seasonal differencing order (default: 1)
	MaxSQ       int    // Maximum seasonal MA order (default: 2)
	Seasonal    bool   // Whether to consider seasonal models
	SeasonalM   int    // Seasonal period (required if Seasonal=true)
	Stepwise    bool   // Use stepwise search instead of exhaustive
	Criterion   string // Information criterion: "aic", "aicc" or "bic" (default: "aic")
	Trace       bool   // Log every fitted candidate at Info level
	StationTest string // Stationarity test: "adf" or "kpss" (default: "kpss")

	// D and SD fix the differencing orders when non-negative; -1 lets the
	// unit-root and seasonal-strength tests choose.
	D  int
	SD int

	// Parallelism bounds the number of candidates fitted at once
	// (default: GOMAXPROCS).
	Parallelism int
	Logger      log.FieldLogger
}

// DefaultConfig returns the default auto ARIMA configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxP:        5,
		MaxD:        2,
		MaxQ:        5,
		MaxSP:       2,
		MaxSD:       1,
		MaxSQ:       2,
		Seasonal:    false,
		Stepwise:    true,
		Criterion:   "aic",
		StationTest: "kpss",
		D:           -1,
		SD:          -1,
		Parallelism: runtime.GOMAXPROCS(0),
	}
}

// Result represents the result of auto ARIMA model selection.
type Result struct {
	// Non-seasonal model (if no seasonality)
	Model *arima.Model
	// Seasonal model (if seasonal)
	SeasonalModel *sarima.Model

	// Best parameters found
	P  int
	D  int
	Q  int
	SP int
	SD int
	SQ int
	M  int

	// Model metrics
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	Criterion float64

	// Search information
	ModelsEvaluated int
	ModelsFailed    int
	IsSeasonal      bool
}

// AutoARIMA automatically selects the best ARIMA or SARIMA model.
func AutoARIMA(series *timeseries.Series, config *Config) (*Result, error) {
	return AutoARIMAContext(context.Background(), series, config)
}

// AutoARIMAContext is AutoARIMA with cancellation between candidate fits.
func AutoARIMAContext(ctx context.Context, series *timeseries.Series, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	seasonal := config.Seasonal && config.SeasonalM > 1

	sd := 0
	if seasonal {
		sd = config.SD
		if sd < 0 {
			sd = stats.NSDiffs(series, config.SeasonalM, config.MaxSD)
		}
	}
	d := config.D
	if d < 0 {
		// unit-root tests run on the seasonally differenced series
		adjusted := series
		for range sd {
			adjusted = adjusted.SeasonalDiff(config.SeasonalM)
		}
		d = stats.NDiffs(adjusted, config.MaxD, config.StationTest)
	}
	logger.WithFields(log.Fields{
		"d":        d,
		"sd":       sd,
		"seasonal": seasonal,
	}).Debug("autoarima: differencing selected")

	s := &search{
		series:   series,
		config:   config,
		logger:   logger,
		seasonal: seasonal,
		d:        d,
		sd:       sd,
		seen:     map[sarima.Order]bool{},
		best:     candidate{criterion: math.Inf(1)},
	}
	var err error
	if config.Stepwise {
		err = s.stepwise(ctx)
	} else {
		err = s.exhaustive(ctx)
	}
	if err != nil {
		return nil, err
	}
	if s.best.result == nil {
		return nil, ErrNoModel
	}

	r := s.best.result
	r.ModelsEvaluated = s.evaluated
	r.ModelsFailed = s.failed
	logger.WithFields(log.Fields{
		"order":     s.best.order.String(),
		"criterion": r.Criterion,
		"evaluated": s.evaluated,
		"failed":    s.failed,
	}).Info("autoarima: selected model")
	return r, nil
}

type candidate struct {
	order     sarima.Order
	criterion float64
	result    *Result
	err       error
}

type search struct {
	series   *timeseries.Series
	config   *Config
	logger   log.FieldLogger
	seasonal bool
	d, sd    int

	seen      map[sarima.Order]bool
	best      candidate
	evaluated int
	failed    int
}

func (s *search) order(p, q, sp, sq int) sarima.Order {
	o := sarima.Order{P: p, D: s.d, Q: q, SD: s.sd, M: 1}
	if s.seasonal {
		o.SP, o.SQ, o.M = sp, sq, s.config.SeasonalM
	}
	return o
}

func (s *search) allowed(o sarima.Order) bool {
	c := s.config
	return o.P >= 0 && o.P <= c.MaxP && o.Q >= 0 && o.Q <= c.MaxQ &&
		o.SP >= 0 && o.SP <= c.MaxSP && o.SQ >= 0 && o.SQ <= c.MaxSQ
}

// evaluate fits every new allowed order concurrently and folds the results
// into the incumbent in slice order. It reports whether the incumbent
// changed.
func (s *search) evaluate(ctx context.Context, orders []sarima.Order) (bool, error) {
	var batch []sarima.Order
	for _, o := range orders {
		if s.allowed(o) && !s.seen[o] {
			s.seen[o] = true
			batch = append(batch, o)
		}
	}
	if len(batch) == 0 {
		return false, nil
	}

	results := make([]candidate, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.config.Parallelism))
	for i, o := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.fit(o)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	improved := false
	for _, c := range results {
		if c.err != nil {
			s.failed++
			s.logger.WithFields(log.Fields{
				"order": c.order.String(),
				"error": c.err,
			}).Debug("autoarima: candidate failed")
			continue
		}
		s.evaluated++
		entry := s.logger.WithFields(log.Fields{
			"order":     c.order.String(),
			"criterion": c.criterion,
		})
		if s.config.Trace {
			entry.Info("autoarima: candidate fitted")
		} else {
			entry.Debug("autoarima: candidate fitted")
		}
		if c.criterion < s.best.criterion {
			s.best = c
			improved = true
		}
	}
	return improved, nil
}

func (s *search) fit(o sarima.Order) candidate {
	c := candidate{order: o}
	if !s.seasonal {
		m := arima.New(o.P, o.D, o.Q)
		m.Logger = s.logger
		if c.err = m.Fit(s.series); c.err != nil {
			return c
		}
		c.result = &Result{
			Model: m,
			P:     o.P, D: o.D, Q: o.Q,
			AIC: m.AIC, AICc: m.AICc, BIC: m.BIC, LogLik: m.LogLik,
		}
	} else {
		m := sarima.New(o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
		m.Logger = s.logger
		if c.err = m.Fit(s.series); c.err != nil {
			return c
		}
		c.result = &Result{
			SeasonalModel: m,
			P:             o.P, D: o.D, Q: o.Q,
			SP: o.SP, SD: o.SD, SQ: o.SQ, M: o.M,
			AIC: m.AIC, AICc: m.AICc, BIC: m.BIC, LogLik: m.LogLik,
			IsSeasonal: true,
		}
	}
	c.criterion = s.criterion(c.result)
	if math.IsNaN(c.criterion) {
		c.err = errors.New("autoarima: non-finite information criterion")
		return c
	}
	c.result.Criterion = c.criterion
	return c
}

func (s *search) criterion(r *Result) float64 {
	switch s.config.Criterion {
	case "bic":
		return r.BIC
	case "aicc":
		return r.AICc
	default:
		return r.AIC
	}
}

// exhaustive fits the full grid of orders.
func (s *search) exhaustive(ctx context.Context) error {
	c := s.config
	var orders []sarima.Order
	for p := 0; p <= c.MaxP; p++ {
		for q := 0; q <= c.MaxQ; q++ {
			if !s.seasonal {
				orders = append(orders, s.order(p, q, 0, 0))
				continue
			}
			for sp := 0; sp <= c.MaxSP; sp++ {
				for sq := 0; sq <= c.MaxSQ; sq++ {
					orders = append(orders, s.order(p, q, sp, sq))
				}
			}
		}
	}
	_, err := s.evaluate(ctx, orders)
	return err
}

// stepwise starts from a handful of simple models and moves to the best
// neighbour until no neighbour improves the criterion.
func (s *search) stepwise(ctx context.Context) error {
	start := []sarima.Order{
		s.order(2, 2, 1, 1),
		s.order(0, 0, 0, 0),
		s.order(1, 0, 1, 0),
		s.order(0, 1, 0, 1),
	}
	if _, err := s.evaluate(ctx, start); err != nil {
		return err
	}

	for s.best.result != nil {
		b := s.best.order
		neighbours := []sarima.Order{
			s.order(b.P+1, b.Q, b.SP, b.SQ),
			s.order(b.P-1, b.Q, b.SP, b.SQ),
			s.order(b.P, b.Q+1, b.SP, b.SQ),
			s.order(b.P, b.Q-1, b.SP, b.SQ),
			s.order(b.P+1, b.Q+1, b.SP, b.SQ),
			s.order(b.P-1, b.Q-1, b.SP, b.SQ),
		}
		if s.seasonal {
			neighbours = append(neighbours,
				s.order(b.P, b.Q, b.SP+1, b.SQ),
				s.order(b.P, b.Q, b.SP-1, b.SQ),
				s.order(b.P, b.Q, b.SP, b.SQ+1),
				s.order(b.P, b.Q, b.SP, b.SQ-1),
			)
		}
		improved, err := s.evaluate(ctx, neighbours)
		if err != nil {
			return err
		}
		if !improved {
			break
		}
	}
	return nil
}

// Predict generates forecasts using the selected model.
func (r *Result) Predict(steps int) ([]float64, error) {
	f, _, _, err := r.PredictWithInterval(steps, 0.95)
	return f, err
}

// PredictWithInterval generates forecasts with prediction intervals using
// the selected model.
func (r *Result) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if r.IsSeasonal && r.SeasonalModel != nil {
		return r.SeasonalModel.PredictWithInterval(steps, confidence)
	}
	if r.Model != nil {
		return r.Model.PredictWithInterval(steps, confidence)
	}
	return nil, nil, nil, ErrNoModel
}

// Residuals returns the model residuals.
func (r *Result) Residuals() []float64 {
	if r.IsSeasonal && r.SeasonalModel != nil {
		return r.SeasonalModel.Residuals()
	}
	if r.Model != nil {
		return r.Model.Residuals()
	}
	return nil
}

// Order returns the selected order; M is 1 for non-seasonal models.
func (r *Result) Order() sarima.Order {
	m := r.M
	if !r.IsSeasonal {
		m = 1
	}
	return sarima.Order{P: r.P, D: r.D, Q: r.Q, SP: r.SP, SD: r.SD, SQ: r.SQ, M: m}
}
