package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/statespace/linalg"
	"github.com/sartorproj/statespace/timeseries"
)

// UnitRootResult is the outcome of an ADF, KPSS or Phillips-Perron test.
type UnitRootResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64 // at 1%, 5% and 10%
	IsStationary bool
}

var dickeyFullerCritical = map[string]float64{
	"1%":  -3.43,
	"5%":  -2.86,
	"10%": -2.57,
}

// ADF performs the augmented Dickey-Fuller test with a constant. The null
// hypothesis is a unit root; a p-value below 0.05 rejects it. Regression
// rows touching a missing value are dropped.
func ADF(series *timeseries.Series, maxLag int) *UnitRootResult {
	n := series.Len()
	if n < 10 {
		return nil
	}
	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	maxLag = min(maxLag, n-2)
	diff := series.Diff()

	// Δy_t = α + β y_{t-1} + Σ γ_j Δy_{t-j} + ε_t, diff.Values[t] = Δy_{t+1}
	var rows [][]float64
	var y []float64
	for t := maxLag; t < diff.Len(); t++ {
		row := make([]float64, 2+maxLag)
		row[0] = 1
		row[1] = series.Values[t]
		ok := !diff.IsMissing(t) && !series.IsMissing(t)
		for j := 1; j <= maxLag && ok; j++ {
			row[1+j] = diff.Values[t-j]
			ok = !diff.IsMissing(t - j)
		}
		if !ok {
			continue
		}
		rows = append(rows, row)
		y = append(y, diff.Values[t])
	}
	if len(y) < 10 {
		return nil
	}

	fit, ok := ols(rows, y)
	if !ok {
		return nil
	}
	stat := fit.coeffs[1] / fit.se[1]
	p := mackinnonPValue(stat)
	return &UnitRootResult{
		Statistic:    stat,
		PValue:       p,
		Lags:         maxLag,
		NObs:         len(y),
		CriticalVals: dickeyFullerCritical,
		IsStationary: p < 0.05,
	}
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test. regression is
// "c" for level or "ct" for trend stationarity. The null hypothesis is
// stationarity; a p-value below 0.05 rejects it. Missing values are
// skipped.
func KPSS(series *timeseries.Series, regression string, nlags int) *UnitRootResult {
	obs := series.Observed()
	n := len(obs)
	if n < 10 {
		return nil
	}
	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	nlags = min(nlags, n-1)

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{1}
		if regression == "ct" {
			rows[i] = append(rows[i], float64(i))
		}
	}
	fit, ok := ols(rows, obs)
	if !ok {
		return nil
	}

	s2 := longRunVariance(fit.resid, nlags)
	if s2 <= 0 {
		s2 = 1e-10
	}
	sum, eta := 0.0, 0.0
	for _, r := range fit.resid {
		sum += r
		eta += sum * sum
	}
	stat := eta / (float64(n) * float64(n) * s2)

	critical := map[string]float64{"10%": 0.347, "5%": 0.463, "1%": 0.739}
	if regression == "ct" {
		critical = map[string]float64{"10%": 0.119, "5%": 0.146, "1%": 0.216}
	}
	p := kpssPValue(stat, regression)
	return &UnitRootResult{
		Statistic:    stat,
		PValue:       p,
		Lags:         nlags,
		NObs:         n,
		CriticalVals: critical,
		IsStationary: p >= 0.05,
	}
}

// PhillipsPerron performs the Phillips-Perron unit-root test, which
// corrects the Dickey-Fuller statistic for serial correlation with a
// Newey-West long-run variance instead of lagged differences.
func PhillipsPerron(series *timeseries.Series, nlags int) *UnitRootResult {
	n := series.Len()
	if n < 10 {
		return nil
	}
	if nlags <= 0 {
		nlags = int(math.Floor(4 * math.Pow(float64(n)/100, 0.25)))
	}

	var rows [][]float64
	var y []float64
	for t := 1; t < n; t++ {
		if series.IsMissing(t) || series.IsMissing(t-1) {
			continue
		}
		rows = append(rows, []float64{1, series.Values[t-1]})
		y = append(y, series.Values[t]-series.Values[t-1])
	}
	m := len(y)
	if m < 10 {
		return nil
	}
	fit, ok := ols(rows, y)
	if !ok {
		return nil
	}

	gamma0 := 0.0
	for _, r := range fit.resid {
		gamma0 += r * r
	}
	gamma0 /= float64(m)
	lambda2 := longRunVariance(fit.resid, nlags)
	if lambda2 <= 0 {
		return nil
	}

	xMean := 0.0
	for _, row := range rows {
		xMean += row[1]
	}
	xMean /= float64(m)
	sxx := 0.0
	for _, row := range rows {
		sxx += (row[1] - xMean) * (row[1] - xMean)
	}

	t := fit.coeffs[1] / fit.se[1]
	correction := (lambda2 - gamma0) * math.Sqrt(float64(m)) / (2 * math.Sqrt(lambda2) * math.Sqrt(sxx))
	stat := math.Sqrt(gamma0/lambda2)*t - correction
	p := mackinnonPValue(stat)
	return &UnitRootResult{
		Statistic:    stat,
		PValue:       p,
		Lags:         nlags,
		NObs:         m,
		CriticalVals: dickeyFullerCritical,
		IsStationary: p < 0.05,
	}
}

// longRunVariance is the Newey-West estimate with Bartlett weights.
func longRunVariance(resid []float64, lags int) float64 {
	n := len(resid)
	s2 := 0.0
	for _, r := range resid {
		s2 += r * r
	}
	s2 /= float64(n)
	for l := 1; l <= lags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += resid[i] * resid[i-l]
		}
		s2 += 2 * (1 - float64(l)/float64(lags+1)) * cov / float64(n)
	}
	return s2
}

type olsFit struct {
	coeffs []float64
	se     []float64
	resid  []float64
}

// ols regresses y on the rows of x through the Cholesky factor of X'X.
func ols(rows [][]float64, y []float64) (olsFit, bool) {
	n := len(y)
	if n == 0 || len(rows) != n {
		return olsFit{}, false
	}
	k := len(rows[0])
	if n <= k {
		return olsFit{}, false
	}
	x := mat.NewDense(n, k, nil)
	for i, row := range rows {
		x.SetRow(i, row)
	}
	yv := mat.NewVecDense(n, y)

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)

	beta, chol, err := linalg.CholeskySolve(&xtx, &xty)
	if err != nil {
		return olsFit{}, false
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return olsFit{}, false
	}

	var resid mat.VecDense
	resid.MulVec(x, beta)
	resid.SubVec(yv, &resid)
	s2 := mat.Dot(&resid, &resid) / float64(n-k)

	fit := olsFit{
		coeffs: make([]float64, k),
		se:     make([]float64, k),
		resid:  make([]float64, n),
	}
	for i := 0; i < k; i++ {
		fit.coeffs[i] = beta.AtVec(i)
		fit.se[i] = math.Sqrt(s2 * inv.At(i, i))
	}
	for i := range fit.resid {
		fit.resid[i] = resid.AtVec(i)
	}
	return fit, true
}

// mackinnonPValue interpolates the asymptotic Dickey-Fuller distribution
// with a constant.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// kpssPValue interpolates the KPSS critical value tables.
func kpssPValue(stat float64, regression string) float64 {
	if regression == "ct" {
		switch {
		case stat > 0.216:
			return 0.01
		case stat > 0.146:
			return 0.05
		case stat > 0.119:
			return 0.10
		default:
			return 0.10 + (0.119-stat)*2
		}
	}
	switch {
	case stat > 0.739:
		return 0.01
	case stat > 0.463:
		return 0.05
	case stat > 0.347:
		return 0.10
	default:
		return 0.10 + (0.347-stat)*0.5
	}
}
