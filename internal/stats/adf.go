package stats

import "math"

// MinADFObservations is the fewest points the Dickey-Fuller regression will
// accept; shorter series report insufficient data.
const MinADFObservations = 20

// ADFResult holds the outcome of an augmented Dickey-Fuller unit-root test.
type ADFResult struct {
	Stat    float64 // t-statistic on the lagged level coefficient
	PValue  float64 // MacKinnon approximate p-value (constant-only regression)
	UsedLag int
	NObs    int
}

// Stationary reports whether the null of a unit root is rejected at the
// given significance level.
func (r ADFResult) Stationary(alpha float64) bool {
	return r.PValue < alpha
}

// ADF runs an augmented Dickey-Fuller test with a constant term on the
// series. When maxLag is negative the lag order is chosen automatically by
// minimizing AIC over a common sample, mirroring the usual Schwert bound for
// the search ceiling. The test is fully deterministic: identical input always
// yields identical statistics.
func ADF(series []float64, maxLag int) (ADFResult, bool) {
	n := len(series)
	if n < MinADFObservations {
		return ADFResult{}, false
	}

	if maxLag < 0 {
		maxLag = int(math.Ceil(12.0 * math.Pow(float64(n)/100.0, 0.25)))
	}
	if limit := (n - 4) / 2; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		maxLag = 0
	}

	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = series[i] - series[i-1]
	}

	// Lag search over the common sample so AIC values are comparable.
	bestLag := -1
	bestAIC := math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		fit, ok := adfFit(series, diffs, lag, maxLag+1)
		if !ok {
			continue
		}
		aic := float64(fit.nobs)*math.Log(fit.ssr/float64(fit.nobs)) + 2*float64(fit.k)
		if aic < bestAIC {
			bestAIC = aic
			bestLag = lag
		}
	}
	if bestLag < 0 {
		return ADFResult{}, false
	}

	// Refit at the selected lag using every usable observation.
	fit, ok := adfFit(series, diffs, bestLag, bestLag+1)
	if !ok {
		return ADFResult{}, false
	}

	return ADFResult{
		Stat:    fit.tstat,
		PValue:  mackinnonP(fit.tstat),
		UsedLag: bestLag,
		NObs:    fit.nobs,
	}, true
}

type adfFitResult struct {
	tstat float64
	ssr   float64
	nobs  int
	k     int
}

// adfFit regresses Δy_t on [y_{t-1}, Δy_{t-1}..Δy_{t-lag}, 1] for t in
// [start, n). Returns false when the sample is too short or the design is
// degenerate (a flat series), which callers treat as insufficient data.
func adfFit(series, diffs []float64, lag, start int) (adfFitResult, bool) {
	n := len(series)
	k := lag + 2
	nobs := n - start
	if nobs <= k {
		return adfFitResult{}, false
	}

	row := make([]float64, k)
	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)

	fillRow := func(t int) float64 {
		row[0] = series[t-1]
		for j := 1; j <= lag; j++ {
			row[j] = diffs[t-1-j]
		}
		row[k-1] = 1
		return diffs[t-1]
	}

	for t := start; t < n; t++ {
		resp := fillRow(t)
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * resp
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	coef, inv, ok := solveWithInverse(xtx, xty)
	if !ok {
		return adfFitResult{}, false
	}

	var ssr float64
	for t := start; t < n; t++ {
		resp := fillRow(t)
		pred := 0.0
		for i := 0; i < k; i++ {
			pred += coef[i] * row[i]
		}
		resid := resp - pred
		ssr += resid * resid
	}
	if ssr <= 0 {
		return adfFitResult{}, false
	}

	sigma2 := ssr / float64(nobs-k)
	se := math.Sqrt(sigma2 * inv[0])
	if se == 0 || math.IsNaN(se) {
		return adfFitResult{}, false
	}

	return adfFitResult{
		tstat: coef[0] / se,
		ssr:   ssr,
		nobs:  nobs,
		k:     k,
	}, true
}

// solveWithInverse solves A·x = b by Gauss-Jordan elimination with partial
// pivoting and also returns the diagonal of A⁻¹, which the t-statistic needs
// for the coefficient standard error.
func solveWithInverse(a [][]float64, b []float64) (x []float64, invDiag []float64, ok bool) {
	k := len(a)
	// Augment [A | b | I].
	aug := make([][]float64, k)
	for i := 0; i < k; i++ {
		aug[i] = make([]float64, 2*k+1)
		copy(aug[i], a[i])
		aug[i][k] = b[i]
		aug[i][k+1+i] = 1
	}

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, nil, false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		pv := aug[col][col]
		for j := col; j <= 2*k; j++ {
			aug[col][j] /= pv
		}
		for r := 0; r < k; r++ {
			if r == col || aug[r][col] == 0 {
				continue
			}
			factor := aug[r][col]
			for j := col; j <= 2*k; j++ {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}

	x = make([]float64, k)
	invDiag = make([]float64, k)
	for i := 0; i < k; i++ {
		x[i] = aug[i][k]
		invDiag[i] = aug[i][k+1+i]
	}
	return x, invDiag, true
}

// MacKinnon (1994) approximate asymptotic p-value for the Dickey-Fuller
// t-statistic in the constant-only, single-series case.
var (
	dfTauSmallP = []float64{2.1659, 1.4412, 0.038269}
	dfTauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.0024174}
)

const (
	dfTauMax  = 2.74
	dfTauMin  = -18.83
	dfTauStar = -1.61
)

func mackinnonP(stat float64) float64 {
	switch {
	case stat > dfTauMax:
		return 1.0
	case stat < dfTauMin:
		return 0.0
	}
	coefs := dfTauLargeP
	if stat <= dfTauStar {
		coefs = dfTauSmallP
	}
	v := 0.0
	for i := len(coefs) - 1; i >= 0; i-- {
		v = v*stat + coefs[i]
	}
	return normCDF(v)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
