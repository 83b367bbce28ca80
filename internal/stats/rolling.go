package stats

import (
	"math"
	"time"
)

const secondsPerYear = 365 * 24 * 3600

// OLSResult holds the ordinary-least-squares fit of Y on X.
type OLSResult struct {
	Beta  float64 // hedge ratio: units of X offsetting one unit of Y
	Alpha float64 // intercept
	R2    float64
}

// OLSValue is an optional OLSResult for rolling estimation.
type OLSValue struct {
	OLSResult
	Valid bool
}

// OLS regresses y on x with an intercept. It requires at least two points
// and non-zero variance in x; a flat regressor is reported as not computable
// rather than an error.
func OLS(y, x []float64) (OLSResult, bool) {
	n := len(y)
	if n < 2 || len(x) != n {
		return OLSResult{}, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var covXY, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 {
		return OLSResult{}, false
	}

	beta := covXY / varX
	res := OLSResult{
		Beta:  beta,
		Alpha: meanY - beta*meanX,
	}
	if varY > 0 {
		res.R2 = (covXY * covXY) / (varX * varY)
	}
	return res, true
}

// RollingOLS estimates the OLS fit over the trailing window of size w at
// every index. Entries before the window fills, or where x is flat within the
// window, are invalid.
func RollingOLS(y, x []float64, w int) []OLSValue {
	n := len(y)
	out := make([]OLSValue, n)
	if w < 2 || len(x) != n {
		return out
	}
	for t := w - 1; t < n; t++ {
		if res, ok := OLS(y[t-w+1:t+1], x[t-w+1:t+1]); ok {
			out[t] = OLSValue{OLSResult: res, Valid: true}
		}
	}
	return out
}

// RollingSpread computes spread_t = y_t - beta_t*x_t using the hedge ratio
// estimated at the same index, never a look-ahead value.
func RollingSpread(y, x []float64, betas []OLSValue) []Value {
	n := len(y)
	out := make([]Value, n)
	if len(x) != n || len(betas) != n {
		return out
	}
	for t := 0; t < n; t++ {
		if betas[t].Valid {
			out[t] = Some(y[t] - betas[t].Beta*x[t])
		}
	}
	return out
}

// RollingZScore standardizes each observation against the mean and sample
// standard deviation of its trailing window. A window containing any invalid
// observation, or with zero dispersion, yields an invalid output.
func RollingZScore(series []Value, w int) []Value {
	n := len(series)
	out := make([]Value, n)
	if w < 2 {
		return out
	}
	for t := w - 1; t < n; t++ {
		window := series[t-w+1 : t+1]
		mean, sd, ok := meanStddev(window)
		if !ok || sd <= 0 {
			continue
		}
		out[t] = Some((series[t].Float64 - mean) / sd)
	}
	return out
}

// RollingCorrelation computes the Pearson correlation of y and x over the
// trailing window of size w. Valid outputs are always within [-1, 1].
func RollingCorrelation(y, x []float64, w int) []Value {
	n := len(y)
	out := make([]Value, n)
	if w < 2 || len(x) != n {
		return out
	}
	for t := w - 1; t < n; t++ {
		var sumX, sumY float64
		for i := t - w + 1; i <= t; i++ {
			sumX += x[i]
			sumY += y[i]
		}
		meanX := sumX / float64(w)
		meanY := sumY / float64(w)

		var covXY, varX, varY float64
		for i := t - w + 1; i <= t; i++ {
			dx := x[i] - meanX
			dy := y[i] - meanY
			covXY += dx * dy
			varX += dx * dx
			varY += dy * dy
		}
		if varX == 0 || varY == 0 {
			continue
		}
		r := covXY / math.Sqrt(varX*varY)
		out[t] = Some(math.Max(-1, math.Min(1, r)))
	}
	return out
}

// RollingVolatility computes the sample standard deviation of log returns
// over the trailing window of size w, annualized by sqrt(periodsPerYear).
// Output index t covers the w returns ending at price index t, so the first
// w price observations are invalid.
func RollingVolatility(prices []float64, w int, periodsPerYear float64) []Value {
	n := len(prices)
	out := make([]Value, n)
	if w < 2 || n < 2 {
		return out
	}

	returns := make([]Value, n)
	for i := 1; i < n; i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			returns[i] = Some(math.Log(prices[i] / prices[i-1]))
		}
	}

	ann := math.Sqrt(periodsPerYear)
	for t := w; t < n; t++ {
		_, sd, ok := meanStddev(returns[t-w+1 : t+1])
		if !ok {
			continue
		}
		out[t] = Some(sd * ann)
	}
	return out
}

// PeriodsPerYear derives the annualization base for a bar timeframe:
// one-second bars have 31,536,000 periods per year, one-minute bars 525,600.
func PeriodsPerYear(timeframe time.Duration) float64 {
	if timeframe <= 0 {
		return 0
	}
	return secondsPerYear / timeframe.Seconds()
}

// meanStddev returns the mean and sample standard deviation of a fully valid
// window; ok is false if any entry is invalid or the window is too short.
func meanStddev(window []Value) (mean, sd float64, ok bool) {
	n := len(window)
	if n < 2 {
		return 0, 0, false
	}
	var sum float64
	for _, v := range window {
		if !v.Valid {
			return 0, 0, false
		}
		sum += v.Float64
	}
	mean = sum / float64(n)
	var ss float64
	for _, v := range window {
		d := v.Float64 - mean
		ss += d * d
	}
	sd = math.Sqrt(ss / float64(n-1))
	return mean, sd, true
}
