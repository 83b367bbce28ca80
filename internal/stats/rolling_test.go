package stats

import (
	"math"
	"testing"
	"time"
)

func TestOLSRecoversExactSlope(t *testing.T) {
	x := make([]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		x[i] = float64(i) + 1
		y[i] = 3 * x[i]
	}

	res, ok := OLS(y, x)
	if !ok {
		t.Fatalf("expected OLS fit to succeed")
	}
	if math.Abs(res.Beta-3) > 1e-9 {
		t.Fatalf("beta %.12f, want 3 within 1e-9", res.Beta)
	}
	if math.Abs(res.Alpha) > 1e-9 {
		t.Fatalf("alpha %.12f, want 0 within 1e-9", res.Alpha)
	}
	if math.Abs(res.R2-1) > 1e-9 {
		t.Fatalf("r-squared %.12f, want 1", res.R2)
	}
}

func TestOLSFlatRegressorNotComputable(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	x := []float64{5, 5, 5, 5}
	if _, ok := OLS(y, x); ok {
		t.Fatalf("expected flat x series to be reported as not computable")
	}
}

func TestOLSTooFewPoints(t *testing.T) {
	if _, ok := OLS([]float64{1}, []float64{2}); ok {
		t.Fatalf("expected single point to be insufficient")
	}
}

func TestRollingOLSWindowFill(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2, 4, 6, 8, 10, 12}

	betas := RollingOLS(y, x, 4)
	for i := 0; i < 3; i++ {
		if betas[i].Valid {
			t.Fatalf("index %d should be invalid before window fills", i)
		}
	}
	for i := 3; i < len(betas); i++ {
		if !betas[i].Valid {
			t.Fatalf("index %d should be valid", i)
		}
		if math.Abs(betas[i].Beta-2) > 1e-9 {
			t.Fatalf("beta at %d = %.12f, want 2", i, betas[i].Beta)
		}
	}
}

func TestRollingSpreadUsesSameIndexBeta(t *testing.T) {
	y := []float64{10, 20, 30}
	x := []float64{1, 2, 3}
	betas := []OLSValue{
		{},
		{OLSResult: OLSResult{Beta: 5}, Valid: true},
		{OLSResult: OLSResult{Beta: 7}, Valid: true},
	}

	spread := RollingSpread(y, x, betas)
	if spread[0].Valid {
		t.Fatalf("spread without a hedge ratio should be invalid")
	}
	if !spread[1].Valid || spread[1].Float64 != 20-5*2 {
		t.Fatalf("spread[1] = %+v, want 10", spread[1])
	}
	if !spread[2].Valid || spread[2].Float64 != 30-7*3 {
		t.Fatalf("spread[2] = %+v, want 9", spread[2])
	}
}

func TestRollingZScoreConstantSeries(t *testing.T) {
	series := make([]Value, 40)
	for i := range series {
		series[i] = Some(7.5)
	}
	out := RollingZScore(series, 10)
	for i, v := range out {
		if v.Valid {
			t.Fatalf("index %d: constant spread must yield invalid z-score, got %.4f", i, v.Float64)
		}
	}
}

func TestRollingZScoreShortSeries(t *testing.T) {
	series := []Value{Some(1), Some(2), Some(3)}
	out := RollingZScore(series, 10)
	for i, v := range out {
		if v.Valid {
			t.Fatalf("index %d: series shorter than window must be invalid", i)
		}
	}
}

func TestRollingZScoreSkipsWindowsWithInvalidEntries(t *testing.T) {
	series := []Value{Some(1), {}, Some(3), Some(1), Some(2)}
	out := RollingZScore(series, 3)
	if out[2].Valid || out[3].Valid {
		t.Fatalf("windows covering an invalid entry must be invalid")
	}
	if !out[4].Valid {
		t.Fatalf("fully valid window should produce a z-score")
	}
}

func TestRollingZScoreValue(t *testing.T) {
	series := []Value{Some(1), Some(2), Some(3), Some(10)}
	out := RollingZScore(series, 3)
	// window [2,3,10]: mean 5, sample stdev sqrt(19)
	want := (10.0 - 5.0) / math.Sqrt(19)
	if !out[3].Valid || math.Abs(out[3].Float64-want) > 1e-9 {
		t.Fatalf("z[3] = %+v, want %.6f", out[3], want)
	}
}

func TestRollingCorrelationBounds(t *testing.T) {
	y := make([]float64, 100)
	x := make([]float64, 100)
	for i := range y {
		x[i] = math.Sin(float64(i) * 0.7)
		y[i] = math.Cos(float64(i)*1.3) + 0.5*x[i]
	}

	out := RollingCorrelation(y, x, 20)
	for i, v := range out {
		if !v.Valid {
			continue
		}
		if v.Float64 < -1 || v.Float64 > 1 {
			t.Fatalf("correlation out of bounds at %d: %.6f", i, v.Float64)
		}
	}
}

func TestRollingCorrelationPerfect(t *testing.T) {
	y := []float64{2, 4, 6, 8, 10}
	x := []float64{1, 2, 3, 4, 5}
	out := RollingCorrelation(y, x, 5)
	if !out[4].Valid || math.Abs(out[4].Float64-1) > 1e-9 {
		t.Fatalf("perfectly linear series should correlate at 1, got %+v", out[4])
	}
}

func TestRollingVolatilityNonNegative(t *testing.T) {
	prices := make([]float64, 80)
	for i := range prices {
		prices[i] = 100 + 5*math.Sin(float64(i)*0.9)
	}

	out := RollingVolatility(prices, 20, PeriodsPerYear(time.Minute))
	var seen int
	for i, v := range out {
		if !v.Valid {
			continue
		}
		seen++
		if v.Float64 < 0 {
			t.Fatalf("volatility negative at %d: %.6f", i, v.Float64)
		}
	}
	if seen == 0 {
		t.Fatalf("expected at least one valid volatility value")
	}
	for i := 0; i < 20; i++ {
		if out[i].Valid {
			t.Fatalf("index %d lacks a full window of returns, should be invalid", i)
		}
	}
}

func TestRollingVolatilityShortSeries(t *testing.T) {
	out := RollingVolatility([]float64{100, 101, 102}, 20, PeriodsPerYear(time.Second))
	for i, v := range out {
		if v.Valid {
			t.Fatalf("index %d: short series must be invalid", i)
		}
	}
}

func TestPeriodsPerYear(t *testing.T) {
	cases := map[time.Duration]float64{
		time.Second:     31536000,
		time.Minute:     525600,
		5 * time.Minute: 105120,
	}
	for tf, want := range cases {
		if got := PeriodsPerYear(tf); math.Abs(got-want) > 1e-6 {
			t.Fatalf("PeriodsPerYear(%v) = %.2f, want %.2f", tf, got, want)
		}
	}
}
