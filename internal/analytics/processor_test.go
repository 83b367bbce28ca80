package analytics

import (
	"math"
	"reflect"
	"testing"
	"time"

	"statarb-go/internal/market"
)

func makeBars(symbol string, start time.Time, tf time.Duration, closes []float64) []market.Bar {
	out := make([]market.Bar, len(closes))
	for i, c := range closes {
		out[i] = market.Bar{
			Symbol:    symbol,
			Timeframe: tf,
			Ts:        start.Add(time.Duration(i) * tf),
			Close:     c,
			Volume:    1,
		}
	}
	return out
}

func testWindows() Windows {
	return Windows{Hedge: 5, ZScore: 5, Correlation: 5, Volatility: 5, MinObservations: 20}
}

func TestProcessorInnerJoin(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	y := makeBars("BTCUSDT", start, time.Minute, []float64{1, 2, 3, 4})
	x := makeBars("ETHUSDT", start.Add(time.Minute), time.Minute, []float64{10, 20, 30, 40})

	p := NewProcessor(testWindows())
	records := p.Run("BTCUSDT", "ETHUSDT", time.Minute, y, x)
	// Overlap is minutes 1..3 of y with minutes 1..3 of x.
	if len(records) != 3 {
		t.Fatalf("expected 3 aligned records, got %d", len(records))
	}
	if !records[0].Ts.Equal(start.Add(time.Minute)) {
		t.Fatalf("first aligned ts %v, want %v", records[0].Ts, start.Add(time.Minute))
	}
	for _, r := range records {
		if r.Timeframe != "1m" {
			t.Fatalf("timeframe label %q, want 1m", r.Timeframe)
		}
	}
}

func TestProcessorNullsBeforeWindowsFill(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 101, 99, 102, 100, 103, 98, 104}
	xCloses := []float64{50, 51, 49, 52, 50, 53, 48, 54}
	y := makeBars("BTCUSDT", start, time.Minute, closes)
	x := makeBars("ETHUSDT", start, time.Minute, xCloses)

	p := NewProcessor(testWindows())
	records := p.Run("BTCUSDT", "ETHUSDT", time.Minute, y, x)
	if len(records) != len(closes) {
		t.Fatalf("expected one record per aligned bar, got %d", len(records))
	}
	for i := 0; i < 4; i++ {
		if records[i].HedgeRatio != nil {
			t.Fatalf("record %d: hedge ratio should be null before the window fills", i)
		}
		if records[i].ZScore != nil {
			t.Fatalf("record %d: z-score should be null before the window fills", i)
		}
	}
	if records[4].HedgeRatio == nil || records[4].Correlation == nil {
		t.Fatalf("record 4 should carry hedge ratio and correlation once windows fill")
	}
	// Z-score needs a full window of valid spreads, which only start at index 4.
	if records[4].ZScore != nil {
		t.Fatalf("z-score needs 5 valid spreads; record 4 has only 1")
	}
	// Volatility window of 5 returns fills at index 5.
	if records[4].Volatility != nil {
		t.Fatalf("volatility at record 4 should still be null")
	}
	if records[5].Volatility == nil {
		t.Fatalf("volatility at record 5 should be present")
	}
}

func TestProcessorHedgeRatioOnLinearSeries(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	xCloses := make([]float64, 12)
	yCloses := make([]float64, 12)
	for i := range xCloses {
		xCloses[i] = float64(i) + 1
		yCloses[i] = 3 * xCloses[i]
	}
	y := makeBars("BTCUSDT", start, time.Minute, yCloses)
	x := makeBars("ETHUSDT", start, time.Minute, xCloses)

	p := NewProcessor(testWindows())
	records := p.Run("BTCUSDT", "ETHUSDT", time.Minute, y, x)
	last := records[len(records)-1]
	if last.HedgeRatio == nil {
		t.Fatalf("expected hedge ratio on full window")
	}
	if math.Abs(*last.HedgeRatio-3) > 1e-9 {
		t.Fatalf("hedge ratio %.12f, want 3", *last.HedgeRatio)
	}
	// Spread of a perfect fit is zero, so its z-score is null (zero variance).
	if last.ZScore != nil {
		t.Fatalf("constant spread must yield null z-score, got %v", *last.ZScore)
	}
}

func TestProcessorDeterministicAcrossRuns(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	yCloses := make([]float64, 40)
	xCloses := make([]float64, 40)
	for i := range yCloses {
		xCloses[i] = 100 + 3*math.Sin(float64(i)*0.8)
		yCloses[i] = 2*xCloses[i] + math.Sin(float64(i)*2.1)
	}
	y := makeBars("BTCUSDT", start, time.Minute, yCloses)
	x := makeBars("ETHUSDT", start, time.Minute, xCloses)

	p := NewProcessor(testWindows())
	first := p.Run("BTCUSDT", "ETHUSDT", time.Minute, y, x)
	second := p.Run("BTCUSDT", "ETHUSDT", time.Minute, y, x)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("processor output must be identical for identical inputs")
	}
}

func TestProcessorEmptyInput(t *testing.T) {
	p := NewProcessor(testWindows())
	if records := p.Run("BTCUSDT", "ETHUSDT", time.Minute, nil, nil); len(records) != 0 {
		t.Fatalf("expected no records for empty input, got %d", len(records))
	}
}

func TestProcessorSeriesShorterThanWindows(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	y := makeBars("BTCUSDT", start, time.Minute, []float64{1, 2, 3})
	x := makeBars("ETHUSDT", start, time.Minute, []float64{2, 4, 6})

	p := NewProcessor(Windows{Hedge: 10, ZScore: 10, Correlation: 10, Volatility: 10, MinObservations: 20})
	records := p.Run("BTCUSDT", "ETHUSDT", time.Minute, y, x)
	for i, r := range records {
		if r.HedgeRatio != nil || r.Spread != nil || r.ZScore != nil ||
			r.Correlation != nil || r.Volatility != nil || r.ADFPValue != nil || r.IsStationary != nil {
			t.Fatalf("record %d should be entirely null for a series shorter than every window", i)
		}
	}
}
