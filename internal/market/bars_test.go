package market

import (
	"testing"
	"time"
)

func TestBuildBarsMinuteBoundaries(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ticks := []Tick{
		{Symbol: "BTCUSDT", Price: 100, Volume: 1, Ts: base.Add(10 * time.Second)},
		{Symbol: "BTCUSDT", Price: 101, Volume: 2, Ts: base.Add(45 * time.Second)},
		{Symbol: "BTCUSDT", Price: 99, Volume: 3, Ts: base.Add(65 * time.Second)},
	}

	bars := BuildBars(ticks, time.Minute, FillOmit)
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Ts.Equal(base) {
		t.Fatalf("first bar start %v, want %v", bars[0].Ts, base)
	}
	if bars[0].Close != 101 {
		t.Fatalf("first bar close %.2f, want 101 (last tick in interval)", bars[0].Close)
	}
	if bars[0].Volume != 3 {
		t.Fatalf("first bar volume %.2f, want 3", bars[0].Volume)
	}
	if !bars[1].Ts.Equal(base.Add(time.Minute)) {
		t.Fatalf("second bar start %v, want %v", bars[1].Ts, base.Add(time.Minute))
	}
	if bars[1].Close != 99 {
		t.Fatalf("second bar close %.2f, want 99", bars[1].Close)
	}
}

func TestBuildBarsEmptyInput(t *testing.T) {
	if bars := BuildBars(nil, time.Minute, FillOmit); len(bars) != 0 {
		t.Fatalf("expected no bars for empty input, got %d", len(bars))
	}
}

func TestBuildBarsOmitsEmptyIntervals(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ticks := []Tick{
		{Symbol: "ETHUSDT", Price: 10, Volume: 1, Ts: base},
		{Symbol: "ETHUSDT", Price: 12, Volume: 1, Ts: base.Add(5 * time.Minute)},
	}

	bars := BuildBars(ticks, time.Minute, FillOmit)
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars with gaps omitted, got %d", len(bars))
	}
}

func TestBuildBarsForwardFill(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ticks := []Tick{
		{Symbol: "ETHUSDT", Price: 10, Volume: 1, Ts: base},
		{Symbol: "ETHUSDT", Price: 12, Volume: 1, Ts: base.Add(3 * time.Minute)},
	}

	bars := BuildBars(ticks, time.Minute, FillForward)
	if len(bars) != 4 {
		t.Fatalf("expected 4 bars with forward fill, got %d", len(bars))
	}
	for i := 1; i <= 2; i++ {
		if bars[i].Close != 10 {
			t.Fatalf("filled bar %d close %.2f, want prior close 10", i, bars[i].Close)
		}
		if bars[i].Volume != 0 {
			t.Fatalf("filled bar %d volume %.2f, want 0", i, bars[i].Volume)
		}
	}
	if bars[3].Close != 12 {
		t.Fatalf("final bar close %.2f, want 12", bars[3].Close)
	}
}

func TestBuildBarsStrictlyIncreasingTimestamps(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ticks []Tick
	for i := 0; i < 300; i++ {
		ticks = append(ticks, Tick{Symbol: "BTCUSDT", Price: 100 + float64(i%7), Volume: 1, Ts: base.Add(time.Duration(i) * 7 * time.Second)})
	}

	bars := BuildBars(ticks, time.Minute, FillOmit)
	for i := 1; i < len(bars); i++ {
		if !bars[i].Ts.After(bars[i-1].Ts) {
			t.Fatalf("bar timestamps not strictly increasing at %d: %v then %v", i, bars[i-1].Ts, bars[i].Ts)
		}
		if bars[i].Ts.Truncate(time.Minute) != bars[i].Ts {
			t.Fatalf("bar %d not aligned to minute boundary: %v", i, bars[i].Ts)
		}
	}
}

func TestFormatTimeframe(t *testing.T) {
	cases := map[time.Duration]string{
		time.Second:      "1s",
		time.Minute:      "1m",
		5 * time.Minute:  "5m",
		time.Hour:        "1h",
		90 * time.Second: "1m30s",
	}
	for d, want := range cases {
		if got := FormatTimeframe(d); got != want {
			t.Fatalf("FormatTimeframe(%v) = %q, want %q", d, got, want)
		}
	}
}
