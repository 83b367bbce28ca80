package market

import "time"

// FillMode controls what happens to intervals that received no ticks.
type FillMode string

const (
	// FillOmit skips empty intervals entirely; downstream consumers must
	// tolerate irregular bar spacing.
	FillOmit FillMode = "omit"
	// FillForward emits a bar per empty interval carrying the prior close
	// with zero volume.
	FillForward FillMode = "forward"
)

// BuildBars resamples an ordered tick sequence for one symbol into bars of
// the given timeframe. Each tick lands in the interval containing its
// timestamp; the bar close is the last tick observed in that interval and the
// volume is the interval sum. An empty tick slice yields an empty bar slice.
func BuildBars(ticks []Tick, timeframe time.Duration, fill FillMode) []Bar {
	if len(ticks) == 0 || timeframe <= 0 {
		return nil
	}

	var bars []Bar
	var current *Bar
	for _, tk := range ticks {
		start := tk.Ts.Truncate(timeframe)
		if current != nil && start.After(current.Ts) {
			bars = append(bars, *current)
			if fill == FillForward {
				bars = appendGapFill(bars, *current, start, timeframe)
			}
			current = nil
		}
		if current == nil {
			current = &Bar{
				Symbol:    tk.Symbol,
				Timeframe: timeframe,
				Ts:        start,
			}
		}
		current.Close = tk.Price
		current.Volume += tk.Volume
	}
	if current != nil {
		bars = append(bars, *current)
	}
	return bars
}

// appendGapFill emits synthetic bars for every empty interval between the
// last real bar and the next occupied interval.
func appendGapFill(bars []Bar, last Bar, next time.Time, timeframe time.Duration) []Bar {
	for ts := last.Ts.Add(timeframe); ts.Before(next); ts = ts.Add(timeframe) {
		bars = append(bars, Bar{
			Symbol:    last.Symbol,
			Timeframe: timeframe,
			Ts:        ts,
			Close:     last.Close,
			Volume:    0,
		})
	}
	return bars
}
