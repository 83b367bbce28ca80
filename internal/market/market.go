// Package market standardizes payloads shared between ingestion, resampling, and analytics layers.
package market

import (
	"fmt"
	"time"
)

// Tick models a single trade observation as delivered by the tick source.
type Tick struct {
	Symbol string
	Price  float64
	Volume float64
	Side   int // +1 buy, -1 sell (aggressor)
	Ts     time.Time
}

// Bar is a fixed-interval aggregation of ticks for one symbol and timeframe.
// Ts is the interval start, aligned to the timeframe boundary.
type Bar struct {
	Symbol    string
	Timeframe time.Duration
	Ts        time.Time
	Close     float64
	Volume    float64
}

// FormatTimeframe renders a duration as a compact interval label such as "1s", "1m", or "1h".
func FormatTimeframe(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d >= time.Second && d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	default:
		return d.String()
	}
}
