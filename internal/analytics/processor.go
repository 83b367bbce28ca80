package analytics

import (
	"time"

	"statarb-go/internal/market"
	"statarb-go/internal/stats"
)

// Windows bundles the rolling window sizes applied per record.
type Windows struct {
	Hedge       int
	ZScore      int
	Correlation int
	Volatility  int
	// MinObservations gates the ADF stationarity test.
	MinObservations int
}

// Max returns the largest rolling window, which bounds how much trailing
// history a recompute needs.
func (w Windows) Max() int {
	max := w.Hedge
	for _, n := range []int{w.ZScore, w.Correlation, w.Volatility} {
		if n > max {
			max = n
		}
	}
	return max
}

// Processor applies the rolling statistics library to one pair's bar series
// for one timeframe. It holds no mutable state between runs: identical input
// series always produce identical records, which keeps overlapping re-runs
// idempotent.
type Processor struct {
	Windows Windows
}

// NewProcessor builds a processor with the given window configuration.
func NewProcessor(w Windows) *Processor {
	if w.MinObservations < stats.MinADFObservations {
		w.MinObservations = stats.MinADFObservations
	}
	return &Processor{Windows: w}
}

// Run inner-joins the Y and X bar series on timestamp and produces one
// record per aligned timestamp. Bars present in only one series are dropped
// for that point.
func (p *Processor) Run(pairY, pairX string, timeframe time.Duration, yBars, xBars []market.Bar) []Record {
	ts, y, x := alignBars(yBars, xBars)
	if len(ts) == 0 {
		return nil
	}

	w := p.Windows
	betas := stats.RollingOLS(y, x, w.Hedge)
	spread := stats.RollingSpread(y, x, betas)
	zscore := stats.RollingZScore(spread, w.ZScore)
	corr := stats.RollingCorrelation(y, x, w.Correlation)
	vol := stats.RollingVolatility(y, w.Volatility, stats.PeriodsPerYear(timeframe))

	label := market.FormatTimeframe(timeframe)
	records := make([]Record, 0, len(ts))
	spreadHistory := make([]float64, 0, len(ts))
	for t := range ts {
		rec := Record{
			PairY:       pairY,
			PairX:       pairX,
			Timeframe:   label,
			Ts:          ts[t],
			Spread:      spread[t].Ptr(),
			ZScore:      zscore[t].Ptr(),
			Correlation: corr[t].Ptr(),
			Volatility:  vol[t].Ptr(),
		}
		if betas[t].Valid {
			rec.HedgeRatio = stats.Some(betas[t].Beta).Ptr()
			rec.Alpha = stats.Some(betas[t].Alpha).Ptr()
			rec.R2 = stats.Some(betas[t].R2).Ptr()
		}

		if spread[t].Valid {
			spreadHistory = append(spreadHistory, spread[t].Float64)
		}
		if len(spreadHistory) >= p.Windows.MinObservations {
			if adf, ok := stats.ADF(spreadHistory, -1); ok {
				rec.ADFStat = stats.Some(adf.Stat).Ptr()
				rec.ADFPValue = stats.Some(adf.PValue).Ptr()
				stationary := adf.Stationary(0.05)
				rec.IsStationary = &stationary
			}
		}
		records = append(records, rec)
	}
	return records
}

// alignBars performs an inner join of two bar series on timestamp. Both
// inputs are ordered ascending by construction.
func alignBars(yBars, xBars []market.Bar) (ts []time.Time, y, x []float64) {
	i, j := 0, 0
	for i < len(yBars) && j < len(xBars) {
		switch {
		case yBars[i].Ts.Before(xBars[j].Ts):
			i++
		case xBars[j].Ts.Before(yBars[i].Ts):
			j++
		default:
			ts = append(ts, yBars[i].Ts)
			y = append(y, yBars[i].Close)
			x = append(x, xBars[j].Close)
			i++
			j++
		}
	}
	return ts, y, x
}
