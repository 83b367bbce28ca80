// Package backtest simulates a threshold-based mean-reversion strategy over
// a z-score series. The simulator is a pure state machine: each step maps
// (state, observation) to (state, optional trade), which makes replays
// deterministic and unit-testable without the engine or store.
package backtest

import (
	"math"
	"time"

	"statarb-go/internal/analytics"
	"statarb-go/internal/stats"
)

// Position enumerates the simulator's spread positions.
type Position string

const (
	Flat  Position = "FLAT"
	Long  Position = "LONG"  // long the spread: entered on deeply negative z
	Short Position = "SHORT" // short the spread: entered on deeply positive z
)

// Observation is one point of the signal series driving the simulator.
type Observation struct {
	Ts     time.Time
	Spread stats.Value
	ZScore stats.Value
}

// Trade is one closed round trip.
type Trade struct {
	Position    Position  `json:"position"`
	EntryTs     time.Time `json:"entry_time"`
	ExitTs      time.Time `json:"exit_time"`
	EntrySpread float64   `json:"entry_price"`
	ExitSpread  float64   `json:"exit_price"`
	PnL         float64   `json:"pnl"`
	ReturnPct   float64   `json:"return_pct"`
}

// State is the transient simulator state carried between steps.
type State struct {
	Position    Position
	EntrySpread float64
	EntryTs     time.Time
	RealizedPnL float64
}

// Config tunes the entry and exit thresholds.
type Config struct {
	EntryThreshold float64 // default 2.0
	ExitThreshold  float64 // default 0.5
	// CloseAtEnd forces an open position to be realized at the final
	// observation instead of being reported as unrealized.
	CloseAtEnd bool
}

// NewState returns the initial flat state.
func NewState() State { return State{Position: Flat} }

// Step advances the state machine by one observation. Observations with an
// invalid z-score are skipped entirely: no transition, no trade. Entries also
// require a valid spread, since the entry price is the spread itself.
func Step(cfg Config, st State, obs Observation) (State, *Trade) {
	if !obs.ZScore.Valid {
		return st, nil
	}
	z := obs.ZScore.Float64

	switch st.Position {
	case Flat:
		if !obs.Spread.Valid {
			return st, nil
		}
		if z > cfg.EntryThreshold {
			st.Position = Short
			st.EntrySpread = obs.Spread.Float64
			st.EntryTs = obs.Ts
		} else if z < -cfg.EntryThreshold {
			st.Position = Long
			st.EntrySpread = obs.Spread.Float64
			st.EntryTs = obs.Ts
		}
		return st, nil

	case Long, Short:
		if math.Abs(z) >= cfg.ExitThreshold || !obs.Spread.Valid {
			return st, nil
		}
		return closePosition(st, obs.Ts, obs.Spread.Float64)
	}
	return st, nil
}

func closePosition(st State, ts time.Time, exitSpread float64) (State, *Trade) {
	pnl := exitSpread - st.EntrySpread
	if st.Position == Short {
		pnl = st.EntrySpread - exitSpread
	}
	trade := &Trade{
		Position:    st.Position,
		EntryTs:     st.EntryTs,
		ExitTs:      ts,
		EntrySpread: st.EntrySpread,
		ExitSpread:  exitSpread,
		PnL:         pnl,
	}
	if st.EntrySpread != 0 {
		trade.ReturnPct = pnl / math.Abs(st.EntrySpread) * 100
	}
	st.RealizedPnL += pnl
	st.Position = Flat
	st.EntrySpread = 0
	st.EntryTs = time.Time{}
	return st, trade
}

// OpenPosition describes a position still held at the end of the series.
type OpenPosition struct {
	Position      Position  `json:"position"`
	EntrySpread   float64   `json:"entry_price"`
	EntryTs       time.Time `json:"entry_time"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
}

// Result summarizes a backtest run.
type Result struct {
	TotalTrades  int           `json:"total_trades"`
	TotalPnL     float64       `json:"total_pnl"`
	AvgPnL       float64       `json:"avg_pnl"`
	WinRate      float64       `json:"win_rate"`
	AvgReturnPct float64       `json:"avg_return_pct"`
	MaxPnL       float64       `json:"max_pnl"`
	MinPnL       float64       `json:"min_pnl"`
	Trades       []Trade       `json:"trades"`
	Open         *OpenPosition `json:"open_position,omitempty"`
}

// Run drives the state machine over the observations in order, without
// look-ahead, and summarizes the trade log.
func Run(observations []Observation, cfg Config) Result {
	st := NewState()
	var trades []Trade
	var lastSpread stats.Value

	for _, obs := range observations {
		var trade *Trade
		st, trade = Step(cfg, st, obs)
		if trade != nil {
			trades = append(trades, *trade)
		}
		if obs.Spread.Valid {
			lastSpread = obs.Spread
		}
	}

	if st.Position != Flat && cfg.CloseAtEnd && lastSpread.Valid {
		var trade *Trade
		last := observations[len(observations)-1]
		st, trade = closePosition(st, last.Ts, lastSpread.Float64)
		if trade != nil {
			trades = append(trades, *trade)
		}
	}

	res := summarize(trades)
	if st.Position != Flat {
		open := &OpenPosition{
			Position:    st.Position,
			EntrySpread: st.EntrySpread,
			EntryTs:     st.EntryTs,
		}
		if lastSpread.Valid {
			if st.Position == Long {
				open.UnrealizedPnL = lastSpread.Float64 - st.EntrySpread
			} else {
				open.UnrealizedPnL = st.EntrySpread - lastSpread.Float64
			}
		}
		res.Open = open
	}
	return res
}

// FromRecords adapts persisted analytics rows into simulator observations.
func FromRecords(records []analytics.Record) []Observation {
	out := make([]Observation, len(records))
	for i, r := range records {
		obs := Observation{Ts: r.Ts}
		if r.Spread != nil {
			obs.Spread = stats.Some(*r.Spread)
		}
		if r.ZScore != nil {
			obs.ZScore = stats.Some(*r.ZScore)
		}
		out[i] = obs
	}
	return out
}

func summarize(trades []Trade) Result {
	res := Result{TotalTrades: len(trades), Trades: trades}
	if len(trades) == 0 {
		return res
	}
	wins := 0
	res.MaxPnL = trades[0].PnL
	res.MinPnL = trades[0].PnL
	for _, tr := range trades {
		res.TotalPnL += tr.PnL
		res.AvgReturnPct += tr.ReturnPct
		if tr.PnL > 0 {
			wins++
		}
		if tr.PnL > res.MaxPnL {
			res.MaxPnL = tr.PnL
		}
		if tr.PnL < res.MinPnL {
			res.MinPnL = tr.PnL
		}
	}
	n := float64(len(trades))
	res.AvgPnL = res.TotalPnL / n
	res.AvgReturnPct /= n
	res.WinRate = float64(wins) / n * 100
	return res
}
