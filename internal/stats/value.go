// Package stats provides pure rolling-window statistics over price series:
// OLS hedge ratios, spreads, z-scores, correlation, annualized volatility,
// and an augmented Dickey-Fuller stationarity test.
//
// Every window-based function shares the same trailing-window contract: at
// index t the window is [t-w+1, t], and if fewer than w valid observations
// are available the output at t is an invalid Value. Invalid means "not yet
// computable", never a computation error, and must not be coerced to zero.
package stats

// Value is an optional float64. Valid is false when the underlying statistic
// could not be computed from the available observations.
type Value struct {
	Float64 float64
	Valid   bool
}

// Some wraps a computed value.
func Some(v float64) Value { return Value{Float64: v, Valid: true} }

// None is the invalid (insufficient data) value.
func None() Value { return Value{} }

// Ptr converts a Value to the nullable-pointer form used by persisted records.
func (v Value) Ptr() *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
