// Package analytics converts aligned bar series into persisted statistical
// records and orchestrates the periodic recomputation cycle.
package analytics

import "time"

// Record is one row of pair analytics at one aligned bar timestamp. Nullable
// columns are pointers: nil means "insufficient data for this window at this
// point", never a computation error. Rows are append-only and unique on
// (pair_y, pair_x, timeframe, ts).
type Record struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	PairY        string    `gorm:"size:32;not null;uniqueIndex:idx_analytics_key,priority:1" json:"pair_y"`
	PairX        string    `gorm:"size:32;not null;uniqueIndex:idx_analytics_key,priority:2" json:"pair_x"`
	Timeframe    string    `gorm:"size:16;not null;uniqueIndex:idx_analytics_key,priority:3" json:"timeframe"`
	Ts           time.Time `gorm:"not null;uniqueIndex:idx_analytics_key,priority:4" json:"ts"`
	HedgeRatio   *float64  `json:"hedge_ratio"`
	Alpha        *float64  `json:"alpha"`
	R2           *float64  `json:"r_squared"`
	Spread       *float64  `json:"spread"`
	ZScore       *float64  `json:"zscore"`
	Correlation  *float64  `json:"correlation"`
	Volatility   *float64  `json:"volatility"`
	ADFStat      *float64  `json:"adf_stat"`
	ADFPValue    *float64  `json:"adf_pvalue"`
	IsStationary *bool     `json:"is_stationary"`
}

// TableName pins the historical table name used by dashboard consumers.
func (Record) TableName() string { return "analytics" }
