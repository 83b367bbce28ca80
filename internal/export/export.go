// Package export serializes analytics records for dashboard and API
// consumers as CSV or JSON, preserving the canonical column order.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"statarb-go/internal/analytics"
)

// Header is the canonical CSV column order.
var Header = []string{
	"pair_y", "pair_x", "timeframe", "ts",
	"hedge_ratio", "alpha", "r_squared", "spread", "zscore",
	"correlation", "volatility", "adf_stat", "adf_pvalue", "is_stationary",
}

// WriteCSV renders records as CSV with a header row. Null fields are empty cells.
func WriteCSV(w io.Writer, records []analytics.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.PairY,
			r.PairX,
			r.Timeframe,
			r.Ts.UTC().Format(time.RFC3339Nano),
			floatCell(r.HedgeRatio),
			floatCell(r.Alpha),
			floatCell(r.R2),
			floatCell(r.Spread),
			floatCell(r.ZScore),
			floatCell(r.Correlation),
			floatCell(r.Volatility),
			floatCell(r.ADFStat),
			floatCell(r.ADFPValue),
			boolCell(r.IsStationary),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON renders records as an indented JSON array. Null fields serialize
// as JSON null via the record's pointer fields.
func WriteJSON(w io.Writer, records []analytics.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []analytics.Record{}
	}
	return enc.Encode(records)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func boolCell(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
