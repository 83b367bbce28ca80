// Package store persists ticks, analytics records, and watermarks in sqlite
// behind gorm. It is the only shared mutable resource in the pipeline: the
// unique key on analytics rows and the upserted watermark table are what make
// concurrent combination processing safe.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"statarb-go/internal/analytics"
	"statarb-go/internal/market"
)

// TickRow is one persisted trade observation.
type TickRow struct {
	ID     uint      `gorm:"primaryKey"`
	Symbol string    `gorm:"size:32;not null;index:idx_ticks_symbol_ts,priority:1"`
	Ts     time.Time `gorm:"not null;index:idx_ticks_symbol_ts,priority:2"`
	Price  float64   `gorm:"not null"`
	Volume float64   `gorm:"not null"`
	Side   int
}

// TableName keeps the table name the ingestion side historically used.
func (TickRow) TableName() string { return "ticks" }

// Watermark records the last fully processed bar timestamp per combination.
type Watermark struct {
	ID        uint      `gorm:"primaryKey"`
	PairY     string    `gorm:"size:32;not null;uniqueIndex:idx_watermark_key,priority:1"`
	PairX     string    `gorm:"size:32;not null;uniqueIndex:idx_watermark_key,priority:2"`
	Timeframe string    `gorm:"size:16;not null;uniqueIndex:idx_watermark_key,priority:3"`
	LastTs    time.Time `gorm:"not null"`
}

// TableName pins the watermark table name.
func (Watermark) TableName() string { return "watermarks" }

// Store wraps the gorm handle.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at path (":memory:" for tests) and
// migrates the schema. Migration failure is fatal to the caller: the engine
// must not run against a mismatched schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&TickRow{}, &analytics.Record{}, &Watermark{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// InsertTicks appends a batch of ticks in one transaction.
func (s *Store) InsertTicks(ctx context.Context, ticks []market.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	rows := make([]TickRow, len(ticks))
	for i, tk := range ticks {
		rows[i] = TickRow{
			Symbol: tk.Symbol,
			Ts:     tk.Ts.UTC(),
			Price:  tk.Price,
			Volume: tk.Volume,
			Side:   tk.Side,
		}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert ticks: %w", err)
	}
	return nil
}

// TicksSince returns the ticks for one symbol newer than since, ordered
// ascending by timestamp.
func (s *Store) TicksSince(ctx context.Context, symbol string, since time.Time) ([]market.Tick, error) {
	var rows []TickRow
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND ts > ?", symbol, since.UTC()).
		Order("ts ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	ticks := make([]market.Tick, len(rows))
	for i, r := range rows {
		ticks[i] = market.Tick{
			Symbol: r.Symbol,
			Price:  r.Price,
			Volume: r.Volume,
			Side:   r.Side,
			Ts:     r.Ts,
		}
	}
	return ticks, nil
}

// AppendRecords inserts analytics records, silently skipping rows whose key
// already exists. It returns the number of rows actually inserted, so
// overlapping re-runs are idempotent.
func (s *Store) AppendRecords(ctx context.Context, records []analytics.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records)
	if res.Error != nil {
		return 0, fmt.Errorf("append records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Records returns the analytics series for one combination ordered by
// timestamp, optionally bounded below by since.
func (s *Store) Records(ctx context.Context, pairY, pairX, timeframe string, since time.Time) ([]analytics.Record, error) {
	var out []analytics.Record
	q := s.db.WithContext(ctx).
		Where("pair_y = ? AND pair_x = ? AND timeframe = ?", pairY, pairX, timeframe)
	if !since.IsZero() {
		q = q.Where("ts > ?", since.UTC())
	}
	if err := q.Order("ts ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return out, nil
}

// SaveWatermark upserts the last processed timestamp for a combination.
func (s *Store) SaveWatermark(ctx context.Context, pairY, pairX, timeframe string, lastTs time.Time) error {
	wm := Watermark{PairY: pairY, PairX: pairX, Timeframe: timeframe, LastTs: lastTs.UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_y"}, {Name: "pair_x"}, {Name: "timeframe"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_ts"}),
		}).
		Create(&wm).Error
	if err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	return nil
}

// LoadWatermarks returns every persisted watermark keyed by
// "pairY|pairX|timeframe", matching the engine's combo key.
func (s *Store) LoadWatermarks(ctx context.Context) (map[string]time.Time, error) {
	var rows []Watermark
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load watermarks: %w", err)
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.PairY+"|"+r.PairX+"|"+r.Timeframe] = r.LastTs
	}
	return out, nil
}
