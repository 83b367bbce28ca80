package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/market"
)

// TickSink is where buffered ticks land; the sqlite store implements it.
type TickSink interface {
	InsertTicks(ctx context.Context, ticks []market.Tick) error
}

// Writer drains a tick channel into the sink in batches, flushing either when
// the batch fills or on a timer so quiet markets still persist promptly.
type Writer struct {
	sink          TickSink
	log           zerolog.Logger
	batchSize     int
	flushInterval time.Duration
}

// NewWriter builds a batching writer.
func NewWriter(sink TickSink, batchSize int, log zerolog.Logger) *Writer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Writer{
		sink:          sink,
		log:           log,
		batchSize:     batchSize,
		flushInterval: time.Second,
	}
}

// Run consumes ticks until the context is canceled, flushing any buffered
// ticks before returning.
func (w *Writer) Run(ctx context.Context, in <-chan market.Tick) error {
	batch := make([]market.Tick, 0, w.batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Flush with a fresh bounded context so shutdown still persists the tail.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.sink.InsertTicks(flushCtx, batch); err != nil {
			w.log.Error().Err(err).Int("dropped", len(batch)).Msg("tick batch insert failed")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()
		case tk, ok := <-in:
			if !ok {
				flush()
				return nil
			}
			batch = append(batch, tk)
			if len(batch) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
