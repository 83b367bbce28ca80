package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"statarb-go/internal/market"
	"statarb-go/internal/util"
)

func TestDecodeBinanceTrade(t *testing.T) {
	log := util.NewLogger("disabled")
	msg := []byte(`{"stream":"btcusdt@trade","data":{"p":"65000.10","q":"0.25","T":1714521600123,"m":true}}`)

	tick, ok := decodeBinanceTrade(msg, log)
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if tick.Symbol != "BTCUSDT" {
		t.Fatalf("symbol %q, want BTCUSDT", tick.Symbol)
	}
	if tick.Price != 65000.10 || tick.Volume != 0.25 {
		t.Fatalf("price/volume %.2f/%.2f, want 65000.10/0.25", tick.Price, tick.Volume)
	}
	if tick.Side != -1 {
		t.Fatalf("buyer-maker trade should be side -1, got %d", tick.Side)
	}
	if tick.Ts.UnixMilli() != 1714521600123 {
		t.Fatalf("timestamp %v not preserved", tick.Ts)
	}
}

func TestDecodeBinanceTradeRejectsGarbage(t *testing.T) {
	log := util.NewLogger("disabled")
	for _, msg := range []string{
		`not json`,
		`{"stream":"btcusdt@trade","data":{"p":"oops","q":"1","T":1}}`,
		`{"stream":"btcusdt@trade","data":{"p":"1.0","q":"oops","T":1}}`,
	} {
		if _, ok := decodeBinanceTrade([]byte(msg), log); ok {
			t.Fatalf("expected decode failure for %q", msg)
		}
	}
}

func TestFeedDeduplicatesAndSortsSymbols(t *testing.T) {
	log := util.NewLogger("disabled")
	f := NewFeed(ProviderStub, []string{"ETHUSDT", "BTCUSDT", " ", "ETHUSDT"}, log)
	if len(f.symbols) != 2 || f.symbols[0] != "BTCUSDT" || f.symbols[1] != "ETHUSDT" {
		t.Fatalf("symbols %v, want [BTCUSDT ETHUSDT]", f.symbols)
	}
}

type memorySink struct {
	mu      sync.Mutex
	batches [][]market.Tick
}

func (m *memorySink) InsertTicks(_ context.Context, ticks []market.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]market.Tick, len(ticks))
	copy(cp, ticks)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *memorySink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestWriterFlushesFullBatches(t *testing.T) {
	sink := &memorySink{}
	log := util.NewLogger("disabled")
	w := NewWriter(sink, 3, log)

	in := make(chan market.Tick, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx, in)
		close(done)
	}()

	now := time.Now()
	for i := 0; i < 7; i++ {
		in <- market.Tick{Symbol: "BTCUSDT", Price: 100 + float64(i), Volume: 1, Ts: now}
	}

	deadline := time.After(3 * time.Second)
	for sink.total() < 6 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 6 ticks flushed, got %d", sink.total())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
	if sink.total() != 7 {
		t.Fatalf("expected trailing tick flushed on shutdown, got %d", sink.total())
	}
}
