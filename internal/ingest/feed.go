// Package ingest hosts tick feeds: the Binance trade stream and a
// deterministic stub for offline work, plus the loop that batches ticks into
// the store.
package ingest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/market"
	"statarb-go/internal/metrics"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
)

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider       string
	symbols        []string
	log            zerolog.Logger
	baseURL        string
	reconnectDelay time.Duration
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultBinanceURL     = "wss://stream.binance.com:9443/stream"
	defaultReconnectDelay = 5 * time.Second
)

// WithBaseURL overrides the websocket endpoint.
func WithBaseURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithReconnectDelay sets the initial backoff after a dropped connection.
func WithReconnectDelay(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.reconnectDelay = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:       strings.ToLower(provider),
		log:            log,
		baseURL:        defaultBinanceURL,
		reconnectDelay: defaultReconnectDelay,
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) setSymbols(symbols []string) {
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

// Run pushes ticks onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- market.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// runStub walks each symbol's price along a slow deterministic ramp.
func (f *Feed) runStub(ctx context.Context, out chan<- market.Tick) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	px := 100.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += 0.1
			for _, s := range f.symbols {
				tick := market.Tick{Symbol: s, Price: px, Volume: 1, Side: 1, Ts: ts}
				select {
				case out <- tick:
					metrics.TicksTotal.WithLabelValues(s).Inc()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
