package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/market"
	"statarb-go/internal/metrics"
)

// Store is the persistence surface the engine depends on. Implementations
// must reject duplicate analytics keys atomically and support reads since a
// watermark.
type Store interface {
	TicksSince(ctx context.Context, symbol string, since time.Time) ([]market.Tick, error)
	AppendRecords(ctx context.Context, records []Record) (int64, error)
	SaveWatermark(ctx context.Context, pairY, pairX, timeframe string, lastTs time.Time) error
	LoadWatermarks(ctx context.Context) (map[string]time.Time, error)
}

// Pair names the two legs of a combination; Y is regressed on X.
type Pair struct {
	Y string
	X string
}

// Name renders the conventional Y/X label.
func (p Pair) Name() string { return p.Y + "/" + p.X }

// Combo is one independent unit of work: a pair processed at one timeframe.
type Combo struct {
	Pair      Pair
	Timeframe time.Duration
}

// Key is the watermark map key for a combo.
func (c Combo) Key() string {
	return c.Pair.Y + "|" + c.Pair.X + "|" + market.FormatTimeframe(c.Timeframe)
}

// Options tunes the engine cadence and history handling.
type Options struct {
	Pairs          []Pair
	Timeframes     []time.Duration
	Windows        Windows
	FillMode       market.FillMode
	Lookback       time.Duration // cold-start history horizon
	UpdateInterval time.Duration
	FetchTimeout   time.Duration
}

// Engine iterates over every configured (pair, timeframe) combination on a
// fixed cadence. Combinations share no mutable state; each runs its own
// fetch → compute → persist cycle, and any transient I/O failure leaves the
// watermark untouched so the same range is retried next cycle.
type Engine struct {
	store Store
	log   zerolog.Logger
	opts  Options
	proc  *Processor

	mu         sync.Mutex
	watermarks map[string]time.Time

	now func() time.Time
}

// NewEngine builds an engine and loads persisted watermarks so a restart
// resumes where the previous run stopped.
func NewEngine(ctx context.Context, store Store, opts Options, log zerolog.Logger) (*Engine, error) {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	wms, err := store.LoadWatermarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watermarks: %w", err)
	}
	return &Engine{
		store:      store,
		log:        log,
		opts:       opts,
		proc:       NewProcessor(opts.Windows),
		watermarks: wms,
		now:        time.Now,
	}, nil
}

// Combos expands the configured pairs and timeframes into the work set.
func (e *Engine) Combos() []Combo {
	out := make([]Combo, 0, len(e.opts.Pairs)*len(e.opts.Timeframes))
	for _, p := range e.opts.Pairs {
		for _, tf := range e.opts.Timeframes {
			out = append(out, Combo{Pair: p, Timeframe: tf})
		}
	}
	return out
}

// Run executes cycles on the configured cadence until the context is
// canceled. Cancellation is cooperative: the engine stops between cycles and
// never leaves a partially advanced watermark.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.UpdateInterval)
	defer ticker.Stop()

	e.log.Info().
		Int("combos", len(e.Combos())).
		Dur("interval", e.opts.UpdateInterval).
		Msg("analytics engine started")

	for {
		e.RunCycle(ctx)
		select {
		case <-ctx.Done():
			e.log.Info().Msg("analytics engine stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle processes every combination once, fanning out one goroutine per
// combination. A failing combination logs and retries next cycle without
// blocking the others.
func (e *Engine) RunCycle(ctx context.Context) {
	var wg sync.WaitGroup
	for _, combo := range e.Combos() {
		wg.Add(1)
		go func(c Combo) {
			defer wg.Done()
			if err := e.processCombo(ctx, c); err != nil && ctx.Err() == nil {
				metrics.FailuresTotal.WithLabelValues(c.Pair.Name(), market.FormatTimeframe(c.Timeframe)).Inc()
				e.log.Warn().Err(err).
					Str("pair", c.Pair.Name()).
					Str("timeframe", market.FormatTimeframe(c.Timeframe)).
					Msg("combo cycle failed, will retry")
			}
		}(combo)
	}
	wg.Wait()
	metrics.CyclesTotal.Inc()
}

// processCombo runs one fetch → compute → persist pass for a combination.
func (e *Engine) processCombo(ctx context.Context, c Combo) error {
	now := e.now()
	since := e.fetchStart(c, now)

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	yTicks, err := e.store.TicksSince(fetchCtx, c.Pair.Y, since)
	if err != nil {
		return fmt.Errorf("fetch %s ticks: %w", c.Pair.Y, err)
	}
	xTicks, err := e.store.TicksSince(fetchCtx, c.Pair.X, since)
	if err != nil {
		return fmt.Errorf("fetch %s ticks: %w", c.Pair.X, err)
	}
	if len(yTicks) == 0 || len(xTicks) == 0 {
		return nil // nothing new; back to idle
	}

	yBars := completedBars(market.BuildBars(yTicks, c.Timeframe, e.opts.FillMode), c.Timeframe, now)
	xBars := completedBars(market.BuildBars(xTicks, c.Timeframe, e.opts.FillMode), c.Timeframe, now)
	records := e.proc.Run(c.Pair.Y, c.Pair.X, c.Timeframe, yBars, xBars)
	if len(records) == 0 {
		return nil
	}

	persistCtx, cancel2 := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel2()

	inserted, err := e.store.AppendRecords(persistCtx, records)
	if err != nil {
		return fmt.Errorf("persist records: %w", err)
	}

	lastTs := records[len(records)-1].Ts
	if err := e.store.SaveWatermark(persistCtx, c.Pair.Y, c.Pair.X, market.FormatTimeframe(c.Timeframe), lastTs); err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	e.setWatermark(c, lastTs)

	if inserted > 0 {
		metrics.RecordsTotal.WithLabelValues(c.Pair.Name(), market.FormatTimeframe(c.Timeframe)).Add(float64(inserted))
		e.log.Debug().
			Str("pair", c.Pair.Name()).
			Str("timeframe", market.FormatTimeframe(c.Timeframe)).
			Int64("inserted", inserted).
			Time("watermark", lastTs).
			Msg("persisted analytics records")
	}
	return nil
}

// fetchStart picks where to read ticks from: the watermark minus enough
// trailing history to refill the largest window, or the lookback horizon on
// cold start.
func (e *Engine) fetchStart(c Combo, now time.Time) time.Time {
	coldStart := now.Add(-e.opts.Lookback)
	wm, ok := e.watermark(c)
	if !ok {
		return coldStart
	}
	history := time.Duration(e.opts.Windows.Max()+1) * c.Timeframe
	start := wm.Add(-history)
	if start.Before(coldStart) {
		return coldStart
	}
	return start
}

func (e *Engine) watermark(c Combo) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	wm, ok := e.watermarks[c.Key()]
	return wm, ok
}

func (e *Engine) setWatermark(c Combo, ts time.Time) {
	e.mu.Lock()
	e.watermarks[c.Key()] = ts
	e.mu.Unlock()
}

// completedBars drops the still-open trailing interval so a bar is only
// persisted once its close can no longer change.
func completedBars(bars []market.Bar, timeframe time.Duration, now time.Time) []market.Bar {
	for len(bars) > 0 {
		last := bars[len(bars)-1]
		if !last.Ts.Add(timeframe).After(now) {
			break
		}
		bars = bars[:len(bars)-1]
	}
	return bars
}
