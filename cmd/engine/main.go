package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"statarb-go/internal/analytics"
	"statarb-go/internal/config"
	"statarb-go/internal/metrics"
	"statarb-go/internal/store"
	"statarb-go/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort
	cfgPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("open store")
	}

	timeframes, err := cfg.TimeframeDurations()
	if err != nil {
		log.Fatal().Err(err).Msg("parse timeframes")
	}

	pairs := make([]analytics.Pair, len(cfg.Analytics.Pairs))
	for i, p := range cfg.Analytics.Pairs {
		pairs[i] = analytics.Pair{Y: p.Y, X: p.X}
	}

	opts := analytics.Options{
		Pairs:      pairs,
		Timeframes: timeframes,
		Windows: analytics.Windows{
			Hedge:           cfg.Analytics.RollingWindows.Hedge,
			ZScore:          cfg.Analytics.RollingWindows.ZScore,
			Correlation:     cfg.Analytics.RollingWindows.Correlation,
			Volatility:      cfg.Analytics.RollingWindows.Volatility,
			MinObservations: cfg.Analytics.MinObservations,
		},
		FillMode:       cfg.Analytics.FillMode,
		Lookback:       cfg.Lookback(),
		UpdateInterval: cfg.UpdateInterval(),
		FetchTimeout:   15 * time.Second,
	}

	eng, err := analytics.NewEngine(ctx, db, opts, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("engine stopped")
		os.Exit(1)
	}
	log.Info().Msg("shutting down")
}
