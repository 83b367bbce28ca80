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

	"statarb-go/internal/config"
	"statarb-go/internal/ingest"
	"statarb-go/internal/market"
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

	feed := ingest.NewFeed(cfg.Ingest.Provider, cfg.Symbols(), log,
		ingest.WithBaseURL(cfg.Ingest.WSURL),
		ingest.WithReconnectDelay(time.Duration(cfg.Ingest.ReconnectDelaySecs)*time.Second),
	)
	writer := ingest.NewWriter(db, cfg.Ingest.BatchSize, log)

	ticks := make(chan market.Tick, 1024)
	go func() {
		if err := feed.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	log.Info().
		Str("provider", cfg.Ingest.Provider).
		Strs("symbols", cfg.Symbols()).
		Msg("tick ingestion started")

	if err := writer.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("writer stopped")
		os.Exit(1)
	}
	log.Info().Msg("shutting down")
}
