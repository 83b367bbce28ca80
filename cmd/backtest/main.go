package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"statarb-go/internal/analytics"
	"statarb-go/internal/backtest"
	"statarb-go/internal/config"
	"statarb-go/internal/export"
	"statarb-go/internal/store"
	"statarb-go/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort
	var (
		cfgPath   = flag.String("config", "internal/config/config.yaml", "path to YAML config")
		pairY     = flag.String("pair-y", "", "dependent leg symbol (defaults to the first configured pair)")
		pairX     = flag.String("pair-x", "", "independent leg symbol")
		timeframe = flag.String("timeframe", "1m", "timeframe label, e.g. 1s, 1m, 5m")
		sinceStr  = flag.String("since", "", "only replay records after this RFC3339 timestamp")
		closeEnd  = flag.Bool("close-at-end", false, "realize an open position at the final record")
		dump      = flag.String("dump", "", "also write the replayed records to this file (.csv or .json)")
	)
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	if *pairY == "" || *pairX == "" {
		p := cfg.Analytics.Pairs[0]
		*pairY, *pairX = p.Y, p.X
	}

	var since time.Time
	if *sinceStr != "" {
		since, err = time.Parse(time.RFC3339, *sinceStr)
		if err != nil {
			log.Fatal().Err(err).Msg("parse -since")
		}
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("open store")
	}

	ctx := context.Background()
	records, err := db.Records(ctx, *pairY, *pairX, *timeframe, since)
	if err != nil {
		log.Fatal().Err(err).Msg("load records")
	}
	if len(records) == 0 {
		log.Fatal().
			Str("pair", *pairY+"/"+*pairX).
			Str("timeframe", *timeframe).
			Msg("no analytics records; run the engine first")
	}

	if *dump != "" {
		if err := dumpRecords(*dump, records); err != nil {
			log.Fatal().Err(err).Str("path", *dump).Msg("dump records")
		}
		log.Info().Str("path", *dump).Int("records", len(records)).Msg("records written")
	}

	result := backtest.Run(backtest.FromRecords(records), backtest.Config{
		EntryThreshold: cfg.Backtest.EntryThreshold,
		ExitThreshold:  cfg.Backtest.ExitThreshold,
		CloseAtEnd:     cfg.Backtest.CloseAtEnd || *closeEnd,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("encode result")
	}
}

// dumpRecords writes the replayed series to disk, choosing the format from
// the file extension.
func dumpRecords(path string, records []analytics.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".csv") {
		return export.WriteCSV(f, records)
	}
	return export.WriteJSON(f, records)
}
