// cmd/import pulls historical 1m candles from a driver into SQLite so
// backtests and studies can run offline.
//
// Usage:
//
//	go run ./cmd/import --symbol=BTC-USDT --csv=data/btc-usdt-1m.csv \
//	    --exchange=binance --start=2024-01-01 --finish=2024-06-01
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantsim/config"
	"quantsim/internal/logger"
	"quantsim/internal/repo"
	"quantsim/internal/source"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	symbol := flag.String("symbol", "", "Symbol to import, e.g. BTC-USDT")
	exchange := flag.String("exchange", "binance", "Exchange name the candles are stored under")
	csvPath := flag.String("csv", "", "CSV driver source file (timestamp_ms,open,close,high,low,volume)")
	backupCSV := flag.String("backup-csv", "", "Optional backup CSV driver file")
	start := flag.String("start", "", "Start date (YYYY-MM-DD, UTC)")
	finish := flag.String("finish", "", "Finish date (YYYY-MM-DD, UTC, exclusive)")
	flag.Parse()

	cfg := config.Load()
	logger.Init("import", cfg.StorageDir, slog.LevelInfo)

	if *symbol == "" || *csvPath == "" {
		log.Fatal("[import] --symbol and --csv are required")
	}
	startMs, finishMs, err := parseWindow(*start, *finish)
	if err != nil {
		log.Fatalf("[import] %v", err)
	}

	repository, err := repo.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[import] %v", err)
	}
	defer repository.Close()

	driver, err := source.NewCSVDriver(*exchange, *csvPath)
	if err != nil {
		log.Fatalf("[import] %v", err)
	}
	var backups []source.Driver
	if *backupCSV != "" {
		bd, err := source.NewCSVDriver(*exchange+"-backup", *backupCSV)
		if err != nil {
			log.Fatalf("[import] %v", err)
		}
		backups = append(backups, bd)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	importer := source.NewImporter(repository, driver, backups...)
	importer.Throttle = 0 // local drivers need no rate limit

	began := time.Now()
	n, err := importer.Import(ctx, *symbol, startMs, finishMs-1)
	if err != nil {
		log.Fatalf("[import] %v", err)
	}
	log.Printf("[import] stored %d candles for %s:%s in %s",
		n, *exchange, *symbol, time.Since(began).Round(time.Millisecond))
}

func parseWindow(start, finish string) (int64, int64, error) {
	if start == "" || finish == "" {
		return 0, 0, fmt.Errorf("both --start and --finish are required")
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return 0, 0, fmt.Errorf("bad --start: %w", err)
	}
	f, err := time.Parse("2006-01-02", finish)
	if err != nil {
		return 0, 0, fmt.Errorf("bad --finish: %w", err)
	}
	if !f.After(s) {
		return 0, 0, fmt.Errorf("--finish must be after --start")
	}
	return s.UnixMilli(), f.UnixMilli(), nil
}
