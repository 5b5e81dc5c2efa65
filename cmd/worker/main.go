// cmd/worker is a distributed optimization worker: it waits for init
// tasks on Redis, loads the study's candle window, and scores run tasks
// until stopped.
//
// Usage:
//
//	go run ./cmd/worker --concurrency=4
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantsim/config"
	"quantsim/internal/broker"
	"quantsim/internal/cache"
	"quantsim/internal/feed"
	"quantsim/internal/logger"
	"quantsim/internal/position"
	"quantsim/internal/repo"
	"quantsim/internal/sim"
	"quantsim/internal/worker"

	_ "quantsim/internal/strategies/smacross"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	concurrency := flag.Int("concurrency", 4, "Parallel evaluations per study")
	evalTimeout := flag.Duration("eval-timeout", 5*time.Minute, "Per-task evaluation timeout (0=disabled)")
	warmup := flag.Int("warmup-minutes", 0, "Warmup minutes to load before each window (0=config default)")
	flag.Parse()

	cfg := config.Load()
	logger.Init("worker", cfg.StorageDir, slog.LevelInfo)

	b, err := broker.New(broker.Config{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("[worker] %v", err)
	}
	defer b.Close()

	repository, err := repo.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[worker] %v", err)
	}
	defer repository.Close()

	warmupMinutes := *warmup
	if warmupMinutes <= 0 {
		// config candle count at 1h resolution
		warmupMinutes = cfg.WarmupCandles * 60
	}
	loader := &feed.Loader{Repo: repository, WarmupMinutes: warmupMinutes}
	if c, err := cache.New(cache.Config{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	}); err == nil {
		defer c.Close()
		loader.Cache = c
	} else {
		log.Printf("[worker] candle cache disabled: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	svc := &worker.Service{
		Broker: b,
		Loader: loader,
		Cfg: sim.Config{
			StartingBalance: cfg.StartingBalance,
			FeeRate:         cfg.FeeRate,
			Leverage:        cfg.Leverage,
			Mode:            position.Isolated,
			WarmupCandles:   cfg.WarmupCandles,
			Silent:          true,
		},
		Concurrency: *concurrency,
		EvalTimeout: *evalTimeout,
	}

	log.Printf("[worker] waiting for studies (concurrency=%d)", *concurrency)
	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[worker] %v", err)
	}
}
