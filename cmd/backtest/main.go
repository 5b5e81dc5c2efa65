// cmd/backtest replays a historical candle window through the simulator
// and prints the performance report for the configured routes.
//
// Usage:
//
//	go run ./cmd/backtest --routes=routes.yml --start=2024-01-01 --finish=2024-06-01
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
	"quantsim/internal/cache"
	"quantsim/internal/feed"
	"quantsim/internal/logger"
	"quantsim/internal/metrics"
	"quantsim/internal/position"
	"quantsim/internal/repo"
	"quantsim/internal/router"
	"quantsim/internal/sim"
	"quantsim/internal/strategy"
	"quantsim/internal/trades"

	_ "quantsim/internal/strategies/smacross"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	routesPath := flag.String("routes", "routes.yml", "Path to routes YAML")
	start := flag.String("start", "", "Window start date (YYYY-MM-DD, UTC)")
	finish := flag.String("finish", "", "Window finish date (YYYY-MM-DD, UTC, exclusive)")
	useCache := flag.Bool("cache", false, "Use the Redis candle cache")
	flag.Parse()

	cfg := config.Load()
	logger.Init("backtest", cfg.StorageDir, slog.LevelInfo)

	startMs, finishMs, err := parseWindow(*start, *finish)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	rt, err := router.Load(*routesPath)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	if err := rt.Validate(strategy.Exists); err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	repository, err := repo.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	defer repository.Close()

	loader := &feed.Loader{
		Repo:          repository,
		WarmupMinutes: warmupMinutes(cfg, rt),
	}
	if *useCache {
		c, err := cache.New(cache.Config{
			Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("[backtest] %v", err)
		}
		defer c.Close()
		loader.Cache = c
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	series, err := loader.Load(ctx, rt, startMs, finishMs)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	session := sim.New(sim.Config{
		StartingBalance: cfg.StartingBalance,
		FeeRate:         cfg.FeeRate,
		Leverage:        cfg.Leverage,
		Mode:            position.Isolated,
		WarmupCandles:   cfg.WarmupCandles,
	}, rt)
	if cfg.MetricsAddr != "" {
		met, reg := metrics.New()
		metrics.Serve(cfg.MetricsAddr, reg)
		session.Met = met
	}

	began := time.Now()
	res, err := session.Run(ctx, series, nil)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	printSummary(res.Metrics, time.Since(began))
}

// warmupMinutes converts the configured warmup candle count into minutes
// of the largest route timeframe.
func warmupMinutes(cfg *config.Config, rt *router.Router) int {
	max := 1
	for _, n := range rt.ConsideringTimeframes() {
		if n > max {
			max = n
		}
	}
	return cfg.WarmupCandles * max
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

func printSummary(m trades.Metrics, took time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Total trades:     %-17d ║\n", m.TotalTrades)
	fmt.Printf("║  Win rate:         %-17s ║\n", pct(m.WinRate))
	fmt.Printf("║  Net profit:       %-17.2f ║\n", m.NetProfit)
	fmt.Printf("║  Net profit %%:     %-17s ║\n", pct(m.NetProfitPct))
	fmt.Printf("║  Max drawdown:     %-17s ║\n", pct(m.MaxDrawdown))
	fmt.Printf("║  Annual return:    %-17s ║\n", pct(m.AnnualReturn))
	fmt.Printf("║  Sharpe ratio:     %-17.2f ║\n", m.SharpeRatio)
	fmt.Printf("║  Sortino ratio:    %-17.2f ║\n", m.SortinoRatio)
	fmt.Printf("║  Calmar ratio:     %-17.2f ║\n", m.CalmarRatio)
	fmt.Printf("║  Liquidations:     %-17d ║\n", m.Liquidations)
	fmt.Printf("║  Took:             %-17s ║\n", took.Round(time.Millisecond))
	fmt.Println("╚══════════════════════════════════════╝")
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
