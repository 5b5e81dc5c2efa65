// cmd/walkforward runs walk-forward validation: per fold it optimizes on
// the in-sample window and scores the winner on the following
// out-of-sample window. The default mode rolls calendar-month train/test
// windows forward by --inc-months; --anchored switches to equal
// day-aligned segments with an anchored train start.
//
// Usage:
//
//	go run ./cmd/walkforward --routes=routes.yml --start=2023-01-01 --finish=2024-01-01 \
//	    --train-months=2 --test-months=1 --inc-months=1
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
	"quantsim/internal/optimize"
	"quantsim/internal/position"
	"quantsim/internal/repo"
	"quantsim/internal/router"
	"quantsim/internal/sim"
	"quantsim/internal/strategy"
	"quantsim/internal/worker"

	_ "quantsim/internal/strategies/smacross"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	routesPath := flag.String("routes", "routes.yml", "Path to routes YAML")
	start := flag.String("start", "", "Window start date (YYYY-MM-DD, UTC)")
	finish := flag.String("finish", "", "Window finish date (YYYY-MM-DD, UTC, exclusive)")
	trainMonths := flag.Int("train-months", 2, "Training window in calendar months")
	testMonths := flag.Int("test-months", 1, "Test window in calendar months")
	incMonths := flag.Int("inc-months", 1, "Step between folds in calendar months")
	anchored := flag.Bool("anchored", false, "Use anchored equal segments instead of month windows")
	folds := flag.Int("folds", 4, "Number of folds in anchored mode")
	algorithm := flag.String("algorithm", "genetic", "Per-fold search algorithm")
	ratio := flag.String("ratio", "sharpe", "Objective ratio")
	popSize := flag.Int("population", 30, "Genetic population size per fold")
	generations := flag.Int("generations", 15, "Genetic generations per fold")
	workers := flag.Int("workers", 4, "Parallel evaluations")
	seed := flag.Int64("seed", 0, "Random seed (0=time-based)")
	evalTimeout := flag.Duration("eval-timeout", 5*time.Minute, "Per-candidate evaluation timeout (0=disabled)")
	flag.Parse()

	cfg := config.Load()
	logger.Init("walkforward", cfg.StorageDir, slog.LevelInfo)

	startMs, finishMs, err := parseWindow(*start, *finish)
	if err != nil {
		log.Fatalf("[walkforward] %v", err)
	}

	rt, err := router.Load(*routesPath)
	if err != nil {
		log.Fatalf("[walkforward] %v", err)
	}
	if err := rt.Validate(strategy.Exists); err != nil {
		log.Fatalf("[walkforward] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	repository, err := repo.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[walkforward] %v", err)
	}
	defer repository.Close()

	loader := &feed.Loader{Repo: repository, WarmupMinutes: warmupMinutes(cfg, rt)}
	if c, err := cache.New(cache.Config{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	}); err == nil {
		defer c.Close()
		loader.Cache = c
	} else {
		log.Printf("[walkforward] candle cache disabled: %v", err)
	}

	series, err := loader.Load(ctx, rt, startMs, finishMs)
	if err != nil {
		log.Fatalf("[walkforward] %v", err)
	}

	runtime, err := worker.NewRuntime(sim.Config{
		StartingBalance: cfg.StartingBalance,
		FeeRate:         cfg.FeeRate,
		Leverage:        cfg.Leverage,
		Mode:            position.Isolated,
		WarmupCandles:   cfg.WarmupCandles,
		Silent:          true,
	}, rt, series, *workers)
	if err != nil {
		log.Fatalf("[walkforward] %v", err)
	}

	r0 := rt.Routes[0]
	base := optimize.StudyName(r0.Strategy, r0.Exchange, r0.Symbol, r0.Timeframe, *algorithm)
	newStudy := func(name string, eval optimize.Evaluator) *optimize.Study {
		return &optimize.Study{
			Name:  base + "-" + name,
			HPs:   runtime.Hyperparameters(),
			Rules: runtime.Rules(),
			Eval:  eval,
			Params: optimize.Params{
				Algorithm:      *algorithm,
				Ratio:          optimize.Ratio(*ratio),
				PopulationSize: *popSize,
				Generations:    *generations,
				Workers:        *workers,
				Seed:           *seed,
				EvalTimeout:    *evalTimeout,
			},
		}
	}

	began := time.Now()
	var res optimize.WalkForwardResult
	if *anchored {
		res, err = optimize.WalkForward(ctx, newStudy, runtime, *folds)
	} else {
		res, err = optimize.WalkForwardMonths(ctx, newStudy, runtime, optimize.MonthParams{
			StartMs:     startMs,
			TrainMonths: *trainMonths,
			TestMonths:  *testMonths,
			IncMonths:   *incMonths,
		})
	}
	if err != nil {
		log.Fatalf("[walkforward] %v", err)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║               WALK-FORWARD COMPLETE                  ║")
	fmt.Println("╠══════════════════════════════════════════════════════╣")
	for i, fr := range res.Folds {
		fmt.Printf("║  Fold %d: train=%.4f test=%.4f dna=%-12q ║\n",
			i+1, fr.Best.Score, fr.TestScore, fr.Best.DNA)
	}
	fmt.Printf("║  Mean out-of-sample score: %-25.4f ║\n", res.MeanTestScore)
	fmt.Printf("║  Took: %-45s ║\n", time.Since(began).Round(time.Second))
	fmt.Println("╚══════════════════════════════════════════════════════╝")
}

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
