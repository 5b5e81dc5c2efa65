// cmd/optimize searches a strategy's hyperparameter grid over a
// historical window. Scoring runs locally over a session pool by
// default; --distributed farms candidates out to cmd/worker instances
// through Redis.
//
// Usage:
//
//	go run ./cmd/optimize --routes=routes.yml --start=2024-01-01 --finish=2024-06-01 \
//	    --algorithm=genetic --ratio=sharpe
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
	"quantsim/internal/broker"
	"quantsim/internal/cache"
	"quantsim/internal/feed"
	"quantsim/internal/logger"
	"quantsim/internal/metrics"
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
	algorithm := flag.String("algorithm", "genetic", "Search algorithm: genetic, random, annealing, hillclimb")
	ratio := flag.String("ratio", "sharpe", "Objective ratio: sharpe, calmar, sortino, omega")
	popSize := flag.Int("population", 50, "Genetic population size")
	generations := flag.Int("generations", 30, "Genetic generations")
	iterations := flag.Int("iterations", 0, "Evaluation budget for random/annealing/hillclimb (0=auto)")
	optimalTrades := flag.Int("optimal-trades", 60, "Trade count with full score weight")
	workers := flag.Int("workers", 4, "Parallel evaluations")
	seed := flag.Int64("seed", 0, "Random seed (0=time-based)")
	evalTimeout := flag.Duration("eval-timeout", 5*time.Minute, "Per-candidate evaluation timeout (0=disabled)")
	distributed := flag.Bool("distributed", false, "Score candidates on remote workers via Redis")
	flag.Parse()

	cfg := config.Load()
	logger.Init("optimize", cfg.StorageDir, slog.LevelInfo)

	startMs, finishMs, err := parseWindow(*start, *finish)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}

	rt, err := router.Load(*routesPath)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}
	if err := rt.Validate(strategy.Exists); err != nil {
		log.Fatalf("[optimize] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	r0 := rt.Routes[0]
	study := optimize.StudyName(r0.Strategy, r0.Exchange, r0.Symbol, r0.Timeframe, *algorithm)

	var met *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m, reg := metrics.New()
		metrics.Serve(cfg.MetricsAddr, reg)
		met = m
	}

	simCfg := sim.Config{
		StartingBalance: cfg.StartingBalance,
		FeeRate:         cfg.FeeRate,
		Leverage:        cfg.Leverage,
		Mode:            position.Isolated,
		WarmupCandles:   cfg.WarmupCandles,
		Silent:          true,
	}

	var eval optimize.Evaluator
	var hps []strategy.Hyperparameter
	var rules func(map[string]float64) bool

	if *distributed {
		eval, hps, rules = setupDistributed(ctx, cfg, rt, study, *routesPath, startMs, finishMs, *workers)
	} else {
		runtime := setupLocal(ctx, cfg, rt, simCfg, startMs, finishMs, *workers)
		eval, hps, rules = runtime, runtime.Hyperparameters(), runtime.Rules()
	}

	csvw, err := optimize.NewCSVWriter(optimize.CSVPath(cfg.StorageDir, study), hps)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}
	defer csvw.Close()

	st := &optimize.Study{
		Name:  study,
		HPs:   hps,
		Rules: rules,
		Eval:  eval,
		CSV:   csvw,
		Met:   met,
		Params: optimize.Params{
			Algorithm:      *algorithm,
			Ratio:          optimize.Ratio(*ratio),
			PopulationSize: *popSize,
			Generations:    *generations,
			Iterations:     *iterations,
			OptimalTrades:  *optimalTrades,
			Workers:        *workers,
			Seed:           *seed,
			EvalTimeout:    *evalTimeout,
		},
	}

	began := time.Now()
	best, err := st.Run(ctx)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}

	values, _ := strategy.DecodeDNA(hps, best.DNA)
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        OPTIMIZATION COMPLETE         ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Study:     %-24s ║\n", study)
	fmt.Printf("║  Best DNA:  %-24q ║\n", best.DNA)
	fmt.Printf("║  Score:     %-24.4f ║\n", best.Score)
	fmt.Printf("║  Took:      %-24s ║\n", time.Since(began).Round(time.Second))
	fmt.Println("╚══════════════════════════════════════╝")
	for _, h := range hps {
		fmt.Printf("  %-16s = %v\n", h.Name, values[h.Name])
	}
}

func setupLocal(ctx context.Context, cfg *config.Config, rt *router.Router, simCfg sim.Config, startMs, finishMs int64, workers int) *worker.Runtime {
	repository, err := repo.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}
	loader := &feed.Loader{Repo: repository, WarmupMinutes: warmupMinutes(cfg, rt)}
	if c, err := cache.New(cache.Config{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	}); err == nil {
		loader.Cache = c
	} else {
		log.Printf("[optimize] candle cache disabled: %v", err)
	}

	series, err := loader.Load(ctx, rt, startMs, finishMs)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}
	runtime, err := worker.NewRuntime(simCfg, rt, series, workers)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}
	return runtime
}

func setupDistributed(ctx context.Context, cfg *config.Config, rt *router.Router, study, routesPath string, startMs, finishMs int64, workers int) (optimize.Evaluator, []strategy.Hyperparameter, func(map[string]float64) bool) {
	b, err := broker.New(broker.Config{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}
	if err := b.Purge(ctx); err != nil {
		log.Fatalf("[optimize] %v", err)
	}

	raw, err := os.ReadFile(routesPath)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}
	if err := b.PublishInit(ctx, broker.InitTask{
		Study:     study,
		Strategy:  rt.Routes[0].Strategy,
		RoutesRaw: raw,
		StartMs:   startMs,
		FinishMs:  finishMs,
	}, workers); err != nil {
		log.Fatalf("[optimize] %v", err)
	}

	strat, err := strategy.Build(rt.Routes[0].Strategy)
	if err != nil {
		log.Fatalf("[optimize] %v", err)
	}
	var rules func(map[string]float64) bool
	if rc, ok := strat.(strategy.RuleChecker); ok {
		rules = rc.HyperparametersRules
	}

	remote := &worker.RemoteEvaluator{Broker: b, Study: study}
	remote.Start(ctx)
	return remote, strat.Hyperparameters(), rules
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
