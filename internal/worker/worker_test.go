package worker

import (
	"context"
	"math"
	"sync"
	"testing"

	"quantsim/internal/candle"
	"quantsim/internal/router"
	"quantsim/internal/sim"
	"quantsim/internal/strategy"
	"quantsim/internal/trades"
)

// trendStrategy longs on every boundary while flat; the take-profit
// distance is its single searchable hyperparameter.
type trendStrategy struct {
	ctx *strategy.Context
}

func (s *trendStrategy) Hyperparameters() []strategy.Hyperparameter {
	return []strategy.Hyperparameter{
		{Name: "tp_pct", Type: strategy.TypeFloat, Min: 0.01, Max: 0.03, Step: 0.01, Default: 0.02},
	}
}
func (s *trendStrategy) DNA() string                { return "" }
func (s *trendStrategy) Init(ctx *strategy.Context) { s.ctx = ctx }
func (s *trendStrategy) ShouldLong() bool           { return true }
func (s *trendStrategy) ShouldShort() bool          { return false }
func (s *trendStrategy) ShouldCancel() bool         { return false }
func (s *trendStrategy) GoLong() strategy.Entry {
	price := s.ctx.Price()
	tp := s.ctx.HPFloat("tp_pct", 0.02)
	return strategy.Entry{
		Qty:        1,
		StopLoss:   price * 0.9,
		TakeProfit: price * (1 + tp),
	}
}
func (s *trendStrategy) GoShort() strategy.Entry { return strategy.Entry{} }
func (s *trendStrategy) UpdatePosition()         {}
func (s *trendStrategy) Terminate()              {}

func init() {
	strategy.Register("worker-trend", func() strategy.Strategy { return &trendStrategy{} })
}

func trendSeries(n int) []sim.PairSeries {
	out := make([]candle.Candle, n)
	for i := 0; i < n; i++ {
		o := 100 + 0.02*float64(i)
		c := o + 0.02
		out[i] = candle.Candle{
			Timestamp: int64(i) * candle.MinuteMs,
			Open:      o, Close: c, High: c + 0.5, Low: o - 0.5, Volume: 1,
		}
	}
	return []sim.PairSeries{{Exchange: "test", Symbol: "BTC-USDT", Candles: out}}
}

func newRuntime(t *testing.T, poolSize int) *Runtime {
	t.Helper()
	rt := &router.Router{Routes: []router.Route{
		{Exchange: "test", Symbol: "BTC-USDT", Timeframe: "1h", Strategy: "worker-trend"},
	}}
	cfg := sim.DefaultConfig()
	cfg.Silent = true
	r, err := NewRuntime(cfg, rt, trendSeries(2880), poolSize)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRuntimeEvaluate(t *testing.T) {
	r := newRuntime(t, 1)
	if r.WindowLength() != 2880 {
		t.Fatalf("WindowLength = %d", r.WindowLength())
	}

	m, err := r.Evaluate(context.Background(), "!") // tp_pct 0.01
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalTrades < 2 {
		t.Errorf("trades = %d, want several on a trending window", m.TotalTrades)
	}
	if m.NetProfit <= 0 {
		t.Errorf("net profit = %v", m.NetProfit)
	}
}

func TestRuntimeEvaluateIsDeterministic(t *testing.T) {
	r := newRuntime(t, 1)
	ctx := context.Background()

	a, err := r.Evaluate(ctx, "\"")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Evaluate(ctx, "\"")
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalTrades != b.TotalTrades || math.Abs(a.NetProfit-b.NetProfit) > 1e-9 {
		t.Errorf("replay diverged: %+v vs %+v", a, b)
	}
}

func TestRuntimeConcurrentEvaluations(t *testing.T) {
	r := newRuntime(t, 3)
	ctx := context.Background()

	ref, err := r.Evaluate(ctx, "!")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]trades.Metrics, 6)
	errs := make([]error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Evaluate(ctx, "!")
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("evaluation %d: %v", i, errs[i])
		}
		if results[i].TotalTrades != ref.TotalTrades {
			t.Errorf("evaluation %d diverged: %d != %d trades",
				i, results[i].TotalTrades, ref.TotalTrades)
		}
	}
}

func TestRuntimeEvaluateRange(t *testing.T) {
	r := newRuntime(t, 1)
	ctx := context.Background()

	// second day only; the first day extends the warmup
	m, err := r.EvaluateRange(ctx, "!", 1440, 2880)
	if err != nil {
		t.Fatal(err)
	}
	full, err := r.Evaluate(ctx, "!")
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalTrades == 0 || m.TotalTrades >= full.TotalTrades {
		t.Errorf("half-window trades = %d, full = %d", m.TotalTrades, full.TotalTrades)
	}

	for _, bad := range [][2]int{{-1, 100}, {0, 3000}, {100, 100}, {200, 100}} {
		if _, err := r.EvaluateRange(ctx, "!", bad[0], bad[1]); err == nil {
			t.Errorf("range %v must error", bad)
		}
	}
}

func TestRuntimeRejectsBadDNA(t *testing.T) {
	r := newRuntime(t, 1)
	if _, err := r.Evaluate(context.Background(), "!!"); err == nil {
		t.Error("wrong-length dna must error")
	}
	if _, err := r.Evaluate(context.Background(), "~"); err == nil {
		t.Error("out-of-grid gene must error")
	}
}

func TestRuntimeHyperparameters(t *testing.T) {
	r := newRuntime(t, 1)
	hps := r.Hyperparameters()
	if len(hps) != 1 || hps[0].Name != "tp_pct" {
		t.Errorf("Hyperparameters = %+v", hps)
	}
	// trendStrategy declares no combination rules
	if r.Rules() != nil {
		t.Error("Rules should be nil without a RuleChecker")
	}
}
