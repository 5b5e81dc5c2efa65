// Package worker scores optimization candidates: a Runtime keeps a pool
// of simulation sessions over one loaded candle window, and the Service
// runs that pool behind the Redis broker for distributed studies.
package worker

import (
	"context"
	"fmt"

	"quantsim/internal/candle"
	"quantsim/internal/router"
	"quantsim/internal/sim"
	"quantsim/internal/strategy"
	"quantsim/internal/trades"
)

// Runtime evaluates DNA candidates against a fixed candle window. Safe
// for concurrent use: each evaluation takes a pooled session and its own
// copy of the candle slices (the simulator patches jumped candles in
// place).
type Runtime struct {
	rt       *router.Router
	series   []sim.PairSeries
	hps      []strategy.Hyperparameter
	sessions chan *sim.Session
}

// NewRuntime builds a runtime with poolSize sessions. The window and
// warmup come pre-loaded from the feed; cfg should have Silent set.
func NewRuntime(cfg sim.Config, rt *router.Router, series []sim.PairSeries, poolSize int) (*Runtime, error) {
	if poolSize <= 0 {
		poolSize = 1
	}
	if len(rt.Routes) == 0 {
		return nil, fmt.Errorf("worker: no routes configured")
	}
	strat, err := strategy.Build(rt.Routes[0].Strategy)
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		rt:       rt,
		series:   series,
		hps:      strat.Hyperparameters(),
		sessions: make(chan *sim.Session, poolSize),
	}
	for i := 0; i < poolSize; i++ {
		r.sessions <- sim.New(cfg, rt)
	}
	return r, nil
}

// Hyperparameters returns the optimized strategy's declared space.
func (r *Runtime) Hyperparameters() []strategy.Hyperparameter {
	return r.hps
}

// Rules returns the strategy's combination constraint, or nil.
func (r *Runtime) Rules() func(hp map[string]float64) bool {
	strat, err := strategy.Build(r.rt.Routes[0].Strategy)
	if err != nil {
		return nil
	}
	rc, ok := strat.(strategy.RuleChecker)
	if !ok {
		return nil
	}
	return rc.HyperparametersRules
}

// WindowLength is the number of loaded window candles.
func (r *Runtime) WindowLength() int {
	if len(r.series) == 0 {
		return 0
	}
	return len(r.series[0].Candles)
}

// Evaluate runs one candidate over the full window.
func (r *Runtime) Evaluate(ctx context.Context, dna string) (trades.Metrics, error) {
	return r.EvaluateRange(ctx, dna, 0, r.WindowLength())
}

// EvaluateRange runs one candidate over [start, end) of the window.
// Candles before start extend the warmup.
func (r *Runtime) EvaluateRange(ctx context.Context, dna string, start, end int) (trades.Metrics, error) {
	values, err := strategy.DecodeDNA(r.hps, dna)
	if err != nil {
		return trades.Metrics{}, err
	}

	var sess *sim.Session
	select {
	case sess = <-r.sessions:
	case <-ctx.Done():
		return trades.Metrics{}, ctx.Err()
	}
	defer func() { r.sessions <- sess }()

	series, err := r.cloneWindow(start, end)
	if err != nil {
		return trades.Metrics{}, err
	}
	res, err := sess.Run(ctx, series, values)
	if err != nil {
		return trades.Metrics{}, err
	}
	return res.Metrics, nil
}

// cloneWindow copies the [start, end) window per pair so concurrent runs
// never share candle memory.
func (r *Runtime) cloneWindow(start, end int) ([]sim.PairSeries, error) {
	if start < 0 || end > r.WindowLength() || start >= end {
		return nil, fmt.Errorf("worker: bad window [%d, %d) of %d", start, end, r.WindowLength())
	}
	out := make([]sim.PairSeries, len(r.series))
	for i, ps := range r.series {
		warm := make([]candle.Candle, 0, len(ps.Warmup)+start)
		warm = append(warm, ps.Warmup...)
		warm = append(warm, ps.Candles[:start]...)

		window := make([]candle.Candle, end-start)
		copy(window, ps.Candles[start:end])

		out[i] = sim.PairSeries{
			Exchange: ps.Exchange,
			Symbol:   ps.Symbol,
			Warmup:   warm,
			Candles:  window,
		}
	}
	return out, nil
}
