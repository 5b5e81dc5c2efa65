// Package smacross implements a simple SMA crossover strategy.
//
// Long signal: fast SMA crosses above slow SMA (golden cross).
// Short signal: fast SMA crosses below slow SMA (death cross).
//
// The periods and exit distances are hyperparameters, which also makes
// this the stock subject for optimization studies.
package smacross

import (
	"quantsim/internal/candle"
	"quantsim/internal/strategy"
)

func init() {
	strategy.Register("smacross", func() strategy.Strategy {
		return &SMACross{}
	})
}

// SMACross is stateless between candles; everything is recomputed from
// the context's candle window on each boundary tick.
type SMACross struct {
	ctx *strategy.Context

	fast int
	slow int
	qty  float64
	// stop and take distances as fractions of entry price
	stopPct float64
	takePct float64
}

// Hyperparameters declares the searchable space.
func (s *SMACross) Hyperparameters() []strategy.Hyperparameter {
	return []strategy.Hyperparameter{
		{Name: "fast_period", Type: strategy.TypeInt, Min: 3, Max: 20, Step: 1, Default: 9},
		{Name: "slow_period", Type: strategy.TypeInt, Min: 10, Max: 60, Step: 2, Default: 21},
		{Name: "stop_pct", Type: strategy.TypeFloat, Min: 0.01, Max: 0.10, Step: 0.01, Default: 0.03},
		{Name: "take_pct", Type: strategy.TypeFloat, Min: 0.01, Max: 0.20, Step: 0.01, Default: 0.06},
	}
}

// HyperparametersRules rejects combinations where the fast SMA is not
// faster than the slow one.
func (s *SMACross) HyperparametersRules(hp map[string]float64) bool {
	return hp["fast_period"] < hp["slow_period"]
}

// DNA returns "" so the declared defaults apply outside optimization.
func (s *SMACross) DNA() string { return "" }

// Init captures the context and resolved hyperparameters.
func (s *SMACross) Init(ctx *strategy.Context) {
	s.ctx = ctx
	s.fast = ctx.HPInt("fast_period", 9)
	s.slow = ctx.HPInt("slow_period", 21)
	s.stopPct = ctx.HPFloat("stop_pct", 0.03)
	s.takePct = ctx.HPFloat("take_pct", 0.06)
	s.qty = 1
}

// smas returns the current and previous fast/slow SMA values, and whether
// enough candles exist to compute them.
func (s *SMACross) smas() (fastNow, slowNow, fastPrev, slowPrev float64, ok bool) {
	candles := s.ctx.Candles(s.slow + 1)
	if len(candles) < s.slow+1 {
		return 0, 0, 0, 0, false
	}
	last := candles[1:]
	prev := candles[:len(candles)-1]
	return sma(last, s.fast), sma(last, s.slow), sma(prev, s.fast), sma(prev, s.slow), true
}

func sma(candles []candle.Candle, period int) float64 {
	sum := 0.0
	for _, c := range candles[len(candles)-period:] {
		sum += c.Close
	}
	return sum / float64(period)
}

func (s *SMACross) ShouldLong() bool {
	fastNow, slowNow, fastPrev, slowPrev, ok := s.smas()
	return ok && fastPrev <= slowPrev && fastNow > slowNow
}

func (s *SMACross) ShouldShort() bool {
	fastNow, slowNow, fastPrev, slowPrev, ok := s.smas()
	return ok && fastPrev >= slowPrev && fastNow < slowNow
}

// ShouldCancel leaves working entries alone; entries are market orders
// so there is rarely one to cancel.
func (s *SMACross) ShouldCancel() bool { return false }

func (s *SMACross) GoLong() strategy.Entry {
	price := s.ctx.Price()
	return strategy.Entry{
		Qty:        s.qty,
		Price:      0, // market
		StopLoss:   price * (1 - s.stopPct),
		TakeProfit: price * (1 + s.takePct),
	}
}

func (s *SMACross) GoShort() strategy.Entry {
	price := s.ctx.Price()
	return strategy.Entry{
		Qty:        s.qty,
		Price:      0,
		StopLoss:   price * (1 + s.stopPct),
		TakeProfit: price * (1 - s.takePct),
	}
}

// UpdatePosition relies on the resting stop/take orders; nothing to do
// per tick.
func (s *SMACross) UpdatePosition() {}

func (s *SMACross) Terminate() {}
