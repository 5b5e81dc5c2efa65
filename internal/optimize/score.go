// Package optimize searches a strategy's hyperparameter grid for the
// candidate with the best risk-adjusted backtest performance. Candidates
// are DNA strings; scoring runs full simulations through an Evaluator.
package optimize

import (
	"fmt"
	"math"

	"quantsim/internal/trades"
)

// Ratio selects which risk-adjusted ratio drives the objective.
type Ratio string

const (
	RatioSharpe  Ratio = "sharpe"
	RatioCalmar  Ratio = "calmar"
	RatioSortino Ratio = "sortino"
	RatioOmega   Ratio = "omega"
)

// ratioBounds holds the normalization range per ratio. Values are mapped
// linearly onto [0, 1] and clamped.
var ratioBounds = map[Ratio][2]float64{
	RatioSharpe:  {-0.5, 5},
	RatioCalmar:  {-0.5, 30},
	RatioSortino: {-0.5, 15},
	RatioOmega:   {-0.5, 5},
}

// ValidRatio reports whether r is a supported objective ratio.
func ValidRatio(r Ratio) bool {
	_, ok := ratioBounds[r]
	return ok
}

// Score turns simulation metrics into the optimization objective in
// [0, 1]. A log-scaled trade-count factor discounts candidates that trade
// far less than optimalTrades, so a lucky three-trade run cannot outrank a
// consistently profitable one. Non-positive ratios score zero.
func Score(m trades.Metrics, ratio Ratio, optimalTrades int) (float64, error) {
	bounds, ok := ratioBounds[ratio]
	if !ok {
		return 0, fmt.Errorf("optimize: unsupported ratio %q", ratio)
	}

	var raw float64
	switch ratio {
	case RatioSharpe:
		raw = m.SharpeRatio
	case RatioCalmar:
		raw = m.CalmarRatio
	case RatioSortino:
		raw = m.SortinoRatio
	case RatioOmega:
		raw = m.OmegaRatio
	}
	if raw <= 0 || math.IsNaN(raw) {
		return 0, nil
	}

	rate := totalEffectRate(m.TotalTrades, optimalTrades)
	return rate * normalize(raw, bounds[0], bounds[1]), nil
}

// totalEffectRate is min(1, log10(trades)/log10(optimal)).
func totalEffectRate(total, optimal int) float64 {
	if total <= 0 {
		return 0
	}
	if optimal <= 1 || total >= optimal {
		return 1
	}
	return math.Log10(float64(total)) / math.Log10(float64(optimal))
}

// normalize maps v from [lo, hi] onto [0, 1], clamped.
func normalize(v, lo, hi float64) float64 {
	n := (v - lo) / (hi - lo)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
