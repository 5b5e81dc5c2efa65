package optimize

import (
	"math"
	"testing"

	"quantsim/internal/trades"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		m     trades.Metrics
		ratio Ratio
		want  float64
	}{
		{
			"sharpe mid-range, enough trades",
			trades.Metrics{TotalTrades: 100, SharpeRatio: 2.25},
			RatioSharpe,
			0.5, // (2.25 + 0.5) / 5.5
		},
		{
			"ratio above the bound clamps to 1",
			trades.Metrics{TotalTrades: 100, SharpeRatio: 10},
			RatioSharpe,
			1,
		},
		{
			"non-positive ratio scores zero",
			trades.Metrics{TotalTrades: 100, SharpeRatio: -1},
			RatioSharpe,
			0,
		},
		{
			"NaN ratio scores zero",
			trades.Metrics{TotalTrades: 100, SharpeRatio: math.NaN()},
			RatioSharpe,
			0,
		},
		{
			"no trades scores zero",
			trades.Metrics{TotalTrades: 0, SharpeRatio: 3},
			RatioSharpe,
			0,
		},
		{
			"calmar uses its own bounds",
			trades.Metrics{TotalTrades: 100, CalmarRatio: 14.75},
			RatioCalmar,
			0.5, // (14.75 + 0.5) / 30.5
		},
	}
	for _, tt := range tests {
		got, err := Score(tt.m, tt.ratio, 60)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: Score = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestScoreUnsupportedRatio(t *testing.T) {
	if _, err := Score(trades.Metrics{}, Ratio("treynor"), 60); err == nil {
		t.Error("unsupported ratio must error")
	}
}

func TestTotalEffectRate(t *testing.T) {
	tests := []struct {
		total, optimal int
		want           float64
	}{
		{0, 60, 0},
		{60, 60, 1},
		{100, 60, 1},
		{6, 60, math.Log10(6) / math.Log10(60)},
		{10, 1, 1}, // degenerate optimal
	}
	for _, tt := range tests {
		if got := totalEffectRate(tt.total, tt.optimal); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("totalEffectRate(%d, %d) = %v, want %v", tt.total, tt.optimal, got, tt.want)
		}
	}
}

func TestScoreDiscountsLowTradeCounts(t *testing.T) {
	m := trades.Metrics{SharpeRatio: 3}
	m.TotalTrades = 3
	few, _ := Score(m, RatioSharpe, 60)
	m.TotalTrades = 90
	many, _ := Score(m, RatioSharpe, 60)
	if few >= many {
		t.Errorf("few-trade score %v not discounted below %v", few, many)
	}
}

func TestValidRatio(t *testing.T) {
	for _, r := range []Ratio{RatioSharpe, RatioCalmar, RatioSortino, RatioOmega} {
		if !ValidRatio(r) {
			t.Errorf("ValidRatio(%q) = false", r)
		}
	}
	if ValidRatio("treynor") {
		t.Error("unknown ratio accepted")
	}
}
