package trades

import "math"

// daysPerYear is the annualization basis; crypto markets trade every day.
const daysPerYear = 365

// Metrics summarizes a finished simulation.
type Metrics struct {
	TotalTrades     int     `json:"total_trades"`
	WinRate         float64 `json:"win_rate"`
	NetProfit       float64 `json:"net_profit"`
	NetProfitPct    float64 `json:"net_profit_pct"`
	TotalFees       float64 `json:"total_fees"`
	StartingBalance float64 `json:"starting_balance"`
	FinishingBal    float64 `json:"finishing_balance"`
	MaxDrawdown     float64 `json:"max_drawdown"` // fraction, <= 0
	AnnualReturn    float64 `json:"annual_return"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	SortinoRatio    float64 `json:"sortino_ratio"`
	CalmarRatio     float64 `json:"calmar_ratio"`
	OmegaRatio      float64 `json:"omega_ratio"`
	Liquidations    int     `json:"liquidations"`
}

// Compute derives all metrics from the journal. Ratios are based on daily
// returns resampled from the daily balance series.
func Compute(j *Journal, liquidations int) Metrics {
	m := Metrics{
		TotalTrades:  j.Count(),
		Liquidations: liquidations,
	}

	wins := 0
	for _, t := range j.Trades() {
		m.NetProfit += t.PNL
		m.TotalFees += t.Fee
		if t.PNL > 0 {
			wins++
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(wins) / float64(m.TotalTrades)
	}

	balance := j.DailyBalance()
	if len(balance) == 0 {
		return m
	}
	m.StartingBalance = balance[0]
	m.FinishingBal = balance[len(balance)-1]
	if m.StartingBalance != 0 {
		m.NetProfitPct = (m.FinishingBal - m.StartingBalance) / m.StartingBalance
	}

	returns := dailyReturns(balance)
	m.MaxDrawdown = maxDrawdown(balance)
	m.AnnualReturn = annualReturn(balance)
	m.SharpeRatio = sharpe(returns)
	m.SortinoRatio = sortino(returns)
	m.CalmarRatio = calmar(m.AnnualReturn, m.MaxDrawdown)
	m.OmegaRatio = omega(returns)
	return m
}

// dailyReturns converts the balance series into simple daily returns.
func dailyReturns(balance []float64) []float64 {
	if len(balance) < 2 {
		return nil
	}
	out := make([]float64, 0, len(balance)-1)
	for i := 1; i < len(balance); i++ {
		if balance[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, balance[i]/balance[i-1]-1)
	}
	return out
}

// maxDrawdown returns the deepest peak-to-trough decline as a negative
// fraction of the peak.
func maxDrawdown(balance []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, b := range balance {
		if b > peak {
			peak = b
		}
		if peak > 0 {
			dd := (b - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// annualReturn is the CAGR implied by the balance series length in days.
func annualReturn(balance []float64) float64 {
	days := len(balance) - 1
	if days <= 0 || balance[0] <= 0 || balance[len(balance)-1] <= 0 {
		return 0
	}
	growth := balance[len(balance)-1] / balance[0]
	return math.Pow(growth, daysPerYear/float64(days)) - 1
}

func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mu := mean(returns)
	sd := stddev(returns, mu)
	if sd == 0 {
		return 0
	}
	return mu / sd * math.Sqrt(daysPerYear)
}

func sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mu := mean(returns)
	var downSq float64
	for _, r := range returns {
		if r < 0 {
			downSq += r * r
		}
	}
	down := math.Sqrt(downSq / float64(len(returns)))
	if down == 0 {
		return 0
	}
	return mu / down * math.Sqrt(daysPerYear)
}

func calmar(annual, maxDD float64) float64 {
	if maxDD == 0 {
		return 0
	}
	return annual / math.Abs(maxDD)
}

// omega is the gain/loss ratio of daily returns around a zero threshold.
func omega(returns []float64) float64 {
	var gains, losses float64
	for _, r := range returns {
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	if losses == 0 {
		return 0
	}
	return gains / losses
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, mu float64) float64 {
	var sq float64
	for _, x := range xs {
		d := x - mu
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}
