// Package trades records completed position cycles and computes the
// trade/portfolio metrics optimization scores are built from.
package trades

import "github.com/google/uuid"

// CompletedTrade is one closed position cycle.
type CompletedTrade struct {
	ID         string  `json:"id"`
	Strategy   string  `json:"strategy"`
	Exchange   string  `json:"exchange"`
	Symbol     string  `json:"symbol"`
	Timeframe  string  `json:"timeframe"`
	Type       string  `json:"type"` // long, short
	Qty        float64 `json:"qty"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Fee        float64 `json:"fee"`
	PNL        float64 `json:"pnl"` // net of fees
	OpenedAt   int64   `json:"opened_at"`
	ClosedAt   int64   `json:"closed_at"`
}

// HoldingMinutes returns how long the cycle was held.
func (t CompletedTrade) HoldingMinutes() int64 {
	return (t.ClosedAt - t.OpenedAt) / 60_000
}

// NewID returns a fresh trade ID.
func NewID() string {
	return uuid.NewString()
}

// Journal is the append-only record of completed trades plus the daily
// portfolio balance series. One Journal per simulation session.
type Journal struct {
	trades       []CompletedTrade
	dailyBalance []float64
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{
		trades:       make([]CompletedTrade, 0, 256),
		dailyBalance: make([]float64, 0, 365),
	}
}

// Append records a completed trade.
func (j *Journal) Append(t CompletedTrade) {
	j.trades = append(j.trades, t)
}

// SnapshotBalance appends one point to the daily balance series.
func (j *Journal) SnapshotBalance(balance float64) {
	j.dailyBalance = append(j.dailyBalance, balance)
}

// Count returns the number of completed trades.
func (j *Journal) Count() int {
	return len(j.trades)
}

// Trades returns the recorded trades (caller must not mutate).
func (j *Journal) Trades() []CompletedTrade {
	return j.trades
}

// DailyBalance returns the balance series (caller must not mutate).
func (j *Journal) DailyBalance() []float64 {
	return j.dailyBalance
}

// Reset clears the journal. Called between optimization candidates.
func (j *Journal) Reset() {
	j.trades = j.trades[:0]
	j.dailyBalance = j.dailyBalance[:0]
}
