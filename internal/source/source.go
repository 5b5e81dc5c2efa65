// Package source imports historical 1m candles into the repository from
// pluggable exchange drivers, with retry, throttling, a circuit breaker,
// and backup-driver failover.
package source

import (
	"context"
	"errors"

	"quantsim/internal/candle"
)

// Sentinel errors drivers return so the importer can react specifically.
var (
	// ErrSymbolNotFound means the exchange does not list the symbol;
	// the importer fails over to the next backup driver.
	ErrSymbolNotFound = errors.New("source: symbol not found")

	// ErrExchangeInMaintenance means the exchange is temporarily down;
	// the importer waits and retries the same driver.
	ErrExchangeInMaintenance = errors.New("source: exchange in maintenance")

	// ErrCandleNotFound means the requested range predates the symbol's
	// listing; the importer stops instead of retrying.
	ErrCandleNotFound = errors.New("source: candle not found")

	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("source: circuit breaker open")
)

// Driver fetches 1m candles from one exchange. Implementations must be
// safe for sequential reuse; the importer never calls Fetch concurrently.
type Driver interface {
	// Name identifies the exchange, e.g. "binance".
	Name() string

	// StartingTime returns the timestamp of the symbol's first available
	// 1m candle. The importer clamps requested ranges to it.
	StartingTime(ctx context.Context, symbol string) (int64, error)

	// Fetch returns up to limit consecutive 1m candles starting at
	// startMs, oldest first. Fewer than limit candles signals the end of
	// available history.
	Fetch(ctx context.Context, symbol string, startMs int64, limit int) ([]candle.Candle, error)
}

// FillGaps makes a fetched batch contiguous: minutes missing from the
// exchange response (outages, zero-volume gaps) are filled with flat
// candles at the previous close so aggregation windows stay aligned.
func FillGaps(batch []candle.Candle) []candle.Candle {
	if len(batch) < 2 {
		return batch
	}
	out := make([]candle.Candle, 0, len(batch))
	out = append(out, batch[0])
	for _, c := range batch[1:] {
		prev := out[len(out)-1]
		for ts := prev.Timestamp + candle.MinuteMs; ts < c.Timestamp; ts += candle.MinuteMs {
			out = append(out, candle.Candle{
				Timestamp: ts,
				Open:      prev.Close,
				Close:     prev.Close,
				High:      prev.Close,
				Low:       prev.Close,
				Volume:    0,
			})
		}
		out = append(out, c)
	}
	return out
}
