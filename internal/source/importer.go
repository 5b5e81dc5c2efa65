package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"quantsim/internal/candle"
	"quantsim/internal/repo"
)

const (
	defaultBatchSize = 1000
	defaultThrottle  = 500 * time.Millisecond
	maxAttempts      = 4
	backoffBase      = time.Second
)

// Importer pulls 1m history batch by batch and persists it. Fetches run
// through a circuit breaker with exponential-backoff retries; a symbol
// missing on the primary exchange fails over to the backup drivers in
// order.
type Importer struct {
	Repo    *repo.Repository
	Driver  Driver
	Backups []Driver

	// BatchSize is the per-fetch candle count (default 1000).
	BatchSize int
	// Throttle is the pause between fetches (default 500ms).
	Throttle time.Duration

	breaker *CircuitBreaker
}

// NewImporter wires an importer with the default breaker (5 failures,
// 30s reset).
func NewImporter(r *repo.Repository, driver Driver, backups ...Driver) *Importer {
	im := &Importer{
		Repo:      r,
		Driver:    driver,
		Backups:   backups,
		BatchSize: defaultBatchSize,
		Throttle:  defaultThrottle,
		breaker:   NewCircuitBreaker(5, 30*time.Second),
	}
	im.breaker.OnStateChange = func(from, to State) {
		log.Printf("[source] circuit breaker %s -> %s", from, to)
	}
	return im
}

// Import fetches [startMs, finishMs] for one symbol and stores it.
// Returns the number of candles persisted.
func (im *Importer) Import(ctx context.Context, symbol string, startMs, finishMs int64) (int, error) {
	drivers := append([]Driver{im.Driver}, im.Backups...)

	var lastErr error
	for _, d := range drivers {
		n, err := im.importFrom(ctx, d, symbol, startMs, finishMs)
		if err == nil {
			return n, nil
		}
		if errors.Is(err, ErrSymbolNotFound) {
			log.Printf("[source] %s does not list %s, trying next driver", d.Name(), symbol)
			lastErr = err
			continue
		}
		return n, err
	}
	return 0, fmt.Errorf("source: no driver lists %s: %w", symbol, lastErr)
}

func (im *Importer) importFrom(ctx context.Context, d Driver, symbol string, startMs, finishMs int64) (int, error) {
	total := 0
	cursor := startMs

	listed, err := d.StartingTime(ctx, symbol)
	if err != nil {
		if errors.Is(err, ErrCandleNotFound) {
			log.Printf("[source] %s has no history for %s, stopping", d.Name(), symbol)
			return 0, nil
		}
		return 0, err
	}
	if listed > cursor {
		log.Printf("[source] %s lists %s from %s, clamping start",
			d.Name(), symbol, time.UnixMilli(listed).UTC().Format("2006-01-02 15:04"))
		cursor = listed
	}

	for cursor <= finishMs {
		batch, err := im.fetchWithRetry(ctx, d, symbol, cursor)
		if err != nil {
			if errors.Is(err, ErrCandleNotFound) {
				log.Printf("[source] %s: history for %s starts after %d, stopping", d.Name(), symbol, cursor)
				return total, nil
			}
			return total, err
		}
		if len(batch) == 0 {
			return total, nil
		}

		batch = FillGaps(batch)
		batch = clipTo(batch, finishMs)
		if len(batch) == 0 {
			return total, nil
		}
		if err := im.Repo.StoreBatch(ctx, d.Name(), symbol, batch); err != nil {
			return total, err
		}
		total += len(batch)
		cursor = batch[len(batch)-1].Timestamp + candle.MinuteMs

		log.Printf("[source] %s %s: imported %d candles, cursor at %s",
			d.Name(), symbol, total, time.UnixMilli(cursor).UTC().Format("2006-01-02 15:04"))

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-time.After(im.Throttle):
		}
	}
	return total, nil
}

// fetchWithRetry runs one fetch through the breaker with exponential
// backoff. Maintenance windows wait a full backoff step before retrying;
// the not-found sentinels are returned immediately.
func (im *Importer) fetchWithRetry(ctx context.Context, d Driver, symbol string, startMs int64) ([]candle.Candle, error) {
	var batch []candle.Candle

	for attempt := 1; ; attempt++ {
		err := im.breaker.Execute(func() error {
			var ferr error
			batch, ferr = d.Fetch(ctx, symbol, startMs, im.BatchSize)
			return ferr
		})
		if err == nil {
			return batch, nil
		}
		if errors.Is(err, ErrSymbolNotFound) || errors.Is(err, ErrCandleNotFound) {
			return nil, err
		}
		if attempt >= maxAttempts {
			return nil, fmt.Errorf("source: fetch %s@%d failed after %d attempts: %w",
				symbol, startMs, attempt, err)
		}

		wait := backoffBase << (attempt - 1)
		log.Printf("[source] %s fetch failed (attempt %d): %v, retrying in %s", d.Name(), attempt, err, wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// clipTo drops candles past the requested finish timestamp.
func clipTo(batch []candle.Candle, finishMs int64) []candle.Candle {
	for i, c := range batch {
		if c.Timestamp > finishMs {
			return batch[:i]
		}
	}
	return batch
}
