// Package store holds per-(exchange, symbol, timeframe) candle sequences in
// bounded ring buffers and drives the generation/execution hooks that fire
// when one-minute candles are inserted.
//
// Timeframes are identified by minute count; label resolution is the
// router's concern.
package store

import (
	"strconv"

	"quantsim/internal/candle"
	"quantsim/internal/ringbuf"
	"quantsim/internal/timeframe"
)

// DefaultCapacity is the per-key candle retention used by simulations.
const DefaultCapacity = 5000

// AddOptions controls the side effects of inserting a candle.
type AddOptions struct {
	// WithExecution triggers the execution hook (matching engine) on the
	// inserted one-minute candle.
	WithExecution bool
	// WithGeneration triggers forming-candle generation for every bigger
	// timeframe configured on the pair.
	WithGeneration bool
	// WithSkip suppresses generation even when WithGeneration is set.
	// Used while preloading warmup history.
	WithSkip bool
}

// ExecuteHook is invoked for price-move execution on a 1m insert.
type ExecuteHook func(c candle.Candle, exchange, symbol string)

// Store maps (exchange, symbol, timeframe minute count) to a bounded candle
// sequence. Single-owner: each simulation session holds its own Store.
type Store struct {
	capacity int
	rings    map[string]*ringbuf.Ring

	// bigger timeframes (minute counts, excluding 1m) configured per
	// "exchange:symbol" pair. Drives the generation hook.
	pairTFs map[string][]int

	// OnExecute, when set, runs for 1m inserts with WithExecution.
	OnExecute ExecuteHook
}

// New creates a Store with the given per-key capacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		rings:    make(map[string]*ringbuf.Ring),
		pairTFs:  make(map[string][]int),
	}
}

// ConfigureTimeframes registers the bigger timeframes (minute counts) that
// generation should maintain for a pair. 1m entries are ignored.
func (s *Store) ConfigureTimeframes(exchange, symbol string, counts []int) {
	kept := make([]int, 0, len(counts))
	for _, n := range counts {
		if n > 1 {
			kept = append(kept, n)
		}
	}
	s.pairTFs[pairKey(exchange, symbol)] = kept
}

// Add inserts one candle for the given pair and timeframe minute count.
// Insertion is idempotent by timestamp: a candle matching the tip timestamp
// overwrites the tip, older candles are dropped, newer ones are appended.
func (s *Store) Add(c candle.Candle, exchange, symbol string, count int, opts AddOptions) {
	upsert(s.ring(exchange, symbol, count), c)

	if count != 1 {
		return
	}
	if opts.WithExecution && s.OnExecute != nil {
		s.OnExecute(c, exchange, symbol)
	}
	if opts.WithGeneration && !opts.WithSkip {
		s.generateBiggerTimeframes(exchange, symbol)
	}
}

// AddBatch inserts a chronological batch of candles with a single set of
// options. Hooks fire once, after the batch, on the final candle.
func (s *Store) AddBatch(batch []candle.Candle, exchange, symbol string, count int, opts AddOptions) {
	if len(batch) == 0 {
		return
	}
	ring := s.ring(exchange, symbol, count)
	for _, c := range batch {
		upsert(ring, c)
	}
	if count != 1 {
		return
	}
	if opts.WithExecution && s.OnExecute != nil {
		s.OnExecute(batch[len(batch)-1], exchange, symbol)
	}
	if opts.WithGeneration && !opts.WithSkip {
		s.generateBiggerTimeframes(exchange, symbol)
	}
}

// Current returns the newest candle for a key.
func (s *Store) Current(exchange, symbol string, count int) (candle.Candle, bool) {
	ring, ok := s.rings[key(exchange, symbol, count)]
	if !ok {
		return candle.Candle{}, false
	}
	return ring.Tip()
}

// Range returns the last n candles for a key, oldest first.
func (s *Store) Range(exchange, symbol string, count, n int) []candle.Candle {
	ring, ok := s.rings[key(exchange, symbol, count)]
	if !ok {
		return nil
	}
	return ring.LastN(n)
}

// Len returns the number of stored candles for a key.
func (s *Store) Len(exchange, symbol string, count int) int {
	ring, ok := s.rings[key(exchange, symbol, count)]
	if !ok {
		return 0
	}
	return ring.Len()
}

// Reset drops all candles but keeps timeframe configuration. Called between
// optimization candidates.
func (s *Store) Reset() {
	for _, ring := range s.rings {
		ring.Reset()
	}
}

// generateBiggerTimeframes rebuilds the forming candle of every configured
// bigger timeframe from the 1m candles accumulated in the current bucket.
// Custom timeframes realign at UTC midnight; the minute-of-day offset stays
// valid for the truncated last-of-day bucket because its start is itself a
// multiple of the timeframe count.
func (s *Store) generateBiggerTimeframes(exchange, symbol string) {
	counts := s.pairTFs[pairKey(exchange, symbol)]
	if len(counts) == 0 {
		return
	}
	oneMin, ok := s.rings[key(exchange, symbol, 1)]
	if !ok {
		return
	}
	tip, ok := oneMin.Tip()
	if !ok {
		return
	}
	minuteOfDay := int(tip.Timestamp/candle.MinuteMs) % timeframe.MinutesPerDay

	for _, count := range counts {
		elapsed := minuteOfDay%count + 1
		window := oneMin.LastN(elapsed)
		forming, err := candle.GenerateFromOneMinutes(count, window, true)
		if err != nil {
			continue
		}
		upsert(s.ring(exchange, symbol, count), forming)
	}
}

func (s *Store) ring(exchange, symbol string, count int) *ringbuf.Ring {
	k := key(exchange, symbol, count)
	ring, ok := s.rings[k]
	if !ok {
		ring = ringbuf.New(s.capacity)
		s.rings[k] = ring
	}
	return ring
}

// upsert keeps per-key timestamps strictly increasing except for tip
// overwrites: same-minute inserts replace the tip, stale ones are dropped.
func upsert(ring *ringbuf.Ring, c candle.Candle) {
	tip, ok := ring.Tip()
	switch {
	case !ok || c.Timestamp > tip.Timestamp:
		ring.Append(c)
	case c.Timestamp == tip.Timestamp:
		ring.SetTip(c)
	}
}

func key(exchange, symbol string, count int) string {
	return exchange + ":" + symbol + ":" + strconv.Itoa(count)
}

func pairKey(exchange, symbol string) string {
	return exchange + ":" + symbol
}
