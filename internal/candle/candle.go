// Package candle defines the one-minute OHLCV candle and the aggregation
// primitives the simulator is built on: higher-timeframe generation,
// gap fixing, and intra-candle price splitting.
package candle

import (
	"encoding/json"
	"fmt"
	"time"
)

// MinuteMs is one minute in milliseconds. Candle timestamps are aligned
// to minute boundaries.
const MinuteMs int64 = 60_000

// Candle is an immutable OHLCV bar. Timestamp is the bucket start in
// milliseconds UTC, minute-aligned.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
}

// Time returns the bucket start as a time.Time in UTC.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// IncludesPrice reports whether price falls inside [low, high].
func (c Candle) IncludesPrice(price float64) bool {
	return price >= c.Low && price <= c.High
}

// IsZero reports whether the candle is the zero value.
func (c Candle) IsZero() bool {
	return c.Timestamp == 0 && c.Open == 0 && c.Close == 0 && c.High == 0 && c.Low == 0
}

// Validate checks the OHLC ordering invariant and volume sign.
func (c Candle) Validate() error {
	if c.Low > c.Open || c.Low > c.Close {
		return fmt.Errorf("candle %d: low %.8f above open/close", c.Timestamp, c.Low)
	}
	if c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("candle %d: high %.8f below open/close", c.Timestamp, c.High)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %d: negative volume %.8f", c.Timestamp, c.Volume)
	}
	return nil
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Split divides a candle at an intra-candle price into the part observed
// before the price was touched and the remainder. The first part walks from
// open to price; the second opens at price and keeps the full remaining
// excursion. Both parts keep the original timestamp and volume.
func Split(c Candle, price float64) (before, after Candle) {
	before = Candle{
		Timestamp: c.Timestamp,
		Open:      c.Open,
		Close:     price,
		High:      max(c.Open, price),
		Low:       min(c.Open, price),
		Volume:    c.Volume,
	}
	after = Candle{
		Timestamp: c.Timestamp,
		Open:      price,
		Close:     c.Close,
		High:      c.High,
		Low:       c.Low,
		Volume:    c.Volume,
	}
	return before, after
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
