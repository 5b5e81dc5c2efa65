package candle

import "fmt"

// GenerateFromOneMinutes builds a single candle of the requested minute
// count from a chronologically ordered window of one-minute candles.
//
// When acceptForming is false the window length must equal count; a short
// trailing window is otherwise accepted to synthesize the still-forming
// candle at a timeframe boundary.
func GenerateFromOneMinutes(count int, window []Candle, acceptForming bool) (Candle, error) {
	if len(window) == 0 {
		return Candle{}, fmt.Errorf("candle: empty aggregation window")
	}
	if !acceptForming && count > 0 && len(window) != count {
		return Candle{}, fmt.Errorf("candle: window length %d != timeframe count %d", len(window), count)
	}

	out := Candle{
		Timestamp: window[0].Timestamp,
		Open:      window[0].Open,
		Close:     window[len(window)-1].Close,
		High:      window[0].High,
		Low:       window[0].Low,
	}
	for _, c := range window {
		if c.High > out.High {
			out.High = c.High
		}
		if c.Low < out.Low {
			out.Low = c.Low
		}
		out.Volume += c.Volume
	}
	return out, nil
}

// FixJumped repairs the overnight-gap artifact some historical sources
// carry: when next.open differs from prev.close, the open is rewritten to
// prev.close and high/low are widened so the OHLC invariant holds.
// Idempotent; indicator continuity depends on it.
func FixJumped(prev Candle, next *Candle) {
	if next.Open == prev.Close {
		return
	}
	next.Open = prev.Close
	if prev.Close > next.High {
		next.High = prev.Close
	}
	if prev.Close < next.Low {
		next.Low = prev.Close
	}
}
