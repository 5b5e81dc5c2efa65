package sim

import (
	"quantsim/internal/candle"
	"quantsim/internal/store"
	"quantsim/internal/timeframe"
)

// injectWarmup preloads a pair's history so indicator lookbacks are
// populated before the first simulated minute. The 1m candles go in
// directly; bigger timeframes are rebuilt bucket by bucket the same way
// the live loop builds them, so custom timeframes end up with the exact
// truncated last-of-day bars they would have had.
func (s *Session) injectWarmup(ps PairSeries) {
	w := ps.Warmup
	if len(w) == 0 {
		return
	}
	s.Store.AddBatch(w, ps.Exchange, ps.Symbol, 1, store.AddOptions{WithSkip: true})

	for _, count := range s.Router.ConsideringTimeframes() {
		if count == 1 {
			continue
		}
		for idx := range w {
			minuteOfDay := int(w[idx].Timestamp/candle.MinuteMs) % timeframe.MinutesPerDay
			elapsed := minuteOfDay + 1

			num := 0
			switch {
			case timeframe.IsCustom(count) && elapsed == timeframe.MinutesPerDay:
				num = timeframe.LastBarOfDay(count)
			case elapsed%count == 0:
				num = count
			default:
				continue
			}
			start := idx - num + 1
			if start < 0 {
				continue
			}
			if start > 0 {
				candle.FixJumped(w[start-1], &w[start])
			}
			gen, err := candle.GenerateFromOneMinutes(num, w[start:idx+1], true)
			if err != nil {
				continue
			}
			s.Store.Add(gen, ps.Exchange, ps.Symbol, count, store.AddOptions{})
		}
	}
}
