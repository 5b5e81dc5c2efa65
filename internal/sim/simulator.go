package sim

import (
	"context"
	"fmt"
	"log"
	"time"

	"quantsim/internal/candle"
	"quantsim/internal/store"
	"quantsim/internal/timeframe"
	"quantsim/internal/trades"
)

// Result bundles the outcome of one simulation run.
type Result struct {
	Metrics      trades.Metrics
	Trades       []trades.CompletedTrade
	DailyBalance []float64
}

// Run simulates the loaded candle window against the session's routes and
// returns the performance result. hp, when non-nil, overrides every
// strategy's hyperparameters (used by the optimizer); nil falls back to
// each strategy's DNA or declared defaults.
//
// The loop advances in variable steps: one minute while orders are near
// the price, up to the smallest route timeframe otherwise. Steps never
// cross a UTC day boundary so daily balance snapshots and custom-timeframe
// realignment stay exact.
func (s *Session) Run(ctx context.Context, series []PairSeries, hp map[string]float64) (Result, error) {
	began := time.Now()
	s.reset()
	if err := s.validateSeries(series); err != nil {
		return Result{}, err
	}

	for _, ps := range series {
		s.Store.ConfigureTimeframes(ps.Exchange, ps.Symbol, s.Router.ConsideringTimeframes())
	}
	for _, rt := range s.Router.Routes {
		a, err := newAdapter(s, rt, hp)
		if err != nil {
			return Result{}, err
		}
		s.adapters = append(s.adapters, a)
	}

	for _, ps := range series {
		s.injectWarmup(ps)
	}

	length := len(series[0].Candles)
	s.startTimeMs = series[0].Candles[0].Timestamp
	s.timeMs = s.startTimeMs
	s.snapshotBalance()

	minTF := s.Router.MinTimeframeSkip()
	consider := s.Router.ConsideringTimeframes()

	future := make(map[string][]candle.Candle, len(series))
	for _, ps := range series {
		future[ps.Key()] = ps.Candles
	}

	i := minTF
	remainder := minTF
	skip := minTF

	for i <= length {
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("sim: run canceled: %w", ctx.Err())
		default:
		}

		s.timeMs = series[0].Candles[i-1].Timestamp + candle.MinuteMs

		for si := range series {
			ps := &series[si]
			cs := ps.Candles

			if i-skip > 0 {
				candle.FixJumped(cs[i-skip-1], &cs[i-skip])
			}
			short := cs[i-skip : i]
			s.Store.AddBatch(short, ps.Exchange, ps.Symbol, 1, store.AddOptions{})

			forming, err := candle.GenerateFromOneMinutes(0, short, true)
			if err != nil {
				return Result{}, fmt.Errorf("sim: %s: %w", ps.Key(), err)
			}
			s.Engine.SimulatePriceChange(forming, ps.Exchange, ps.Symbol)
			if s.Met != nil {
				s.Met.CandlesProcessed.Add(float64(len(short)))
			}

			for _, count := range consider {
				if count == 1 {
					continue
				}
				if (i%timeframe.MinutesPerDay)%count != 0 {
					continue
				}
				num := count
				if i%timeframe.MinutesPerDay == 0 && timeframe.IsCustom(count) {
					num = timeframe.LastBarOfDay(count)
				}
				if i-num-1 >= 0 {
					candle.FixJumped(cs[i-num-1], &cs[i-num])
				}
				gen, err := candle.GenerateFromOneMinutes(num, cs[i-num:i], true)
				if err != nil {
					return Result{}, fmt.Errorf("sim: %s %dm: %w", ps.Key(), count, err)
				}
				s.Store.Add(gen, ps.Exchange, ps.Symbol, count, store.AddOptions{})
			}
		}

		s.executeStrategies(i)

		if i%timeframe.MinutesPerDay == 0 {
			s.snapshotBalance()
		}

		// never skip across a day boundary
		if (i+remainder)/timeframe.MinutesPerDay != i/timeframe.MinutesPerDay {
			remainder = timeframe.MinutesPerDay - i%timeframe.MinutesPerDay
		}
		skip = s.Engine.SkipNCandles(s.Router.Routes, future, i, remainder)
		if skip < remainder {
			remainder -= skip
		} else {
			remainder = minTF
		}
		i += skip
	}

	s.finish()

	res := Result{
		Metrics:      trades.Compute(s.Journal, s.liquidations),
		Trades:       s.Journal.Trades(),
		DailyBalance: s.Journal.DailyBalance(),
	}
	if s.Met != nil {
		s.Met.ObserveSimulation(began)
	}
	if !s.cfg.Silent {
		log.Printf("[sim] finished: %d trades, net profit %.2f (%.2f%%)",
			res.Metrics.TotalTrades, res.Metrics.NetProfit, res.Metrics.NetProfitPct*100)
	}
	return res, nil
}

// executeStrategies runs every route whose timeframe boundary lands on
// minute i, then drains the market orders the tick produced.
func (s *Session) executeStrategies(i int) {
	for _, a := range s.adapters {
		count := a.tfCount()
		if count <= 0 {
			continue
		}
		if (i%timeframe.MinutesPerDay)%count == 0 {
			a.Execute()
		}
	}
	s.Book.ExecutePendingMarketOrders(s.timeMs)
}

// finish terminates strategies and takes the closing balance snapshot.
func (s *Session) finish() {
	for _, a := range s.adapters {
		a.Terminate()
	}
	s.Book.ExecutePendingMarketOrders(s.timeMs)
	s.snapshotBalance()
}
