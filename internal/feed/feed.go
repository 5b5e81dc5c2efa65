// Package feed assembles the 1m candle windows a session runs on: SQLite
// is the source of truth, Redis caches fully-assembled windows so
// repeated runs and optimization workers skip reassembly.
package feed

import (
	"context"
	"fmt"
	"log"
	"time"

	"quantsim/internal/cache"
	"quantsim/internal/candle"
	"quantsim/internal/repo"
	"quantsim/internal/router"
	"quantsim/internal/sim"
)

// Loader loads PairSeries for every pair a router needs.
type Loader struct {
	Repo *repo.Repository
	// Cache is optional; nil disables window caching.
	Cache *cache.Cache
	// WarmupMinutes of history loaded before the window start.
	WarmupMinutes int
}

// Load returns one series per router pair covering [startMs, finishMs]
// plus warmup. startMs must be a UTC midnight; the simulator's day
// arithmetic depends on it.
func (l *Loader) Load(ctx context.Context, rt *router.Router, startMs, finishMs int64) ([]sim.PairSeries, error) {
	if startMs%(int64(time.Hour/time.Millisecond)*24) != 0 {
		return nil, fmt.Errorf("feed: start %d is not a UTC midnight", startMs)
	}
	if finishMs <= startMs {
		return nil, fmt.Errorf("feed: empty window [%d, %d]", startMs, finishMs)
	}

	var out []sim.PairSeries
	for _, p := range rt.Pairs() {
		ps, err := l.loadPair(ctx, p.Exchange, p.Symbol, startMs, finishMs)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

func (l *Loader) loadPair(ctx context.Context, exchange, symbol string, startMs, finishMs int64) (sim.PairSeries, error) {
	warmStart := startMs - int64(l.WarmupMinutes)*candle.MinuteMs
	// window is [startMs, finishMs); the last stored minute is finishMs-1m
	lastMs := finishMs - candle.MinuteMs

	all, ok := l.cacheGet(ctx, exchange, symbol, warmStart, lastMs)
	if !ok {
		var err error
		all, err = l.Repo.Range(ctx, exchange, symbol, warmStart, lastMs)
		if err != nil {
			return sim.PairSeries{}, err
		}
		l.cachePut(ctx, exchange, symbol, warmStart, lastMs, all)
	}

	want := int((finishMs - startMs) / candle.MinuteMs)
	ps := sim.PairSeries{Exchange: exchange, Symbol: symbol}
	for _, c := range all {
		if c.Timestamp < startMs {
			ps.Warmup = append(ps.Warmup, c)
		} else {
			ps.Candles = append(ps.Candles, c)
		}
	}

	if len(ps.Candles) < want {
		return sim.PairSeries{}, fmt.Errorf(
			"feed: %s:%s has %d of %d candles in the window, import it first",
			exchange, symbol, len(ps.Candles), want)
	}
	if len(ps.Warmup) < l.WarmupMinutes {
		log.Printf("[feed] %s:%s warmup is short: %d of %d minutes",
			exchange, symbol, len(ps.Warmup), l.WarmupMinutes)
	}
	for i := 1; i < len(ps.Candles); i++ {
		if ps.Candles[i].Timestamp != ps.Candles[i-1].Timestamp+candle.MinuteMs {
			return sim.PairSeries{}, fmt.Errorf("feed: %s:%s has a gap at %d",
				exchange, symbol, ps.Candles[i-1].Timestamp)
		}
	}
	return ps, nil
}

func (l *Loader) cacheGet(ctx context.Context, exchange, symbol string, startMs, finishMs int64) ([]candle.Candle, bool) {
	if l.Cache == nil {
		return nil, false
	}
	return l.Cache.Get(ctx, exchange, symbol, startMs, finishMs)
}

func (l *Loader) cachePut(ctx context.Context, exchange, symbol string, startMs, finishMs int64, candles []candle.Candle) {
	if l.Cache == nil {
		return
	}
	l.Cache.Put(ctx, exchange, symbol, startMs, finishMs, candles)
}
