package strategy

import (
	"quantsim/internal/candle"
	"quantsim/internal/position"
	"quantsim/internal/store"
)

// Context is the strategy's read view of its route during a session.
// Candle queries return only already-aggregated candles for the route's
// own timeframe; the forming 1m candle is never exposed here.
type Context struct {
	Exchange  string
	Symbol    string
	Timeframe string

	// HP holds the injected hyperparameter assignment, keyed by name.
	HP map[string]float64

	tfCount int
	store   *store.Store
	pos     *position.Position
}

// NewContext wires a context for one route. Called by the session.
func NewContext(exchange, symbol, tf string, tfCount int, st *store.Store, pos *position.Position) *Context {
	return &Context{
		Exchange:  exchange,
		Symbol:    symbol,
		Timeframe: tf,
		HP:        make(map[string]float64),
		tfCount:   tfCount,
		store:     st,
		pos:       pos,
	}
}

// Candles returns the last n aggregated candles of the route timeframe,
// oldest first.
func (c *Context) Candles(n int) []candle.Candle {
	return c.store.Range(c.Exchange, c.Symbol, c.tfCount, n)
}

// CurrentCandle returns the latest aggregated candle of the route
// timeframe.
func (c *Context) CurrentCandle() candle.Candle {
	cur, _ := c.store.Current(c.Exchange, c.Symbol, c.tfCount)
	return cur
}

// ExtraCandles returns candles of another configured feed, oldest first.
func (c *Context) ExtraCandles(exchange, symbol string, tfCount, n int) []candle.Candle {
	return c.store.Range(exchange, symbol, tfCount, n)
}

// Price returns the position's current mark price.
func (c *Context) Price() float64 {
	return c.pos.CurrentPrice
}

// Position returns the route's position.
func (c *Context) Position() *position.Position {
	return c.pos
}

// HPInt reads an int hyperparameter with a fallback default.
func (c *Context) HPInt(name string, def int) int {
	if v, ok := c.HP[name]; ok {
		return int(v)
	}
	return def
}

// HPFloat reads a float hyperparameter with a fallback default.
func (c *Context) HPFloat(name string, def float64) float64 {
	if v, ok := c.HP[name]; ok {
		return v
	}
	return def
}

// HPBool reads a bool hyperparameter with a fallback default.
func (c *Context) HPBool(name string, def bool) bool {
	if v, ok := c.HP[name]; ok {
		return v != 0
	}
	return def
}
