// Package matching converts per-minute price movement into order
// executions: candle splitting at order prices, stop-limit activation,
// liquidation of isolated positions, and the skip-ahead probe that decides
// how far simulated time may fast-forward.
package matching

import (
	"log"
	"math"

	"quantsim/internal/candle"
	"quantsim/internal/order"
	"quantsim/internal/position"
	"quantsim/internal/router"
	"quantsim/internal/store"
)

// Engine applies price changes for one session. It holds no state of its
// own beyond wiring; everything it mutates belongs to the session arena.
type Engine struct {
	Store *store.Store
	Book  *order.Book

	// Position resolves the per-pair position; never nil for traded pairs.
	Position func(exchange, symbol string) *position.Position

	// Now returns the session clock in ms.
	Now func() int64

	// OnLiquidation, when set, observes each liquidation event.
	OnLiquidation func(p *position.Position)

	// Silent suppresses per-event logging (optimization workers).
	Silent bool
}

// SimulatePriceChange walks one forming or closed 1m candle through the
// pair's active orders. Each time an order price lies inside the candle
// range the candle is split at that price, the earlier part is stored as
// the observed 1m candle, and the order executes; the loop repeats on the
// remainder so stacked orders fill in insertion order at a single minute.
func (e *Engine) SimulatePriceChange(real candle.Candle, exchange, symbol string) {
	temp := real

	for {
		executed := false
		for _, o := range e.Book.Orders(exchange, symbol) {
			if o.IsQueued() && temp.IncludesPrice(o.TriggerPrice) {
				o.Activate()
			}
			if !o.IsActive() || !temp.IncludesPrice(o.Price) {
				continue
			}

			before, after := candle.Split(temp, o.Price)
			e.Store.Add(before, exchange, symbol, 1, store.AddOptions{})
			if p := e.Position(exchange, symbol); p != nil {
				p.CurrentPrice = before.Close
			}
			e.Book.Execute(o, e.Now())

			temp = after
			executed = true
			break
		}

		if !executed {
			e.Store.Add(real, exchange, symbol, 1, store.AddOptions{})
			if p := e.Position(exchange, symbol); p != nil {
				p.CurrentPrice = real.Close
			}
			break
		}
	}

	e.checkLiquidation(real, exchange, symbol)
}

// checkLiquidation closes an isolated position at its bankruptcy price
// when the candle range touches the liquidation price. The synthesized
// order is a reduce-only market close executed immediately.
func (e *Engine) checkLiquidation(c candle.Candle, exchange, symbol string) {
	p := e.Position(exchange, symbol)
	if p == nil || !p.IsOpen() || p.Mode != position.Isolated {
		return
	}
	liq := p.LiquidationPrice()
	if math.IsNaN(liq) || !c.IncludesPrice(liq) {
		return
	}

	side := order.Sell
	if p.Type() == position.Short {
		side = order.Buy
	}
	o := order.New(exchange, symbol, side, order.Market, order.FlagReduceOnly,
		order.RoleClose, math.Abs(p.Qty), p.BankruptcyPrice(), e.Now())

	if !e.Silent {
		log.Printf("[matching] %s liquidated at %.8f", symbol, liq)
	}
	if e.OnLiquidation != nil {
		e.OnLiquidation(p)
	}
	e.Book.Execute(o, e.Now())
}

// SkipNCandles decides how many upcoming 1m candles can be fast-forwarded
// without order-execution ambiguity. The window is binary-halved until no
// route has two or more active orders inside the window's aggregated
// range, or the window is a single minute.
func (e *Engine) SkipNCandles(routes []router.Route, future map[string][]candle.Candle, i, maxSkip int) int {
	for {
		counter := 0
		for _, r := range routes {
			if e.Book.CountActive(r.Exchange, r.Symbol) < 2 {
				continue
			}
			pair := router.Pair{Exchange: r.Exchange, Symbol: r.Symbol}
			fc := future[pair.Key()]
			if i >= len(fc) {
				break
			}
			end := i + maxSkip
			if end > len(fc) {
				end = len(fc)
			}
			temp, err := candle.GenerateFromOneMinutes(0, fc[i:end], true)
			if err != nil {
				continue
			}
			for _, o := range e.Book.Orders(r.Exchange, r.Symbol) {
				if o.IsActive() && temp.IncludesPrice(o.Price) {
					counter++
				}
			}
		}

		if counter < 2 || maxSkip == 1 {
			return maxSkip
		}
		maxSkip /= 2
	}
}
