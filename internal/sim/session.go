// Package sim runs backtest simulations: a Session owns every piece of
// mutable state (candle store, order book, positions, journal, clock) and
// the master loop drives simulated time through it one minute batch at a
// time. Sessions are single-threaded by design; optimization parallelism
// comes from running many isolated sessions.
package sim

import (
	"fmt"
	"math"

	"quantsim/internal/candle"
	"quantsim/internal/matching"
	"quantsim/internal/metrics"
	"quantsim/internal/order"
	"quantsim/internal/position"
	"quantsim/internal/router"
	"quantsim/internal/store"
	"quantsim/internal/trades"
)

// Config carries the session-level trading parameters.
type Config struct {
	StartingBalance float64
	FeeRate         float64
	Leverage        float64
	Mode            position.Mode
	// WarmupCandles is the number of route-timeframe candles injected
	// before the simulation window.
	WarmupCandles int
	// Silent suppresses per-event logging (optimization workers).
	Silent bool
	Debug  bool
}

// DefaultConfig returns the stock session parameters.
func DefaultConfig() Config {
	return Config{
		StartingBalance: 10_000,
		FeeRate:         0.001,
		Leverage:        1,
		Mode:            position.Isolated,
		WarmupCandles:   240,
	}
}

// PairSeries is the loaded 1m history for one (exchange, symbol) pair:
// warmup candles strictly before the window, then the window itself.
type PairSeries struct {
	Exchange string
	Symbol   string
	Warmup   []candle.Candle
	Candles  []candle.Candle
}

// Key returns "exchange:symbol".
func (p PairSeries) Key() string {
	return p.Exchange + ":" + p.Symbol
}

// cycleState accumulates per-pair aggregates for the open position cycle.
type cycleState struct {
	fees       float64
	openedAt   int64
	entryPrice float64
	maxQty     float64
	typ        position.Type
}

// Session is the arena owning all simulation state for one run.
type Session struct {
	cfg    Config
	Router *router.Router

	Store   *store.Store
	Book    *order.Book
	Journal *trades.Journal
	Engine  *matching.Engine

	// Met, when set, receives prometheus instrumentation.
	Met *metrics.Metrics

	positions map[string]*position.Position
	adapters  []*Adapter
	cycles    map[string]*cycleState

	balance      float64
	timeMs       int64
	startTimeMs  int64
	liquidations int
}

// New creates a session for the given routes. Call Run to simulate.
func New(cfg Config, rt *router.Router) *Session {
	s := &Session{
		cfg:       cfg,
		Router:    rt,
		Store:     store.New(store.DefaultCapacity),
		Book:      order.NewBook(),
		Journal:   trades.NewJournal(),
		positions: make(map[string]*position.Position),
		cycles:    make(map[string]*cycleState),
		balance:   cfg.StartingBalance,
	}
	s.Engine = &matching.Engine{
		Store:    s.Store,
		Book:     s.Book,
		Position: s.Position,
		Now:      s.Now,
		Silent:   cfg.Silent,
		OnLiquidation: func(p *position.Position) {
			s.liquidations++
			if s.Met != nil {
				s.Met.Liquidations.Inc()
			}
		},
	}
	// price moves pushed through the store with execution enabled reach
	// the matching engine directly
	s.Store.OnExecute = s.Engine.SimulatePriceChange
	s.Book.OnFill = s.handleFill
	return s
}

// Now returns the session clock in ms.
func (s *Session) Now() int64 {
	return s.timeMs
}

// Balance returns the current cash balance (excluding unrealized P&L).
func (s *Session) Balance() float64 {
	return s.balance
}

// Liquidations returns the liquidation count so far.
func (s *Session) Liquidations() int {
	return s.liquidations
}

// Position returns (and lazily creates) the position for a pair.
func (s *Session) Position(exchange, symbol string) *position.Position {
	k := exchange + ":" + symbol
	p, ok := s.positions[k]
	if !ok {
		p = position.New(exchange, symbol, s.cfg.Leverage, s.cfg.Mode)
		s.positions[k] = p
	}
	return p
}

// Equity returns cash balance plus unrealized P&L of all open positions.
func (s *Session) Equity() float64 {
	eq := s.balance
	for _, p := range s.positions {
		eq += p.PNL()
	}
	return eq
}

// reset returns the session to its initial state. Run calls it so a worker
// can replay many candidates on one session.
func (s *Session) reset() {
	s.Store.Reset()
	s.Book.Reset()
	s.Journal.Reset()
	for _, p := range s.positions {
		p.Reset()
	}
	s.cycles = make(map[string]*cycleState)
	s.adapters = nil
	s.balance = s.cfg.StartingBalance
	s.timeMs = 0
	s.startTimeMs = 0
	s.liquidations = 0
}

// handleFill settles an executed order against the pair's position,
// charges the fee, and records the completed trade when the cycle closes.
func (s *Session) handleFill(o *order.Order) {
	p := s.Position(o.Exchange, o.Symbol)

	signed := o.Qty
	if o.Side == order.Sell {
		signed = -signed
	}
	if o.IsReduceOnly() {
		signed = p.ReduceClamp(signed)
		if signed == 0 {
			return
		}
	}

	fee := math.Abs(signed) * o.Price * s.cfg.FeeRate
	wasOpen := p.IsOpen()
	entryPrice := p.EntryPrice
	openedAt := p.OpenedAt
	typ := p.Type()

	realized, closed := p.Apply(signed, o.Price, s.timeMs)
	s.balance += realized - fee

	if s.Met != nil {
		s.Met.OrdersExecuted.Inc()
	}

	cy := s.cycle(o.Exchange, o.Symbol)
	cy.fees += fee
	if !wasOpen {
		cy.openedAt = s.timeMs
		cy.entryPrice = o.Price
		cy.typ = p.Type()
		cy.maxQty = math.Abs(p.Qty)
		s.adapterFor(o.Exchange, o.Symbol).onEntryFilled()
		return
	}
	if math.Abs(p.Qty) > cy.maxQty {
		cy.maxQty = math.Abs(p.Qty)
		cy.entryPrice = entryPrice
	}

	if closed {
		s.Journal.Append(trades.CompletedTrade{
			ID:         trades.NewID(),
			Strategy:   s.strategyNameFor(o.Exchange, o.Symbol),
			Exchange:   o.Exchange,
			Symbol:     o.Symbol,
			Timeframe:  s.timeframeFor(o.Exchange, o.Symbol),
			Type:       string(typ),
			Qty:        cy.maxQty,
			EntryPrice: cy.entryPrice,
			ExitPrice:  o.Price,
			Fee:        cy.fees,
			PNL:        realized - cy.fees,
			OpenedAt:   openedAt,
			ClosedAt:   s.timeMs,
		})
		delete(s.cycles, o.Exchange+":"+o.Symbol)

		// position-close cascade: surviving exit orders are void
		s.Book.CancelActive(o.Exchange, o.Symbol, s.timeMs)
		if a := s.adapterFor(o.Exchange, o.Symbol); a != nil {
			a.onPositionClosed()
		}
	}
}

func (s *Session) cycle(exchange, symbol string) *cycleState {
	k := exchange + ":" + symbol
	cy, ok := s.cycles[k]
	if !ok {
		cy = &cycleState{}
		s.cycles[k] = cy
	}
	return cy
}

func (s *Session) adapterFor(exchange, symbol string) *Adapter {
	for _, a := range s.adapters {
		if a.route.Exchange == exchange && a.route.Symbol == symbol {
			return a
		}
	}
	return nil
}

func (s *Session) strategyNameFor(exchange, symbol string) string {
	if a := s.adapterFor(exchange, symbol); a != nil {
		return a.route.Strategy
	}
	return ""
}

func (s *Session) timeframeFor(exchange, symbol string) string {
	if a := s.adapterFor(exchange, symbol); a != nil {
		return a.route.Timeframe
	}
	return ""
}

// snapshotBalance appends the current equity to the daily balance series.
func (s *Session) snapshotBalance() {
	s.Journal.SnapshotBalance(s.Equity())
}

// validateSeries checks the loaded candle map against the router.
func (s *Session) validateSeries(series []PairSeries) error {
	if len(series) == 0 {
		return fmt.Errorf("sim: no candle series loaded")
	}
	want := len(series[0].Candles)
	if want == 0 {
		return fmt.Errorf("sim: empty candle window for %s", series[0].Key())
	}
	for _, ps := range series {
		if len(ps.Candles) != want {
			return fmt.Errorf("sim: candle window length mismatch for %s: %d != %d",
				ps.Key(), len(ps.Candles), want)
		}
	}
	byKey := make(map[string]bool, len(series))
	for _, ps := range series {
		byKey[ps.Key()] = true
	}
	for _, p := range s.Router.Pairs() {
		if !byKey[p.Key()] {
			return fmt.Errorf("sim: no candles loaded for route pair %s", p.Key())
		}
	}
	return nil
}
