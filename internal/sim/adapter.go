package sim

import (
	"fmt"

	"quantsim/internal/order"
	"quantsim/internal/position"
	"quantsim/internal/router"
	"quantsim/internal/strategy"
)

// Adapter binds one route's strategy instance to the session: it polls the
// lifecycle hooks on timeframe boundaries and turns Entry intent into book
// orders. Strategies stay pure; all order plumbing lives here.
type Adapter struct {
	route   router.Route
	strat   strategy.Strategy
	ctx     *strategy.Context
	session *Session

	// pending holds the entry intent between order submission and fill so
	// the exit orders can be placed once the entry executes.
	pending *strategy.Entry
}

// newAdapter builds and initializes the adapter for one route, injecting
// the hyperparameter assignment (explicit values win over the strategy's
// DNA, which wins over declared defaults).
func newAdapter(s *Session, rt router.Route, hp map[string]float64) (*Adapter, error) {
	strat, err := strategy.Build(rt.Strategy)
	if err != nil {
		return nil, err
	}
	count := rt.Minutes()
	pos := s.Position(rt.Exchange, rt.Symbol)
	ctx := strategy.NewContext(rt.Exchange, rt.Symbol, rt.Timeframe, count, s.Store, pos)

	values, err := resolveHyperparameters(strat, hp)
	if err != nil {
		return nil, fmt.Errorf("sim: %s: %w", rt.Strategy, err)
	}
	ctx.HP = values

	a := &Adapter{route: rt, strat: strat, ctx: ctx, session: s}
	strat.Init(ctx)
	return a, nil
}

// resolveHyperparameters picks the concrete assignment for a run.
func resolveHyperparameters(strat strategy.Strategy, explicit map[string]float64) (map[string]float64, error) {
	hps := strat.Hyperparameters()
	if explicit != nil {
		return explicit, nil
	}
	if dna := strat.DNA(); dna != "" {
		return strategy.DecodeDNA(hps, dna)
	}
	return strategy.DefaultValues(hps), nil
}

// tfCount returns the route timeframe in minutes.
func (a *Adapter) tfCount() int {
	return a.route.Minutes()
}

// Execute runs one boundary tick of the strategy lifecycle.
func (a *Adapter) Execute() {
	p := a.ctx.Position()

	if p.IsOpen() {
		a.strat.UpdatePosition()
		return
	}

	if a.session.Book.CountWorking(a.route.Exchange, a.route.Symbol) > 0 {
		if a.strat.ShouldCancel() {
			a.session.Book.CancelActive(a.route.Exchange, a.route.Symbol, a.session.Now())
			a.pending = nil
		}
		return
	}

	if a.strat.ShouldLong() {
		a.open(order.Buy, a.strat.GoLong())
	} else if a.strat.ShouldShort() {
		a.open(order.Sell, a.strat.GoShort())
	}
}

// open submits the entry order for an intent. Price 0 requests a market
// order; otherwise the order type follows from which side of the current
// price the requested price sits. A TriggerPrice turns the entry into a
// queued stop-limit that activates when the trigger trades.
func (a *Adapter) open(side order.Side, e strategy.Entry) {
	if e.Qty <= 0 {
		return
	}
	cur := a.ctx.Price()

	if e.TriggerPrice > 0 {
		price := e.Price
		if price == 0 {
			price = e.TriggerPrice
		}
		pe := e
		a.pending = &pe
		o := order.New(a.route.Exchange, a.route.Symbol, side, order.StopLimit,
			order.FlagNone, order.RoleOpen, e.Qty, price, a.session.Now())
		o.TriggerPrice = e.TriggerPrice
		o.Queue()
		a.session.Book.Submit(o)
		return
	}

	price := e.Price
	typ := order.Market
	switch {
	case price == 0 || price == cur:
		typ = order.Market
		price = cur
	case side == order.Buy && price < cur:
		typ = order.Limit
	case side == order.Buy && price > cur:
		typ = order.Stop
	case side == order.Sell && price > cur:
		typ = order.Limit
	default:
		typ = order.Stop
	}

	pe := e
	a.pending = &pe
	o := order.New(a.route.Exchange, a.route.Symbol, side, typ, order.FlagNone,
		order.RoleOpen, e.Qty, price, a.session.Now())
	a.session.Book.Submit(o)
}

// onEntryFilled places the reduce-only exit orders declared by the entry
// intent. Called by the session's fill handler when the position opens.
func (a *Adapter) onEntryFilled() {
	e := a.pending
	a.pending = nil
	if e == nil {
		return
	}
	p := a.ctx.Position()
	if !p.IsOpen() {
		return
	}
	exitSide := order.Sell
	if p.Type() == position.Short {
		exitSide = order.Buy
	}
	now := a.session.Now()
	if e.StopLoss > 0 {
		o := order.New(a.route.Exchange, a.route.Symbol, exitSide, order.Stop,
			order.FlagReduceOnly, order.RoleClose, e.Qty, e.StopLoss, now)
		a.session.Book.Submit(o)
	}
	if e.TakeProfit > 0 {
		o := order.New(a.route.Exchange, a.route.Symbol, exitSide, order.Limit,
			order.FlagReduceOnly, order.RoleClose, e.Qty, e.TakeProfit, now)
		a.session.Book.Submit(o)
	}
}

// onPositionClosed clears leftover intent after the close cascade.
func (a *Adapter) onPositionClosed() {
	a.pending = nil
}

// Terminate flushes the strategy at session end.
func (a *Adapter) Terminate() {
	a.strat.Terminate()
}
