package order

// FillHandler applies an executed order to the owning session (position
// update, fee, journal). Set once by the session; arena style, the book
// never holds position pointers.
type FillHandler func(o *Order)

// Book owns every order of one simulation session, grouped per
// (exchange, symbol) pair in insertion order. Market orders are parked in a
// pending queue and drained at the end of each tick.
type Book struct {
	orders map[string][]*Order // key "exchange:symbol", insertion order
	market map[string][]*Order // pending market orders per pair

	// OnFill runs whenever an order executes.
	OnFill FillHandler
}

// NewBook creates an empty order book.
func NewBook() *Book {
	return &Book{
		orders: make(map[string][]*Order),
		market: make(map[string][]*Order),
	}
}

// Submit registers an order. Market orders go to the pending-market queue;
// everything else joins the pair's active set in insertion order.
func (b *Book) Submit(o *Order) {
	k := pairKey(o.Exchange, o.Symbol)
	if o.Type == Market {
		b.market[k] = append(b.market[k], o)
		return
	}
	b.orders[k] = append(b.orders[k], o)
}

// Orders returns the pair's non-market orders in insertion order,
// including executed and canceled ones (callers filter by state).
func (b *Book) Orders(exchange, symbol string) []*Order {
	return b.orders[pairKey(exchange, symbol)]
}

// CountActive returns the number of active orders for a pair.
func (b *Book) CountActive(exchange, symbol string) int {
	n := 0
	for _, o := range b.orders[pairKey(exchange, symbol)] {
		if o.IsActive() {
			n++
		}
	}
	return n
}

// CountWorking counts active plus queued orders, so an untriggered
// stop-limit entry still counts as a working order.
func (b *Book) CountWorking(exchange, symbol string) int {
	n := 0
	for _, o := range b.orders[pairKey(exchange, symbol)] {
		if o.IsActive() || o.IsQueued() {
			n++
		}
	}
	return n
}

// Execute fills an order at session time nowMs and notifies the handler.
func (b *Book) Execute(o *Order, nowMs int64) {
	if !o.IsActive() && o.Type != Market {
		return
	}
	o.Execute(nowMs)
	if b.OnFill != nil {
		b.OnFill(o)
	}
}

// ExecutePendingMarketOrders drains every queued market order, in
// submission order, executing each immediately.
func (b *Book) ExecutePendingMarketOrders(nowMs int64) {
	for k, pending := range b.market {
		if len(pending) == 0 {
			continue
		}
		b.market[k] = nil
		for _, o := range pending {
			o.Execute(nowMs)
			if b.OnFill != nil {
				b.OnFill(o)
			}
		}
	}
}

// CancelActive cancels every active or queued order for a pair. Used for
// explicit strategy cancels and the position-close cascade.
func (b *Book) CancelActive(exchange, symbol string, nowMs int64) {
	for _, o := range b.orders[pairKey(exchange, symbol)] {
		if o.IsActive() || o.IsQueued() {
			o.Cancel(nowMs)
		}
	}
}

// Reset drops all orders. Called between optimization candidates.
func (b *Book) Reset() {
	b.orders = make(map[string][]*Order)
	b.market = make(map[string][]*Order)
}

func pairKey(exchange, symbol string) string {
	return exchange + ":" + symbol
}
