// Package position tracks the single virtual position a strategy holds per
// route: signed quantity, entry price, P&L, and isolated-margin
// liquidation levels.
package position

import "math"

// Mode is the margin mode of the position.
type Mode string

const (
	Isolated Mode = "isolated"
	Cross    Mode = "cross"
)

// Type classifies an open position.
type Type string

const (
	Long  Type = "long"
	Short Type = "short"
	Flat  Type = "flat"
)

// maintenanceRate is the maintenance-margin fraction used for the
// isolated liquidation price.
const maintenanceRate = 0.005

// Position is the per-route position. Qty sign encodes direction:
// positive long, negative short. A flat position has no entry price.
type Position struct {
	Exchange string
	Symbol   string

	Qty          float64
	EntryPrice   float64
	CurrentPrice float64
	Leverage     float64
	Mode         Mode

	OpenedAt int64 // ms, 0 when flat
}

// New creates a flat position for a pair.
func New(exchange, symbol string, leverage float64, mode Mode) *Position {
	if leverage <= 0 {
		leverage = 1
	}
	return &Position{
		Exchange: exchange,
		Symbol:   symbol,
		Leverage: leverage,
		Mode:     mode,
	}
}

// IsOpen reports whether any quantity is held.
func (p *Position) IsOpen() bool {
	return p.Qty != 0
}

// Type returns long/short/flat based on the quantity sign.
func (p *Position) Type() Type {
	switch {
	case p.Qty > 0:
		return Long
	case p.Qty < 0:
		return Short
	default:
		return Flat
	}
}

// PNL returns the unrealized profit of the open quantity at CurrentPrice.
func (p *Position) PNL() float64 {
	if p.Qty == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) * p.Qty
}

// Value returns the notional value of the open quantity at CurrentPrice.
func (p *Position) Value() float64 {
	return math.Abs(p.Qty) * p.CurrentPrice
}

// LiquidationPrice returns the price at which an isolated position is
// liquidated. NaN when flat or in cross mode (not simulated).
func (p *Position) LiquidationPrice() float64 {
	if p.Qty == 0 || p.Mode != Isolated {
		return math.NaN()
	}
	switch p.Type() {
	case Long:
		return p.EntryPrice * (1 - 1/p.Leverage + maintenanceRate)
	default:
		return p.EntryPrice * (1 + 1/p.Leverage - maintenanceRate)
	}
}

// BankruptcyPrice returns the price at which the margin is fully consumed.
// Liquidation fills settle here.
func (p *Position) BankruptcyPrice() float64 {
	switch p.Type() {
	case Long:
		return p.EntryPrice * (1 - 1/p.Leverage)
	case Short:
		return p.EntryPrice * (1 + 1/p.Leverage)
	default:
		return math.NaN()
	}
}

// Apply settles a fill of signed quantity (buys positive, sells negative)
// at the given price and time. Returns the realized P&L of any reduced
// quantity and whether the fill closed the position.
func (p *Position) Apply(qty, price float64, nowMs int64) (realized float64, closed bool) {
	if qty == 0 {
		return 0, false
	}
	p.CurrentPrice = price

	switch {
	case p.Qty == 0:
		p.Qty = qty
		p.EntryPrice = price
		p.OpenedAt = nowMs
		return 0, false

	case sameSign(p.Qty, qty):
		total := p.EntryPrice*math.Abs(p.Qty) + price*math.Abs(qty)
		p.Qty += qty
		p.EntryPrice = total / math.Abs(p.Qty)
		return 0, false

	default:
		prev := p.Qty
		reduce := math.Min(math.Abs(qty), math.Abs(prev))
		sign := 1.0
		if prev < 0 {
			sign = -1
		}
		realized = (price - p.EntryPrice) * reduce * sign
		p.Qty += qty

		switch {
		case p.Qty == 0:
			p.close()
			return realized, true
		case !sameSign(prev, p.Qty):
			// flipped through flat: remainder opens a fresh cycle
			p.EntryPrice = price
			p.OpenedAt = nowMs
			return realized, true
		default:
			return realized, false
		}
	}
}

// ReduceClamp clamps a signed reducing quantity so it cannot flip the
// position. Used for reduce-only fills.
func (p *Position) ReduceClamp(qty float64) float64 {
	if p.Qty == 0 || sameSign(p.Qty, qty) {
		return 0
	}
	if math.Abs(qty) > math.Abs(p.Qty) {
		return -p.Qty
	}
	return qty
}

// Reset flattens the position. Called between optimization candidates.
func (p *Position) Reset() {
	p.Qty = 0
	p.EntryPrice = 0
	p.CurrentPrice = 0
	p.OpenedAt = 0
}

func (p *Position) close() {
	p.Qty = 0
	p.EntryPrice = 0
	p.OpenedAt = 0
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
