// Package order implements the virtual order state machine and the per-pair
// order books the matching engine operates on.
package order

import "github.com/google/uuid"

// Side is the order direction.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Type is the order kind.
type Type string

const (
	Market    Type = "market"
	Limit     Type = "limit"
	Stop      Type = "stop"
	StopLimit Type = "stop_limit"
)

// Flag carries the execution constraint.
type Flag string

const (
	FlagNone       Flag = ""
	FlagReduceOnly Flag = "reduce_only"
	FlagPostOnly   Flag = "post_only"
)

// Role describes what the order does to the position.
type Role string

const (
	RoleOpen     Role = "open"
	RoleIncrease Role = "increase"
	RoleReduce   Role = "reduce"
	RoleClose    Role = "close"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusQueued   Status = "queued"
	StatusExecuted Status = "executed"
	StatusCanceled Status = "canceled"
)

// Order is a virtual exchange order owned by exactly one Book.
// Qty is a positive magnitude; Side carries the direction. Price is the
// execution price; stop-limit orders additionally carry a TriggerPrice and
// wait in the queued state until it is crossed.
type Order struct {
	ID       string
	Exchange string
	Symbol   string
	Side     Side
	Type     Type
	Flag     Flag
	Role     Role
	Qty      float64
	Price    float64
	// TriggerPrice is set for stop-limit orders only.
	TriggerPrice float64
	Status       Status

	CreatedAt  int64 // ms
	ExecutedAt int64 // ms
	CanceledAt int64 // ms
}

// New builds an order with a fresh ID in active state. Market orders start
// active as well; the book moves them to its pending-market queue.
func New(exchange, symbol string, side Side, typ Type, flag Flag, role Role, qty, price float64, nowMs int64) *Order {
	return &Order{
		ID:        uuid.NewString(),
		Exchange:  exchange,
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		Flag:      flag,
		Role:      role,
		Qty:       qty,
		Price:     price,
		Status:    StatusActive,
		CreatedAt: nowMs,
	}
}

// IsActive reports whether the order can still execute.
func (o *Order) IsActive() bool {
	return o.Status == StatusActive
}

// IsQueued reports whether the order waits for a trigger.
func (o *Order) IsQueued() bool {
	return o.Status == StatusQueued
}

// IsReduceOnly reports whether the order may only shrink the position.
func (o *Order) IsReduceOnly() bool {
	return o.Flag == FlagReduceOnly
}

// Queue moves an active order to the queued state.
func (o *Order) Queue() {
	if o.Status == StatusActive {
		o.Status = StatusQueued
	}
}

// Activate moves a queued order back to active once its trigger crossed.
func (o *Order) Activate() {
	if o.Status == StatusQueued {
		o.Status = StatusActive
	}
}

// Execute marks the order filled at the given time.
// Terminal; executed orders never transition again.
func (o *Order) Execute(nowMs int64) {
	o.Status = StatusExecuted
	o.ExecutedAt = nowMs
}

// Cancel marks the order canceled. No-op on executed orders.
func (o *Order) Cancel(nowMs int64) {
	if o.Status == StatusExecuted {
		return
	}
	o.Status = StatusCanceled
	o.CanceledAt = nowMs
}
