// Package strategy defines the interface user strategies implement, the
// factory registry the framework instantiates them through, and the
// hyperparameter/DNA machinery optimization searches over.
//
// Strategies never touch the simulator directly: they read market state
// through a Context and express intent through Entry values. The sim
// package's adapter turns intent into orders.
package strategy

// Entry is the intent returned by GoLong/GoShort.
// Price 0 requests a market order; otherwise the adapter picks limit or
// stop depending on which side of the current price it sits. Setting
// TriggerPrice requests a stop-limit entry instead: the order waits
// queued until the trigger trades, then works as a limit at Price.
// StopLoss/TakeProfit of 0 disable the respective exit order.
type Entry struct {
	Qty          float64
	Price        float64
	TriggerPrice float64
	StopLoss     float64
	TakeProfit   float64
}

// Strategy is the user-facing lifecycle contract. One instance per route
// per session; instances are never shared across sessions.
type Strategy interface {
	// Hyperparameters declares the searchable parameter space.
	// May be empty for non-optimizable strategies.
	Hyperparameters() []Hyperparameter

	// DNA returns the encoded default parameter point, or "" to use the
	// declared defaults.
	DNA() string

	// Init runs once before the first candle, after hyperparameters have
	// been injected into ctx.HP.
	Init(ctx *Context)

	// ShouldLong/ShouldShort are polled on the route's timeframe boundary
	// while the position is flat and no entry order is working.
	ShouldLong() bool
	ShouldShort() bool

	// ShouldCancel is polled while an entry order is working and the
	// position is still flat.
	ShouldCancel() bool

	// GoLong/GoShort produce the entry intent after the corresponding
	// Should* returned true.
	GoLong() Entry
	GoShort() Entry

	// UpdatePosition is polled on boundary ticks while the position is
	// open.
	UpdatePosition()

	// Terminate runs once when the session ends.
	Terminate()
}

// RuleChecker is implemented by strategies that constrain valid
// hyperparameter combinations. Invalid combinations are scored 0 by the
// optimizer without running a simulation.
type RuleChecker interface {
	HyperparametersRules(hp map[string]float64) bool
}
