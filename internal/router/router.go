// Package router holds the declarative list of trading routes and extra
// candle feeds a session runs with. Routes are fixed at session start.
package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quantsim/internal/timeframe"
)

// Route is one (exchange, symbol, timeframe, strategy) tuple.
type Route struct {
	Exchange  string `yaml:"exchange"`
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	Strategy  string `yaml:"strategy"`
}

// Minutes returns the route timeframe's minute count.
func (r Route) Minutes() int {
	return timeframe.MustMinutes(r.Timeframe)
}

// ExtraRoute is a candle feed consumed by strategies without being traded.
type ExtraRoute struct {
	Exchange  string `yaml:"exchange"`
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
}

// Pair identifies one (exchange, symbol) candle series.
type Pair struct {
	Exchange string
	Symbol   string
}

// Key returns "exchange:symbol".
func (p Pair) Key() string {
	return p.Exchange + ":" + p.Symbol
}

// Router is the validated set of routes for one session.
type Router struct {
	Routes       []Route      `yaml:"routes"`
	ExtraCandles []ExtraRoute `yaml:"extra_candles"`
}

// Load reads a routes YAML file.
func Load(path string) (*Router, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("router: read %s: %w", path, err)
	}
	var rt Router
	if err := yaml.Unmarshal(raw, &rt); err != nil {
		return nil, fmt.Errorf("router: parse %s: %w", path, err)
	}
	return &rt, nil
}

// Validate checks route completeness, timeframe support, and strategy
// existence via the supplied registry lookup.
func (rt *Router) Validate(strategyExists func(name string) bool) error {
	if len(rt.Routes) == 0 {
		return fmt.Errorf("router: no routes configured")
	}
	seen := make(map[string]bool, len(rt.Routes))
	for i, r := range rt.Routes {
		if r.Exchange == "" || r.Symbol == "" {
			return fmt.Errorf("router: route %d is missing exchange or symbol", i)
		}
		if !timeframe.IsValid(r.Timeframe) {
			return fmt.Errorf("router: route %d: timeframe %q is not supported", i, r.Timeframe)
		}
		if strategyExists != nil && !strategyExists(r.Strategy) {
			return fmt.Errorf("router: route %d: a strategy named %q could not be found", i, r.Strategy)
		}
		k := r.Exchange + ":" + r.Symbol
		if seen[k] {
			return fmt.Errorf("router: duplicate route for %s", k)
		}
		seen[k] = true
	}
	for i, e := range rt.ExtraCandles {
		if !timeframe.IsValid(e.Timeframe) {
			return fmt.Errorf("router: extra candle %d: timeframe %q is not supported", i, e.Timeframe)
		}
	}
	return nil
}

// Pairs returns the unique (exchange, symbol) pairs across routes and
// extra candle feeds, routes first.
func (rt *Router) Pairs() []Pair {
	var out []Pair
	seen := make(map[string]bool)
	add := func(exchange, symbol string) {
		p := Pair{Exchange: exchange, Symbol: symbol}
		if !seen[p.Key()] {
			seen[p.Key()] = true
			out = append(out, p)
		}
	}
	for _, r := range rt.Routes {
		add(r.Exchange, r.Symbol)
	}
	for _, e := range rt.ExtraCandles {
		add(e.Exchange, e.Symbol)
	}
	return out
}

// ConsideringTimeframes returns the unique minute counts across all routes
// and extra candle feeds, 1m included.
func (rt *Router) ConsideringTimeframes() []int {
	seen := map[int]bool{1: true}
	out := []int{1}
	add := func(tf string) {
		n := timeframe.MustMinutes(tf)
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, r := range rt.Routes {
		add(r.Timeframe)
	}
	for _, e := range rt.ExtraCandles {
		add(e.Timeframe)
	}
	return out
}

// MinTimeframeSkip returns the GCD of the non-1m trading timeframes, the
// largest minute batch the simulator may take before a strategy boundary.
// Returns 1 when only 1m routes exist.
func (rt *Router) MinTimeframeSkip() int {
	var counts []int
	for _, r := range rt.Routes {
		if n := r.Minutes(); n > 1 {
			counts = append(counts, n)
		}
	}
	if len(counts) == 0 {
		return 1
	}
	return timeframe.GCD(counts)
}
