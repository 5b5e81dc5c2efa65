// Package timeframe maps symbolic timeframe labels ("1m", "45m", "4h", "1D")
// to minute counts and classifies custom timeframes.
//
// A custom timeframe (CTF) is one whose minute count does not divide a UTC
// day evenly (1440 % count != 0, count < 1440). CTFs reset alignment at each
// UTC midnight, producing a shorter last-of-day candle.
package timeframe

import "fmt"

// MinutesPerDay is the number of one-minute candles in a UTC day.
const MinutesPerDay = 1440

// labels holds every supported timeframe label and its minute count.
var labels = map[string]int{
	"1m":  1,
	"3m":  3,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"45m": 45,
	"1h":  60,
	"2h":  120,
	"3h":  180,
	"4h":  240,
	"6h":  360,
	"12h": 720,
	"1D":  1440,
}

// ToMinutes converts a timeframe label to its minute count.
// Returns an error for unknown labels.
func ToMinutes(tf string) (int, error) {
	n, ok := labels[tf]
	if !ok {
		return 0, fmt.Errorf("timeframe: unsupported label %q", tf)
	}
	return n, nil
}

// MustMinutes is ToMinutes for labels already validated by the router.
// Panics on unknown labels.
func MustMinutes(tf string) int {
	n, err := ToMinutes(tf)
	if err != nil {
		panic(err)
	}
	return n
}

// IsValid reports whether tf is a supported label.
func IsValid(tf string) bool {
	_, ok := labels[tf]
	return ok
}

// IsCustom reports whether the given minute count is a custom timeframe:
// shorter than a day but not a divisor of 1440 (e.g. 50m, 100m).
func IsCustom(count int) bool {
	return count < MinutesPerDay && MinutesPerDay%count != 0
}

// LastBarOfDay returns the minute length of the final candle of a UTC day
// for a custom timeframe. For divisor timeframes it equals count.
func LastBarOfDay(count int) int {
	if !IsCustom(count) {
		return count
	}
	return MinutesPerDay - (MinutesPerDay/count)*count
}

// BarsPerDay returns how many candles of the given minute count fit in a
// UTC day, counting the short last-of-day bar for custom timeframes.
func BarsPerDay(count int) int {
	if count >= MinutesPerDay {
		return 1
	}
	if MinutesPerDay%count == 0 {
		return MinutesPerDay / count
	}
	return MinutesPerDay/count + 1
}

// GCD returns the greatest common divisor of the given minute counts.
// Returns 1 for an empty set; used to size the simulator's skip window
// when only 1m routes are configured.
func GCD(counts []int) int {
	if len(counts) == 0 {
		return 1
	}
	g := counts[0]
	for _, n := range counts[1:] {
		g = gcd(g, n)
	}
	return g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
