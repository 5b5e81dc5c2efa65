package router

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRoutes(t *testing.T, yml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.yml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeRoutes(t, `
routes:
  - exchange: binance
    symbol: BTC-USDT
    timeframe: 1h
    strategy: smacross
extra_candles:
  - exchange: binance
    symbol: ETH-USDT
    timeframe: 4h
`)
	rt, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.Routes) != 1 || len(rt.ExtraCandles) != 1 {
		t.Fatalf("loaded %d routes, %d extras", len(rt.Routes), len(rt.ExtraCandles))
	}
	r := rt.Routes[0]
	if r.Exchange != "binance" || r.Symbol != "BTC-USDT" || r.Timeframe != "1h" || r.Strategy != "smacross" {
		t.Errorf("route = %+v", r)
	}
	if r.Minutes() != 60 {
		t.Errorf("Minutes = %d, want 60", r.Minutes())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("missing file must error")
	}
	bad := writeRoutes(t, "routes: [not: valid: yaml")
	if _, err := Load(bad); err == nil {
		t.Error("malformed yaml must error")
	}
}

func TestValidate(t *testing.T) {
	exists := func(name string) bool { return name == "known" }
	base := Route{Exchange: "x", Symbol: "y", Timeframe: "1h", Strategy: "known"}

	tests := []struct {
		name string
		rt   Router
		ok   bool
	}{
		{"valid", Router{Routes: []Route{base}}, true},
		{"no routes", Router{}, false},
		{"missing symbol", Router{Routes: []Route{{Exchange: "x", Timeframe: "1h", Strategy: "known"}}}, false},
		{"bad timeframe", Router{Routes: []Route{{Exchange: "x", Symbol: "y", Timeframe: "7m", Strategy: "known"}}}, false},
		{"unknown strategy", Router{Routes: []Route{{Exchange: "x", Symbol: "y", Timeframe: "1h", Strategy: "nope"}}}, false},
		{"duplicate pair", Router{Routes: []Route{base, {Exchange: "x", Symbol: "y", Timeframe: "4h", Strategy: "known"}}}, false},
		{"bad extra timeframe", Router{
			Routes:       []Route{base},
			ExtraCandles: []ExtraRoute{{Exchange: "x", Symbol: "z", Timeframe: "2m"}},
		}, false},
	}
	for _, tt := range tests {
		err := tt.rt.Validate(exists)
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestPairs(t *testing.T) {
	rt := Router{
		Routes: []Route{
			{Exchange: "x", Symbol: "a", Timeframe: "1h", Strategy: "s"},
			{Exchange: "x", Symbol: "b", Timeframe: "4h", Strategy: "s"},
		},
		ExtraCandles: []ExtraRoute{
			{Exchange: "x", Symbol: "a", Timeframe: "1D"}, // same pair, different tf
			{Exchange: "y", Symbol: "c", Timeframe: "1h"},
		},
	}
	got := rt.Pairs()
	want := []Pair{{"x", "a"}, {"x", "b"}, {"y", "c"}}
	if len(got) != len(want) {
		t.Fatalf("Pairs = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Pairs[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if want[0].Key() != "x:a" {
		t.Errorf("Key = %q", want[0].Key())
	}
}

func TestConsideringTimeframes(t *testing.T) {
	rt := Router{
		Routes: []Route{
			{Exchange: "x", Symbol: "a", Timeframe: "1h", Strategy: "s"},
			{Exchange: "x", Symbol: "b", Timeframe: "4h", Strategy: "s"},
		},
		ExtraCandles: []ExtraRoute{{Exchange: "x", Symbol: "c", Timeframe: "1h"}},
	}
	got := rt.ConsideringTimeframes()
	want := []int{1, 60, 240}
	if len(got) != len(want) {
		t.Fatalf("ConsideringTimeframes = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ConsideringTimeframes[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMinTimeframeSkip(t *testing.T) {
	mk := func(tfs ...string) Router {
		var rt Router
		for i, tf := range tfs {
			rt.Routes = append(rt.Routes, Route{
				Exchange: "x", Symbol: string(rune('a' + i)), Timeframe: tf, Strategy: "s",
			})
		}
		return rt
	}

	tests := []struct {
		tfs  []string
		want int
	}{
		{[]string{"1h"}, 60},
		{[]string{"1h", "4h"}, 60},
		{[]string{"30m", "45m"}, 15},
		{[]string{"1m"}, 1},
		{[]string{"1m", "1h"}, 60}, // 1m routes do not shrink the batch
	}
	for _, tt := range tests {
		rt := mk(tt.tfs...)
		if got := rt.MinTimeframeSkip(); got != tt.want {
			t.Errorf("MinTimeframeSkip(%v) = %d, want %d", tt.tfs, got, tt.want)
		}
	}
}
