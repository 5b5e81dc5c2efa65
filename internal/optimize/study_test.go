package optimize

import (
	"context"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"quantsim/internal/strategy"
	"quantsim/internal/trades"
)

// gridEvaluator scores candidates by a unimodal surface over a two-gene
// grid: the sharpe ratio falls linearly with L1 distance from the peak.
type gridEvaluator struct {
	hps   []strategy.Hyperparameter
	peakA float64
	peakB float64
	calls atomic.Int32
}

func (g *gridEvaluator) Evaluate(_ context.Context, dna string) (trades.Metrics, error) {
	g.calls.Add(1)
	values, err := strategy.DecodeDNA(g.hps, dna)
	if err != nil {
		return trades.Metrics{}, err
	}
	dist := math.Abs(values["a"]-g.peakA) + math.Abs(values["b"]-g.peakB)
	return trades.Metrics{
		TotalTrades: 100,
		SharpeRatio: 4 - 0.3*dist,
	}, nil
}

func gridHPs(maxA, maxB float64) []strategy.Hyperparameter {
	return []strategy.Hyperparameter{
		{Name: "a", Type: strategy.TypeInt, Min: 0, Max: maxA, Step: 1},
		{Name: "b", Type: strategy.TypeInt, Min: 0, Max: maxB, Step: 1},
	}
}

// peakScore is the objective value at the surface peak: full trade-count
// effect, sharpe 4 normalized over [-0.5, 5].
const peakScore = 4.5 / 5.5

func TestStudyGeneticFindsPeak(t *testing.T) {
	hps := gridHPs(2, 2) // 9-point grid
	eval := &gridEvaluator{hps: hps, peakA: 2, peakB: 0}

	st := &Study{
		Name: "test",
		HPs:  hps,
		Eval: eval,
		Params: Params{
			Algorithm:      "genetic",
			PopulationSize: 9, // the initial population covers the grid
			Generations:    2,
			OptimalTrades:  60,
			Workers:        2,
			Seed:           42,
		},
	}
	best, err := st.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want, _ := strategy.EncodeDNA(hps, map[string]float64{"a": 2, "b": 0})
	if best.DNA != want {
		t.Errorf("best dna = %q, want %q", best.DNA, want)
	}
	if math.Abs(best.Score-peakScore) > 1e-9 {
		t.Errorf("best score = %v, want %v", best.Score, peakScore)
	}
}

func TestStudyHillClimbFindsPeak(t *testing.T) {
	hps := gridHPs(9, 9)
	eval := &gridEvaluator{hps: hps, peakA: 7, peakB: 2}

	st := &Study{
		Name: "test",
		HPs:  hps,
		Eval: eval,
		Params: Params{
			Algorithm:     "hillclimb",
			Iterations:    500,
			OptimalTrades: 60,
			Workers:       2,
			Seed:          7,
		},
	}
	best, err := st.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// steepest ascent on a unimodal surface reaches the peak
	values, err := strategy.DecodeDNA(hps, best.DNA)
	if err != nil {
		t.Fatal(err)
	}
	if values["a"] != 7 || values["b"] != 2 {
		t.Errorf("best point = %v, want a=7 b=2", values)
	}
}

func TestStudyMemoizesScores(t *testing.T) {
	hps := gridHPs(2, 2) // 9 distinct candidates
	eval := &gridEvaluator{hps: hps, peakA: 1, peakB: 1}

	st := &Study{
		Name: "test",
		HPs:  hps,
		Eval: eval,
		Params: Params{
			Algorithm:  "random",
			Iterations: 100,
			Workers:    2,
			Seed:       11,
		},
	}
	if _, err := st.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	// concurrent workers may race a fresh dna once each, so the bound is
	// loose; without memoization this would be 100
	if got := eval.calls.Load(); got > 18 {
		t.Errorf("evaluator ran %d times for a 9-point grid", got)
	}
}

func TestStudyRulesSkipSimulation(t *testing.T) {
	hps := gridHPs(2, 2)
	eval := &gridEvaluator{hps: hps}

	st := &Study{
		Name:  "test",
		HPs:   hps,
		Rules: func(map[string]float64) bool { return false },
		Eval:  eval,
		Params: Params{
			Algorithm:  "random",
			Iterations: 20,
			Workers:    2,
			Seed:       13,
		},
	}
	best, err := st.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if eval.calls.Load() != 0 {
		t.Errorf("evaluator ran %d times despite rejecting rules", eval.calls.Load())
	}
	if best.Score != 0 {
		t.Errorf("best score = %v, want 0", best.Score)
	}
}

func TestStudyResumesFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.csv")
	hps := gridHPs(2, 2)
	cw, err := NewCSVWriter(path, hps)
	if err != nil {
		t.Fatal(err)
	}
	// a prior run scored this candidate above anything the surface yields
	if err := cw.Record("!!", 0.99, trades.Metrics{TotalTrades: 100}, true); err != nil {
		t.Fatal(err)
	}
	cw.Close()

	cw2, err := NewCSVWriter(path, hps)
	if err != nil {
		t.Fatal(err)
	}
	defer cw2.Close()

	eval := &gridEvaluator{hps: hps, peakA: 2, peakB: 2}
	st := &Study{
		Name: "test",
		HPs:  hps,
		Eval: eval,
		CSV:  cw2,
		Params: Params{
			Algorithm:  "random",
			Iterations: 20,
			Workers:    2,
			Seed:       17,
		},
	}
	best, err := st.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if best.DNA != "!!" || best.Score != 0.99 {
		t.Errorf("resume ignored prior best: %+v", best)
	}
}

func TestStudyInitErrors(t *testing.T) {
	hps := gridHPs(2, 2)
	eval := &gridEvaluator{hps: hps}

	tests := []struct {
		name string
		st   *Study
	}{
		{"no hyperparameters", &Study{Name: "t", Eval: eval, Params: Params{Seed: 1}}},
		{"no evaluator", &Study{Name: "t", HPs: hps, Params: Params{Seed: 1}}},
		{"bad ratio", &Study{Name: "t", HPs: hps, Eval: eval, Params: Params{Ratio: "treynor", Seed: 1}}},
		{"bad algorithm", &Study{Name: "t", HPs: hps, Eval: eval, Params: Params{Algorithm: "tabu", Seed: 1}}},
	}
	for _, tt := range tests {
		if _, err := tt.st.Run(context.Background()); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

// stallEvaluator blocks until its context ends, like a wedged simulation.
type stallEvaluator struct{}

func (stallEvaluator) Evaluate(ctx context.Context, _ string) (trades.Metrics, error) {
	<-ctx.Done()
	return trades.Metrics{}, ctx.Err()
}

func TestStudyEvaluationTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.csv")
	hps := gridHPs(1, 1)
	cw, err := NewCSVWriter(path, hps)
	if err != nil {
		t.Fatal(err)
	}
	defer cw.Close()

	st := &Study{
		Name: "test",
		HPs:  hps,
		Eval: stallEvaluator{},
		CSV:  cw,
		Params: Params{
			Algorithm:   "random",
			Iterations:  3,
			Workers:     1,
			Seed:        7,
			EvalTimeout: 20 * time.Millisecond,
		},
	}
	best, err := st.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if best.Score != 0 {
		t.Errorf("best score = %v, want 0 for timed-out candidates", best.Score)
	}

	// expired candidates persist as unscored rows
	prior, err := cw.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(prior) == 0 {
		t.Fatal("no candidates persisted")
	}
	for dna, score := range prior {
		if score != 0 {
			t.Errorf("prior[%q] = %v, want 0", dna, score)
		}
	}
}
