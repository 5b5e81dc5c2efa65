package optimize

import (
	"context"
	"testing"
	"time"

	"quantsim/internal/trades"
)

type foldEval struct {
	gridEvaluator
	length int
}

func (f *foldEval) EvaluateRange(ctx context.Context, dna string, start, end int) (trades.Metrics, error) {
	return f.Evaluate(ctx, dna)
}

func (f *foldEval) WindowLength() int { return f.length }

func TestWalkForward(t *testing.T) {
	hps := gridHPs(2, 2)
	eval := &foldEval{
		gridEvaluator: gridEvaluator{hps: hps, peakA: 1, peakB: 1},
		length:        3 * 1440,
	}
	newStudy := func(name string, e Evaluator) *Study {
		return &Study{
			Name: "wf-" + name,
			HPs:  hps,
			Eval: e,
			Params: Params{
				Algorithm:  "random",
				Iterations: 30,
				Workers:    2,
				Seed:       23,
			},
		}
	}

	res, err := WalkForward(context.Background(), newStudy, eval, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Folds) != 2 {
		t.Fatalf("folds = %d", len(res.Folds))
	}

	// anchored, day-aligned segmentation over three days
	f0, f1 := res.Folds[0], res.Folds[1]
	if f0.TrainStart != 0 || f0.TrainEnd != 1440 || f0.TestStart != 1440 || f0.TestEnd != 2880 {
		t.Errorf("fold 1 bounds = %+v", f0)
	}
	if f1.TrainEnd != 2880 || f1.TestStart != 2880 || f1.TestEnd != 4320 {
		t.Errorf("fold 2 bounds = %+v", f1)
	}

	// the surface is range-independent, so test scores match train scores
	if f0.TestScore != f0.Best.Score || f1.TestScore != f1.Best.Score {
		t.Errorf("test/train score mismatch: %+v %+v", f0, f1)
	}
	if res.MeanTestScore <= 0 {
		t.Errorf("MeanTestScore = %v", res.MeanTestScore)
	}
}

func TestWalkForwardErrors(t *testing.T) {
	hps := gridHPs(2, 2)
	eval := &foldEval{gridEvaluator: gridEvaluator{hps: hps}, length: 3 * 1440}
	newStudy := func(string, Evaluator) *Study { return nil }

	if _, err := WalkForward(context.Background(), newStudy, eval, 0); err == nil {
		t.Error("zero folds must error")
	}

	short := &foldEval{gridEvaluator: gridEvaluator{hps: hps}, length: 1000}
	if _, err := WalkForward(context.Background(), newStudy, short, 2); err == nil {
		t.Error("too-short window must error")
	}
}

func TestWalkForwardMonths(t *testing.T) {
	hps := gridHPs(2, 2)
	// Jan 1 through May 1 2024: 121 days of 1m candles
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	eval := &foldEval{
		gridEvaluator: gridEvaluator{hps: hps, peakA: 1, peakB: 1},
		length:        121 * 1440,
	}
	newStudy := func(name string, e Evaluator) *Study {
		return &Study{
			Name: "wf-" + name,
			HPs:  hps,
			Eval: e,
			Params: Params{
				Algorithm:  "random",
				Iterations: 30,
				Workers:    2,
				Seed:       29,
			},
		}
	}

	res, err := WalkForwardMonths(context.Background(), newStudy, eval, MonthParams{
		StartMs:     start.UnixMilli(),
		TrainMonths: 2,
		TestMonths:  1,
		IncMonths:   1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Folds) != 2 {
		t.Fatalf("folds = %d", len(res.Folds))
	}

	// calendar-month windows: Jan+Feb train / Mar test, then rolled
	// forward one month to Feb+Mar train / Apr test
	f0, f1 := res.Folds[0], res.Folds[1]
	if f0.TrainStart != 0 || f0.TrainEnd != 60*1440 || f0.TestEnd != 91*1440 {
		t.Errorf("fold 1 bounds = %+v", f0)
	}
	if f1.TrainStart != 31*1440 || f1.TrainEnd != 91*1440 || f1.TestEnd != 121*1440 {
		t.Errorf("fold 2 bounds = %+v", f1)
	}
	if f0.TestStart != f0.TrainEnd || f1.TestStart != f1.TrainEnd {
		t.Errorf("test windows must start where training ends: %+v %+v", f0, f1)
	}
	if res.MeanTestScore <= 0 {
		t.Errorf("MeanTestScore = %v", res.MeanTestScore)
	}
}

func TestWalkForwardMonthsErrors(t *testing.T) {
	hps := gridHPs(2, 2)
	newStudy := func(string, Evaluator) *Study { return nil }
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	eval := &foldEval{gridEvaluator: gridEvaluator{hps: hps}, length: 121 * 1440}
	if _, err := WalkForwardMonths(context.Background(), newStudy, eval, MonthParams{
		StartMs: start, TrainMonths: 0, TestMonths: 1, IncMonths: 1,
	}); err == nil {
		t.Error("zero-month training window must error")
	}

	// two weeks of data cannot fit a train+test month pair
	short := &foldEval{gridEvaluator: gridEvaluator{hps: hps}, length: 14 * 1440}
	if _, err := WalkForwardMonths(context.Background(), newStudy, short, MonthParams{
		StartMs: start, TrainMonths: 2, TestMonths: 1, IncMonths: 1,
	}); err == nil {
		t.Error("too-short window must error")
	}
}
