package optimize

import (
	"context"
	"fmt"
	"log"
	"time"

	"quantsim/internal/timeframe"
	"quantsim/internal/trades"
)

// FoldEvaluator evaluates candidates on sub-ranges of the loaded 1m
// window, addressed by candle index.
type FoldEvaluator interface {
	Evaluator
	EvaluateRange(ctx context.Context, dna string, start, end int) (trades.Metrics, error)
	// WindowLength is the total number of loaded 1m candles.
	WindowLength() int
}

// FoldResult holds one walk-forward fold's outcome.
type FoldResult struct {
	TrainStart, TrainEnd int // 1m candle indices, [start, end)
	TestStart, TestEnd   int
	Best                 Candidate
	TestScore            float64
	TestMetrics          trades.Metrics
}

// WalkForwardResult aggregates all folds.
type WalkForwardResult struct {
	Folds []FoldResult
	// MeanTestScore is the average out-of-sample score across folds, the
	// headline robustness figure.
	MeanTestScore float64
}

// MonthParams configures rolling month-window validation. StartMs is the
// loaded window's first candle timestamp (a UTC midnight); fold i trains
// on [start + i*Inc months, +Train months) and tests on the following
// Test months, stepping until the test window runs past the loaded data.
type MonthParams struct {
	StartMs     int64
	TrainMonths int
	TestMonths  int
	IncMonths   int
}

// WalkForwardMonths runs rolling walk-forward validation over calendar
// month windows. A candidate that only fits one regime shows up as a
// train/test score gap.
//
// newStudy builds a fresh per-fold study around the bound train-range
// evaluator; per-fold studies skip CSV persistence.
func WalkForwardMonths(ctx context.Context, newStudy func(name string, eval Evaluator) *Study, eval FoldEvaluator, p MonthParams) (WalkForwardResult, error) {
	if p.TrainMonths < 1 || p.TestMonths < 1 || p.IncMonths < 1 {
		return WalkForwardResult{}, fmt.Errorf("optimize: month windows must be at least 1 month")
	}
	length := eval.WindowLength()
	start := time.UnixMilli(p.StartMs).UTC()

	var res WalkForwardResult
	for i := 0; ; i++ {
		trainStartT := start.AddDate(0, i*p.IncMonths, 0)
		trainEndT := trainStartT.AddDate(0, p.TrainMonths, 0)
		testEndT := trainEndT.AddDate(0, p.TestMonths, 0)

		fr := FoldResult{
			TrainStart: minutesSince(start, trainStartT),
			TrainEnd:   minutesSince(start, trainEndT),
			TestStart:  minutesSince(start, trainEndT),
			TestEnd:    minutesSince(start, testEndT),
		}
		if fr.TestEnd > length {
			break
		}
		if err := runFold(ctx, newStudy, eval, &fr, i+1); err != nil {
			return res, err
		}
		res.Folds = append(res.Folds, fr)
	}
	if len(res.Folds) == 0 {
		return res, fmt.Errorf(
			"optimize: window of %d candles is shorter than %d train + %d test months",
			length, p.TrainMonths, p.TestMonths)
	}
	return finishWalkForward(res), nil
}

// WalkForward runs anchored walk-forward validation: the window is split
// into folds+1 day-aligned segments, fold i optimizes on segments [0, i]
// and scores the winner out-of-sample on segment i+1.
func WalkForward(ctx context.Context, newStudy func(name string, eval Evaluator) *Study, eval FoldEvaluator, folds int) (WalkForwardResult, error) {
	if folds < 1 {
		return WalkForwardResult{}, fmt.Errorf("optimize: walk-forward needs at least 1 fold")
	}
	length := eval.WindowLength()
	seg := alignToDay(length / (folds + 1))
	if seg < timeframe.MinutesPerDay {
		return WalkForwardResult{}, fmt.Errorf(
			"optimize: window of %d candles is too short for %d folds", length, folds)
	}

	var res WalkForwardResult
	for i := 0; i < folds; i++ {
		fr := FoldResult{
			TrainStart: 0,
			TrainEnd:   (i + 1) * seg,
			TestStart:  (i + 1) * seg,
			TestEnd:    (i + 2) * seg,
		}
		if fr.TestEnd > length {
			fr.TestEnd = alignToDay(length)
		}
		if err := runFold(ctx, newStudy, eval, &fr, i+1); err != nil {
			return res, err
		}
		res.Folds = append(res.Folds, fr)
	}
	return finishWalkForward(res), nil
}

// runFold optimizes on the fold's train range and scores the winner on
// the test range.
func runFold(ctx context.Context, newStudy func(name string, eval Evaluator) *Study, eval FoldEvaluator, fr *FoldResult, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := newStudy(fmt.Sprintf("fold%d", n),
		boundEvaluator{eval: eval, start: fr.TrainStart, end: fr.TrainEnd})
	best, err := st.Run(ctx)
	if err != nil {
		return err
	}
	fr.Best = best

	m, err := eval.EvaluateRange(ctx, best.DNA, fr.TestStart, fr.TestEnd)
	if err != nil {
		return fmt.Errorf("optimize: fold %d test run: %w", n, err)
	}
	score, err := Score(m, st.Params.Ratio, st.Params.OptimalTrades)
	if err != nil {
		return err
	}
	fr.TestScore = score
	fr.TestMetrics = m

	log.Printf("[optimize] fold %d: train=%.4f test=%.4f dna=%q",
		n, best.Score, score, best.DNA)
	return nil
}

func finishWalkForward(res WalkForwardResult) WalkForwardResult {
	for _, fr := range res.Folds {
		res.MeanTestScore += fr.TestScore
	}
	res.MeanTestScore /= float64(len(res.Folds))
	return res
}

// boundEvaluator restricts an evaluator to a fixed candle range.
type boundEvaluator struct {
	eval  FoldEvaluator
	start int
	end   int
}

func (b boundEvaluator) Evaluate(ctx context.Context, dna string) (trades.Metrics, error) {
	return b.eval.EvaluateRange(ctx, dna, b.start, b.end)
}

// minutesSince converts a window-relative time into a 1m candle index.
func minutesSince(start, t time.Time) int {
	return int(t.Sub(start) / time.Minute)
}

// alignToDay rounds a candle count down to a whole number of UTC days.
func alignToDay(n int) int {
	return n - n%timeframe.MinutesPerDay
}
