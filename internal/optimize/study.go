package optimize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"quantsim/internal/metrics"
	"quantsim/internal/strategy"
	"quantsim/internal/trades"
)

// Evaluator runs one full backtest for a candidate. Implementations must
// be safe for concurrent use; the study fans evaluations out over a
// worker pool.
type Evaluator interface {
	Evaluate(ctx context.Context, dna string) (trades.Metrics, error)
}

// Params configures a study run. Zero values fall back to defaults.
type Params struct {
	Algorithm      string // genetic, random, annealing, hillclimb
	Ratio          Ratio
	PopulationSize int
	Generations    int
	Iterations     int // budget for the non-genetic algorithms
	MutationRate   float64
	OptimalTrades  int
	Workers        int
	Seed           int64
	// EvalTimeout bounds each candidate evaluation; on expiry the
	// candidate scores 0 and is persisted as unscored. 0 disables it.
	EvalTimeout time.Duration
}

func (p *Params) withDefaults() {
	if p.Algorithm == "" {
		p.Algorithm = "genetic"
	}
	if p.Ratio == "" {
		p.Ratio = RatioSharpe
	}
	if p.PopulationSize <= 0 {
		p.PopulationSize = 50
	}
	if p.Generations <= 0 {
		p.Generations = 30
	}
	if p.Iterations <= 0 {
		p.Iterations = p.PopulationSize * p.Generations
	}
	if p.MutationRate <= 0 {
		p.MutationRate = 0.1
	}
	if p.OptimalTrades <= 0 {
		p.OptimalTrades = 60
	}
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
}

// Candidate is one scored point of the grid.
type Candidate struct {
	DNA   string
	Score float64
}

// Study coordinates one optimization run: candidate generation, memoized
// parallel scoring, CSV persistence, and best tracking.
type Study struct {
	Name   string
	HPs    []strategy.Hyperparameter
	Rules  func(hp map[string]float64) bool
	Eval   Evaluator
	Params Params

	// CSV, when set, persists every scored candidate.
	CSV *CSVWriter
	// Met, when set, receives prometheus instrumentation.
	Met *metrics.Metrics

	mu      sync.Mutex
	scored  map[string]float64
	best    Candidate
	started bool

	rng *rand.Rand
}

// Run executes the configured algorithm and returns the best candidate.
func (st *Study) Run(ctx context.Context) (Candidate, error) {
	if err := st.init(); err != nil {
		return Candidate{}, err
	}
	log.Printf("[optimize] study %s: algorithm=%s grid=%d",
		st.Name, st.Params.Algorithm, strategy.GridSize(st.HPs))

	var err error
	switch st.Params.Algorithm {
	case "genetic":
		err = st.runGenetic(ctx)
	case "random":
		err = st.runRandom(ctx)
	case "annealing":
		err = st.runAnnealing(ctx)
	case "hillclimb":
		err = st.runHillClimb(ctx)
	default:
		err = fmt.Errorf("optimize: unknown algorithm %q", st.Params.Algorithm)
	}
	if err != nil {
		return st.Best(), err
	}

	best := st.Best()
	log.Printf("[optimize] study %s: best dna=%q score=%.4f", st.Name, best.DNA, best.Score)
	return best, nil
}

func (st *Study) init() error {
	if st.started {
		return nil
	}
	st.started = true
	st.Params.withDefaults()
	if !ValidRatio(st.Params.Ratio) {
		return fmt.Errorf("optimize: unsupported ratio %q", st.Params.Ratio)
	}
	if len(st.HPs) == 0 {
		return fmt.Errorf("optimize: strategy declares no hyperparameters")
	}
	if st.Eval == nil {
		return fmt.Errorf("optimize: no evaluator configured")
	}
	st.rng = rand.New(rand.NewSource(st.Params.Seed))
	st.scored = make(map[string]float64)
	st.best = Candidate{Score: math.Inf(-1)}

	if st.CSV != nil {
		prior, err := st.CSV.Load()
		if err != nil {
			return err
		}
		for dna, score := range prior {
			st.scored[dna] = score
			st.observeBest(dna, score)
		}
		if len(prior) > 0 {
			log.Printf("[optimize] study %s: resumed %d scored candidates", st.Name, len(prior))
		}
	}
	return nil
}

// Best returns the best candidate seen so far.
func (st *Study) Best() Candidate {
	st.mu.Lock()
	defer st.mu.Unlock()
	b := st.best
	if math.IsInf(b.Score, -1) {
		b.Score = 0
	}
	return b
}

// score evaluates one candidate, memoized by DNA. Rule-rejected and
// failed candidates score zero and are persisted as unscored.
func (st *Study) score(ctx context.Context, dna string) float64 {
	st.mu.Lock()
	if s, ok := st.scored[dna]; ok {
		st.mu.Unlock()
		return s
	}
	st.mu.Unlock()

	s, m, ok := st.evaluate(ctx, dna)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.scored[dna] = s
	st.observeBest(dna, s)
	if st.CSV != nil {
		if err := st.CSV.Record(dna, s, m, ok); err != nil {
			log.Printf("[optimize] csv write failed: %v", err)
		}
	}
	if st.Met != nil {
		st.Met.CandidatesScored.WithLabelValues(st.Params.Algorithm).Inc()
	}
	return s
}

func (st *Study) evaluate(ctx context.Context, dna string) (float64, trades.Metrics, bool) {
	values, err := strategy.DecodeDNA(st.HPs, dna)
	if err != nil {
		return 0, trades.Metrics{}, false
	}
	if st.Rules != nil && !st.Rules(values) {
		return 0, trades.Metrics{}, false
	}
	ectx := ctx
	if st.Params.EvalTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, st.Params.EvalTimeout)
		defer cancel()
	}
	m, err := st.Eval.Evaluate(ectx, dna)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// the study itself was canceled
		case errors.Is(err, context.DeadlineExceeded):
			log.Printf("[optimize] candidate %q timed out after %s", dna, st.Params.EvalTimeout)
		default:
			log.Printf("[optimize] candidate %q failed: %v", dna, err)
		}
		return 0, trades.Metrics{}, false
	}
	s, err := Score(m, st.Params.Ratio, st.Params.OptimalTrades)
	if err != nil {
		return 0, m, false
	}
	return s, m, true
}

// scoreBatch scores candidates over the worker pool, preserving order.
func (st *Study) scoreBatch(ctx context.Context, dnas []string) []float64 {
	out := make([]float64, len(dnas))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < st.Params.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				out[idx] = st.score(ctx, dnas[idx])
			}
		}()
	}
	for idx := range dnas {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return out
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()
	return out
}

func (st *Study) observeBest(dna string, score float64) {
	if score > st.best.Score {
		st.best = Candidate{DNA: dna, Score: score}
		if st.Met != nil {
			st.Met.BestScore.Set(score)
		}
	}
}
