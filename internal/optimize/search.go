package optimize

import (
	"context"
	"log"
	"math"
)

// runRandom scores Iterations uniform draws in worker-sized batches.
// Baseline algorithm; also useful for sanity-checking a study setup.
func (st *Study) runRandom(ctx context.Context) error {
	sizes := st.gridSizes()
	budget := st.Params.Iterations

	for done := 0; done < budget; {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n := st.Params.Workers
		if budget-done < n {
			n = budget - done
		}
		batch := make([]string, n)
		for i := range batch {
			batch[i] = randomDNA(st.rng, sizes)
		}
		st.scoreBatch(ctx, batch)
		done += n
	}
	return nil
}

// runAnnealing walks the grid with single-gene steps, accepting downhill
// moves with probability exp(delta/temp) under a geometric cooling
// schedule.
func (st *Study) runAnnealing(ctx context.Context) error {
	sizes := st.gridSizes()
	budget := st.Params.Iterations

	const tempStart, tempEnd = 1.0, 0.01
	cooling := math.Pow(tempEnd/tempStart, 1/float64(budget))

	cur := randomDNA(st.rng, sizes)
	curScore := st.score(ctx, cur)
	temp := tempStart

	for it := 1; it < budget; it++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		next := neighbor(st.rng, cur, sizes)
		nextScore := st.score(ctx, next)

		delta := nextScore - curScore
		if delta >= 0 || st.rng.Float64() < math.Exp(delta/temp) {
			cur, curScore = next, nextScore
		}
		temp *= cooling
	}
	log.Printf("[optimize] annealing finished at %q score=%.4f", cur, curScore)
	return nil
}

// runHillClimb repeatedly climbs to a local optimum by steepest-ascent
// over the single-gene neighborhood, restarting from a fresh random point
// until the evaluation budget is spent.
func (st *Study) runHillClimb(ctx context.Context) error {
	sizes := st.gridSizes()
	budget := st.Params.Iterations
	spent := 0

	for spent < budget {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cur := randomDNA(st.rng, sizes)
		curScore := st.score(ctx, cur)
		spent++

		for spent < budget {
			moves := neighborhood(cur, sizes)
			scores := st.scoreBatch(ctx, moves)
			spent += len(moves)

			bestIdx := -1
			for i, s := range scores {
				if s > curScore && (bestIdx < 0 || s > scores[bestIdx]) {
					bestIdx = i
				}
			}
			if bestIdx < 0 {
				break
			}
			cur, curScore = moves[bestIdx], scores[bestIdx]
		}
		log.Printf("[optimize] hill climb local optimum %q score=%.4f", cur, curScore)
	}
	return nil
}
