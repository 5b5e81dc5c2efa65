package optimize

import (
	"context"
	"log"
	"sort"
)

// tournamentSize is the number of candidates drawn per parent selection.
const tournamentSize = 3

// runGenetic evolves a population over the configured generations:
// tournament selection, uniform crossover, per-gene mutation, with the
// parent population competing against its children for survival.
func (st *Study) runGenetic(ctx context.Context) error {
	sizes := st.gridSizes()
	popSize := st.Params.PopulationSize

	pop := make([]Candidate, 0, popSize)
	seen := make(map[string]bool, popSize)
	for len(pop) < popSize {
		dna := randomDNA(st.rng, sizes)
		if seen[dna] {
			continue
		}
		seen[dna] = true
		pop = append(pop, Candidate{DNA: dna})
	}
	st.evalPopulation(ctx, pop)
	sortByScore(pop)

	for gen := 1; gen <= st.Params.Generations; gen++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		children := make([]Candidate, 0, popSize)
		for len(children) < popSize {
			a := st.tournament(pop)
			b := st.tournament(pop)
			dna := mutate(st.rng, crossover(st.rng, a.DNA, b.DNA), sizes, st.Params.MutationRate)
			children = append(children, Candidate{DNA: dna})
		}
		st.evalPopulation(ctx, children)

		pop = append(pop, children...)
		sortByScore(pop)
		pop = dedupe(pop)
		if len(pop) > popSize {
			pop = pop[:popSize]
		}

		log.Printf("[optimize] generation %d/%d: best=%.4f median=%.4f",
			gen, st.Params.Generations, pop[0].Score, pop[len(pop)/2].Score)
	}
	return nil
}

// evalPopulation scores every candidate in place over the worker pool.
func (st *Study) evalPopulation(ctx context.Context, pop []Candidate) {
	dnas := make([]string, len(pop))
	for i := range pop {
		dnas[i] = pop[i].DNA
	}
	scores := st.scoreBatch(ctx, dnas)
	for i := range pop {
		pop[i].Score = scores[i]
	}
}

// tournament returns the best of tournamentSize uniform draws.
func (st *Study) tournament(pop []Candidate) Candidate {
	best := pop[st.rng.Intn(len(pop))]
	for k := 1; k < tournamentSize; k++ {
		c := pop[st.rng.Intn(len(pop))]
		if c.Score > best.Score {
			best = c
		}
	}
	return best
}

func sortByScore(pop []Candidate) {
	sort.SliceStable(pop, func(i, j int) bool {
		return pop[i].Score > pop[j].Score
	})
}

// dedupe removes duplicate DNAs from a sorted population, keeping the
// first (best) occurrence.
func dedupe(pop []Candidate) []Candidate {
	seen := make(map[string]bool, len(pop))
	out := pop[:0]
	for _, c := range pop {
		if seen[c.DNA] {
			continue
		}
		seen[c.DNA] = true
		out = append(out, c)
	}
	return out
}
