package optimize

import "math/rand"

// gridSizes returns the per-gene grid cardinality.
func (st *Study) gridSizes() []int {
	sizes := make([]int, len(st.HPs))
	for i, h := range st.HPs {
		sizes[i] = len(h.Values())
	}
	return sizes
}

const geneBase = '!'

// randomDNA draws a uniform point of the grid.
func randomDNA(rng *rand.Rand, sizes []int) string {
	buf := make([]byte, len(sizes))
	for i, n := range sizes {
		buf[i] = byte(geneBase + rng.Intn(n))
	}
	return string(buf)
}

// crossover mixes two parents gene by gene with equal probability.
func crossover(rng *rand.Rand, a, b string) string {
	buf := make([]byte, len(a))
	for i := range buf {
		if rng.Intn(2) == 0 {
			buf[i] = a[i]
		} else {
			buf[i] = b[i]
		}
	}
	return string(buf)
}

// mutate replaces each gene with a fresh uniform draw at the given rate.
func mutate(rng *rand.Rand, dna string, sizes []int, rate float64) string {
	buf := []byte(dna)
	for i, n := range sizes {
		if rng.Float64() < rate {
			buf[i] = byte(geneBase + rng.Intn(n))
		}
	}
	return string(buf)
}

// neighbor nudges one random gene a single grid step up or down.
func neighbor(rng *rand.Rand, dna string, sizes []int) string {
	buf := []byte(dna)
	i := rng.Intn(len(buf))
	idx := int(buf[i]) - geneBase
	if rng.Intn(2) == 0 {
		idx++
	} else {
		idx--
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= sizes[i] {
		idx = sizes[i] - 1
	}
	buf[i] = byte(geneBase + idx)
	return string(buf)
}

// neighborhood enumerates every single-gene one-step move from dna.
func neighborhood(dna string, sizes []int) []string {
	var out []string
	for i, n := range sizes {
		idx := int(dna[i]) - geneBase
		for _, next := range []int{idx - 1, idx + 1} {
			if next < 0 || next >= n {
				continue
			}
			buf := []byte(dna)
			buf[i] = byte(geneBase + next)
			out = append(out, string(buf))
		}
	}
	return out
}
