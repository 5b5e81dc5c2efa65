package optimize

import (
	"math/rand"
	"testing"
)

func TestRandomDNAInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sizes := []int{3, 10, 1}
	for trial := 0; trial < 100; trial++ {
		dna := randomDNA(rng, sizes)
		if len(dna) != 3 {
			t.Fatalf("dna length = %d", len(dna))
		}
		for i, n := range sizes {
			idx := int(dna[i]) - geneBase
			if idx < 0 || idx >= n {
				t.Fatalf("gene %d = %d out of [0, %d)", i, idx, n)
			}
		}
	}
}

func TestCrossoverTakesGenesFromParents(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a, b := "!!!!", "$$$$"
	for trial := 0; trial < 50; trial++ {
		child := crossover(rng, a, b)
		for i := range child {
			if child[i] != a[i] && child[i] != b[i] {
				t.Fatalf("child gene %d = %q from neither parent", i, child[i])
			}
		}
	}
}

func TestMutate(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	sizes := []int{5, 5, 5}

	if got := mutate(rng, "\"\"\"", sizes, 0); got != "\"\"\"" {
		t.Errorf("zero-rate mutate changed dna: %q", got)
	}

	// full-rate mutation stays on the grid
	for trial := 0; trial < 50; trial++ {
		got := mutate(rng, "!!!", sizes, 1)
		for i := range got {
			idx := int(got[i]) - geneBase
			if idx < 0 || idx >= sizes[i] {
				t.Fatalf("mutated gene %d out of range: %d", i, idx)
			}
		}
	}
}

func TestNeighborMovesOneGeneOneStep(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	sizes := []int{5, 5}
	dna := "##" // both genes at index 2

	for trial := 0; trial < 50; trial++ {
		next := neighbor(rng, dna, sizes)
		diff := 0
		for i := range next {
			d := int(next[i]) - int(dna[i])
			if d != 0 {
				diff++
				if d != 1 && d != -1 {
					t.Fatalf("gene %d moved %d steps", i, d)
				}
			}
		}
		if diff != 1 {
			t.Fatalf("neighbor changed %d genes: %q -> %q", diff, dna, next)
		}
	}
}

func TestNeighborClampsAtGridEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	sizes := []int{2}
	for trial := 0; trial < 50; trial++ {
		next := neighbor(rng, "!", sizes)
		idx := int(next[0]) - geneBase
		if idx < 0 || idx >= 2 {
			t.Fatalf("clamped neighbor out of range: %d", idx)
		}
	}
}

func TestNeighborhood(t *testing.T) {
	sizes := []int{5, 5}

	// interior point: two moves per gene
	if got := neighborhood("##", sizes); len(got) != 4 {
		t.Errorf("interior neighborhood = %v", got)
	}
	// corner point: one move per gene
	got := neighborhood("!!", sizes)
	if len(got) != 2 {
		t.Fatalf("corner neighborhood = %v", got)
	}
	for _, n := range got {
		if n != "\"!" && n != "!\"" {
			t.Errorf("unexpected corner move %q", n)
		}
	}
}
