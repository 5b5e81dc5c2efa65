package strategy

import (
	"fmt"
	"math"
)

// DNA encoding: one printable ASCII character per hyperparameter, the
// character being dnaBase + the value's index in the parameter's grid.
// Encode and Decode are total inverses over the declared grid.
const (
	dnaBase     = '!' // 33
	dnaAlphabet = 94  // '!'..'~'
)

// EncodeDNA encodes a concrete assignment into a DNA string.
// Values must lie on the declared grid (within float tolerance).
func EncodeDNA(hps []Hyperparameter, values map[string]float64) (string, error) {
	if err := validateGrid(hps); err != nil {
		return "", err
	}
	buf := make([]byte, len(hps))
	for i, h := range hps {
		v, ok := values[h.Name]
		if !ok {
			return "", fmt.Errorf("strategy: missing value for hyperparameter %q", h.Name)
		}
		idx := -1
		for j, gv := range h.Values() {
			if math.Abs(gv-v) < 1e-9 {
				idx = j
				break
			}
		}
		if idx < 0 {
			return "", fmt.Errorf("strategy: value %v for %q is not on the grid", v, h.Name)
		}
		buf[i] = byte(dnaBase + idx)
	}
	return string(buf), nil
}

// DecodeDNA decodes a DNA string into a concrete assignment.
func DecodeDNA(hps []Hyperparameter, dna string) (map[string]float64, error) {
	if err := validateGrid(hps); err != nil {
		return nil, err
	}
	if len(dna) != len(hps) {
		return nil, fmt.Errorf("strategy: dna length %d != %d hyperparameters", len(dna), len(hps))
	}
	out := make(map[string]float64, len(hps))
	for i, h := range hps {
		idx := int(dna[i]) - dnaBase
		values := h.Values()
		if idx < 0 || idx >= len(values) {
			return nil, fmt.Errorf("strategy: dna gene %d (%q) out of range for %q", i, dna[i], h.Name)
		}
		out[h.Name] = values[idx]
	}
	return out, nil
}
