package strategy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// HPType is the declared type of a hyperparameter.
type HPType string

const (
	TypeInt   HPType = "int"
	TypeFloat HPType = "float"
	TypeBool  HPType = "bool"
)

// Hyperparameter declares one searchable parameter. The optimizer expands
// it into the inclusive discrete grid [Min, Min+Step, ..., <=Max].
// Booleans ignore Min/Max/Step and expand to {false, true}.
type Hyperparameter struct {
	Name    string
	Type    HPType
	Min     float64
	Max     float64
	Step    float64
	Default float64
}

// Values expands the hyperparameter into its discrete grid.
func (h Hyperparameter) Values() []float64 {
	if h.Type == TypeBool {
		return []float64{0, 1}
	}
	step := h.Step
	if step <= 0 {
		if h.Type == TypeInt {
			step = 1
		} else {
			step = 0.1
		}
	}
	decs := stepDecimals(step)
	var out []float64
	for v := h.Min; v <= h.Max+step/2; v += step {
		out = append(out, roundTo(v, decs))
	}
	// guard against float accumulation walking past Max
	for len(out) > 0 && out[len(out)-1] > h.Max+1e-9 {
		out = out[:len(out)-1]
	}
	return out
}

// DefaultValues maps every declared hyperparameter to its default.
func DefaultValues(hps []Hyperparameter) map[string]float64 {
	out := make(map[string]float64, len(hps))
	for _, h := range hps {
		out[h.Name] = h.Default
	}
	return out
}

// GridSize returns the total number of points in the combined grid.
func GridSize(hps []Hyperparameter) int {
	total := 1
	for _, h := range hps {
		total *= len(h.Values())
	}
	return total
}

// stepDecimals counts the decimal places of a step like 0.05 → 2.
func stepDecimals(step float64) int {
	s := strconv.FormatFloat(step, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func roundTo(v float64, decs int) float64 {
	p := math.Pow10(decs)
	return math.Round(v*p) / p
}

// validateGrid rejects hyperparameters the DNA codec cannot represent.
func validateGrid(hps []Hyperparameter) error {
	for _, h := range hps {
		n := len(h.Values())
		if n == 0 {
			return fmt.Errorf("strategy: hyperparameter %q has an empty grid", h.Name)
		}
		if n > dnaAlphabet {
			return fmt.Errorf("strategy: hyperparameter %q has %d grid points, max is %d", h.Name, n, dnaAlphabet)
		}
	}
	return nil
}
