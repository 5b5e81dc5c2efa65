package strategy

import (
	"math"
	"testing"
)

func TestValues(t *testing.T) {
	tests := []struct {
		name string
		hp   Hyperparameter
		want []float64
	}{
		{
			"int grid",
			Hyperparameter{Name: "p", Type: TypeInt, Min: 3, Max: 9, Step: 2},
			[]float64{3, 5, 7, 9},
		},
		{
			"int default step",
			Hyperparameter{Name: "p", Type: TypeInt, Min: 1, Max: 4},
			[]float64{1, 2, 3, 4},
		},
		{
			"float grid",
			Hyperparameter{Name: "p", Type: TypeFloat, Min: 0.01, Max: 0.05, Step: 0.01},
			[]float64{0.01, 0.02, 0.03, 0.04, 0.05},
		},
		{
			"step not dividing the range",
			Hyperparameter{Name: "p", Type: TypeInt, Min: 1, Max: 10, Step: 4},
			[]float64{1, 5, 9},
		},
		{
			"bool",
			Hyperparameter{Name: "p", Type: TypeBool},
			[]float64{0, 1},
		},
		{
			"single point",
			Hyperparameter{Name: "p", Type: TypeInt, Min: 7, Max: 7, Step: 1},
			[]float64{7},
		},
	}
	for _, tt := range tests {
		got := tt.hp.Values()
		if len(got) != len(tt.want) {
			t.Errorf("%s: Values() = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if math.Abs(got[i]-tt.want[i]) > 1e-9 {
				t.Errorf("%s: Values()[%d] = %v, want %v", tt.name, i, got[i], tt.want[i])
			}
		}
	}
}

func TestFloatGridHasNoAccumulationDrift(t *testing.T) {
	// 0.1 steps are the classic accumulation trap
	hp := Hyperparameter{Name: "p", Type: TypeFloat, Min: 0.1, Max: 1.0, Step: 0.1}
	got := hp.Values()
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10: %v", len(got), got)
	}
	if got[9] != 1.0 || got[2] != 0.3 {
		t.Errorf("drifted grid: %v", got)
	}
}

func TestGridSize(t *testing.T) {
	hps := []Hyperparameter{
		{Name: "a", Type: TypeInt, Min: 1, Max: 5, Step: 1},   // 5
		{Name: "b", Type: TypeFloat, Min: 0, Max: 1, Step: 0.5}, // 3
		{Name: "c", Type: TypeBool},                             // 2
	}
	if got := GridSize(hps); got != 30 {
		t.Errorf("GridSize = %d, want 30", got)
	}
	if got := GridSize(nil); got != 1 {
		t.Errorf("GridSize(nil) = %d, want 1", got)
	}
}

func TestDefaultValues(t *testing.T) {
	hps := []Hyperparameter{
		{Name: "a", Type: TypeInt, Min: 1, Max: 5, Step: 1, Default: 3},
		{Name: "b", Type: TypeFloat, Min: 0, Max: 1, Step: 0.5, Default: 0.5},
	}
	got := DefaultValues(hps)
	if got["a"] != 3 || got["b"] != 0.5 {
		t.Errorf("DefaultValues = %v", got)
	}
}
