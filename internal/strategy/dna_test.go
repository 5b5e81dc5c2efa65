package strategy

import "testing"

func testHPs() []Hyperparameter {
	return []Hyperparameter{
		{Name: "fast", Type: TypeInt, Min: 3, Max: 20, Step: 1, Default: 9},
		{Name: "slow", Type: TypeInt, Min: 10, Max: 60, Step: 2, Default: 20},
		{Name: "stop", Type: TypeFloat, Min: 0.01, Max: 0.10, Step: 0.01, Default: 0.03},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hps := testHPs()
	values := map[string]float64{"fast": 3, "slow": 10, "stop": 0.01}

	dna, err := EncodeDNA(hps, values)
	if err != nil {
		t.Fatal(err)
	}
	// first grid index maps to '!'
	if dna != "!!!" {
		t.Errorf("dna = %q, want %q", dna, "!!!")
	}

	decoded, err := DecodeDNA(hps, dna)
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range values {
		if decoded[name] != want {
			t.Errorf("decoded[%s] = %v, want %v", name, decoded[name], want)
		}
	}
}

func TestEncodeDecodeInverseOverGrid(t *testing.T) {
	hps := testHPs()
	for _, values := range []map[string]float64{
		{"fast": 9, "slow": 20, "stop": 0.03},
		{"fast": 20, "slow": 60, "stop": 0.10},
		{"fast": 11, "slow": 34, "stop": 0.07},
	} {
		dna, err := EncodeDNA(hps, values)
		if err != nil {
			t.Fatalf("encode %v: %v", values, err)
		}
		back, err := DecodeDNA(hps, dna)
		if err != nil {
			t.Fatalf("decode %q: %v", dna, err)
		}
		for name, want := range values {
			if back[name] != want {
				t.Errorf("%q: %s = %v, want %v", dna, name, back[name], want)
			}
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	hps := testHPs()

	if _, err := EncodeDNA(hps, map[string]float64{"fast": 9, "slow": 20}); err == nil {
		t.Error("missing value not rejected")
	}
	if _, err := EncodeDNA(hps, map[string]float64{"fast": 9, "slow": 21, "stop": 0.03}); err == nil {
		t.Error("off-grid value not rejected")
	}
}

func TestDecodeErrors(t *testing.T) {
	hps := testHPs()

	if _, err := DecodeDNA(hps, "!!"); err == nil {
		t.Error("short dna not rejected")
	}
	// slow has 26 grid points; '~' (index 93) is out of range
	if _, err := DecodeDNA(hps, "!~!"); err == nil {
		t.Error("out-of-range gene not rejected")
	}
}

func TestValidateGridLimits(t *testing.T) {
	huge := []Hyperparameter{{Name: "p", Type: TypeInt, Min: 0, Max: 200, Step: 1}}
	if _, err := EncodeDNA(huge, map[string]float64{"p": 0}); err == nil {
		t.Error("grid wider than the dna alphabet not rejected")
	}
	empty := []Hyperparameter{{Name: "p", Type: TypeInt, Min: 5, Max: 1, Step: 1}}
	if _, err := DecodeDNA(empty, "!"); err == nil {
		t.Error("empty grid not rejected")
	}
}
