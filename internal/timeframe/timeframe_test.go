package timeframe

import "testing"

func TestToMinutes(t *testing.T) {
	tests := []struct {
		label string
		want  int
		ok    bool
	}{
		{"1m", 1, true},
		{"5m", 5, true},
		{"45m", 45, true},
		{"4h", 240, true},
		{"1D", 1440, true},
		{"7m", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ToMinutes(tt.label)
		if (err == nil) != tt.ok {
			t.Errorf("ToMinutes(%q) error = %v, want ok=%v", tt.label, err, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("ToMinutes(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestIsCustom(t *testing.T) {
	tests := []struct {
		count int
		want  bool
	}{
		{1, false},
		{45, false},  // 45*32 = 1440
		{60, false},
		{50, true},   // 1440 % 50 = 40
		{120, false},
		{180, false},
		{100, true},
		{700, true},
		{1440, false},
	}
	for _, tt := range tests {
		if got := IsCustom(tt.count); got != tt.want {
			t.Errorf("IsCustom(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestLastBarOfDay(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{45, 45},  // divisor timeframes keep their full length
		{60, 60},
		{50, 40},  // 28 full bars of 50, then 40
		{100, 40}, // 14 full bars of 100, then 40
		{700, 40},
	}
	for _, tt := range tests {
		if got := LastBarOfDay(tt.count); got != tt.want {
			t.Errorf("LastBarOfDay(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestBarsPerDay(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{1, 1440},
		{45, 32},
		{60, 24},
		{50, 29}, // 28 full + 1 short
		{1440, 1},
	}
	for _, tt := range tests {
		if got := BarsPerDay(tt.count); got != tt.want {
			t.Errorf("BarsPerDay(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestGCD(t *testing.T) {
	tests := []struct {
		counts []int
		want   int
	}{
		{nil, 1},
		{[]int{5}, 5},
		{[]int{15, 60}, 15},
		{[]int{45, 60}, 15},
		{[]int{3, 5}, 1},
	}
	for _, tt := range tests {
		if got := GCD(tt.counts); got != tt.want {
			t.Errorf("GCD(%v) = %d, want %d", tt.counts, got, tt.want)
		}
	}
}
