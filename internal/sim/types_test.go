package sim

import (
	"testing"
)

func TestSignals(t *testing.T) {
	tests := []struct {
		name string
		got  []float64
		want []float64
	}{
		{"square", Square(7, 2, 3), []float64{3, 3, 0, 0, 3, 3, 0}},
		{"square degenerate period", Square(3, 0, 1), []float64{1, 0, 1}},
		{"constant", Constant(3, 0.5), []float64{0.5, 0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(tt.got), len(tt.want))
			}
			for i := range tt.want {
				if tt.got[i] != tt.want[i] {
					t.Errorf("[%d] = %v, want %v", i, tt.got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRandomBinary(t *testing.T) {
	a := RandomBinary(200, 5, 2)
	b := RandomBinary(200, 5, 2)

	highs := 0
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed differs at %d", i)
		}
		if a[i] != 2 && a[i] != -2 {
			t.Fatalf("sample %d = %v, want ±2", i, a[i])
		}
		if a[i] > 0 {
			highs++
		}
	}
	if highs == 0 || highs == len(a) {
		t.Errorf("expected both levels, got %d highs of %d", highs, len(a))
	}
}

func TestResultData(t *testing.T) {
	r := &Result{
		Input:    []float64{1, 0, 0},
		Measured: []float64{0, 0.5, 0.15},
		Dt:       0.01,
	}

	d, err := r.Data(2)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if d.Len() != 3 {
		t.Errorf("expected 3 samples, got %d", d.Len())
	}
	if y0 := d.Y0(); len(y0) != 2 || y0[0] != 0 || y0[1] != 0 {
		t.Errorf("expected two zero history samples, got %v", y0)
	}
}
