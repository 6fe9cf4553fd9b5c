package embed

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]float64{3, 4})
	if math.Abs(got[0]-0.6) > 1e-12 || math.Abs(got[1]-0.8) > 1e-12 {
		t.Errorf("Normalize([3 4]) = %v", got)
	}

	var sum float64
	for _, v := range got {
		sum += v * v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("normalized vector has squared norm %f", sum)
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	got := Normalize([]float64{0, 0, 0})
	for i, v := range got {
		if v != 0 {
			t.Fatalf("zero vector changed at %d: %f", i, v)
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"unnormalized inputs", []float64{2, 0}, []float64{5, 0}, 1},
		{"length mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Cosine() = %f, want %f", got, tt.want)
			}
		})
	}
}
