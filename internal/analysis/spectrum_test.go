package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/vrft/internal/sim"
)

func sine(n, bin int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * float64(bin*i) / float64(n))
	}
	return x
}

func TestPowerSpectrum(t *testing.T) {
	require.Nil(t, PowerSpectrum(nil))

	ps := PowerSpectrum(sine(64, 5))
	require.Len(t, ps, 33)
	// Parseval over the one-sided half: N/4 at the line
	require.InDelta(t, 16, ps[5], 1e-9)
	require.InDelta(t, 0, ps[0], 1e-9)
	require.InDelta(t, 0, ps[6], 1e-9)
}

func TestExcitationOrder(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		want int
	}{
		{"empty", nil, 0},
		{"zero", make([]float64, 16), 0},
		{"constant", sim.Constant(32, 2), 1},
		{"sine", sine(64, 5), 2},
		{"sine plus offset", func() []float64 {
			x := sine(64, 3)
			for i := range x {
				x[i]++
			}
			return x
		}(), 3},
		{"nyquist", func() []float64 {
			x := make([]float64, 8)
			for i := range x {
				x[i] = math.Cos(math.Pi * float64(i))
			}
			return x
		}(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExcitationOrder(tt.x, 1e-8))
		})
	}
}

func TestRandomBinaryIsRichlyExciting(t *testing.T) {
	u := sim.RandomBinary(256, 7, 1)
	require.Greater(t, ExcitationOrder(u, 1e-8), 100)
}

func TestDominantFrequency(t *testing.T) {
	require.InDelta(t, 5/(64*0.01), DominantFrequency(sine(64, 5), 0.01), 1e-12)
	require.Zero(t, DominantFrequency(sim.Constant(16, 1), 0.01))
}
