package sim

import "math/rand"

// RandomBinary returns a random ±amplitude sequence, a persistently exciting
// input for identification experiments.
func RandomBinary(n int, seed int64, amplitude float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		if rng.Intn(2) == 0 {
			out[i] = -amplitude
		} else {
			out[i] = amplitude
		}
	}
	return out
}

// Square alternates between amplitude and zero every halfPeriod samples,
// starting at amplitude.
func Square(n, halfPeriod int, amplitude float64) []float64 {
	if halfPeriod < 1 {
		halfPeriod = 1
	}
	out := make([]float64, n)
	for i := range out {
		if (i/halfPeriod)%2 == 0 {
			out[i] = amplitude
		}
	}
	return out
}

func Constant(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}
