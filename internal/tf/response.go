package tf

import "math"

// DCGain returns g(1). It is ±Inf for a pole at z = 1.
func (g TransferFunction) DCGain() float64 {
	d := g.den.Eval(1)
	n := g.num.Eval(1)
	if d == 0 {
		if n == 0 {
			return math.NaN()
		}
		return math.Copysign(math.Inf(1), n)
	}
	return n / d
}

// Step returns the first n samples of the unit step response.
func (g TransferFunction) Step(n int) ([]float64, error) {
	u := make([]float64, n)
	for i := range u {
		u[i] = 1
	}
	return g.Filter(u, nil)
}

// Impulse returns the first n samples of the unit impulse response.
func (g TransferFunction) Impulse(n int) ([]float64, error) {
	u := make([]float64, n)
	if n > 0 {
		u[0] = 1
	}
	return g.Filter(u, nil)
}
