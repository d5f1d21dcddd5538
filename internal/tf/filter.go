package tf

import "fmt"

// InitialState supplies samples from before the start of a filtered signal.
// Both slices are newest first. Missing entries are zero and entries beyond
// the filter order are ignored.
type InitialState struct {
	Input  []float64
	Output []float64
}

// Runner evaluates the difference equation of a transfer function one sample
// at a time:
//
//	y[n] = b0·u[n] + Σ_{k≥1} (b_k·u[n-k] - a_k·y[n-k])
//
// with coefficients normalised so that a0 = 1. A Runner is not safe for
// concurrent use.
type Runner struct {
	b   []float64
	a   []float64
	in  []float64
	out []float64
}

// NewRunner returns a Runner positioned just before sample 0. init may be nil.
func (g TransferFunction) NewRunner(init *InitialState) (*Runner, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	order := g.Order()
	a0 := g.den[0]

	r := &Runner{
		b:   make([]float64, order+1),
		a:   make([]float64, order+1),
		in:  make([]float64, order),
		out: make([]float64, order),
	}
	// left-pad the numerator: z^-d delay form
	offset := len(g.den) - len(g.num)
	for i, c := range g.num {
		r.b[offset+i] = c / a0
	}
	for i, c := range g.den {
		r.a[i] = c / a0
	}
	if init != nil {
		copy(r.in, init.Input)
		copy(r.out, init.Output)
	}
	return r, nil
}

// Peek returns the output the next Step would produce for a zero input.
// For a strictly proper system it is the next output regardless of input.
func (r *Runner) Peek() float64 {
	y := 0.0
	for k := 1; k < len(r.a); k++ {
		y += r.b[k]*r.in[k-1] - r.a[k]*r.out[k-1]
	}
	return y
}

// Step consumes u[n] and returns y[n].
func (r *Runner) Step(u float64) float64 {
	y := r.b[0]*u + r.Peek()
	if n := len(r.in); n > 0 {
		copy(r.in[1:], r.in[:n-1])
		copy(r.out[1:], r.out[:n-1])
		r.in[0] = u
		r.out[0] = y
	}
	return y
}

// Filter applies g to signal and returns a new slice of the same length.
// A nil init means the system starts at rest.
func (g TransferFunction) Filter(signal []float64, init *InitialState) ([]float64, error) {
	r, err := g.NewRunner(init)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	out := make([]float64, len(signal))
	for n, u := range signal {
		out[n] = r.Step(u)
	}
	return out, nil
}
