package sim

import (
	"errors"

	"github.com/san-kum/vrft/internal/iddata"
)

var (
	// ErrInvalidConfig indicates a configuration the simulator cannot run.
	ErrInvalidConfig = errors.New("sim: invalid configuration")

	// ErrAlgebraicLoop indicates a closed loop without a delay: the plant
	// must be strictly proper.
	ErrAlgebraicLoop = errors.New("sim: algebraic loop (plant has no delay)")
)

// Metric observes every simulated sample.
type Metric interface {
	Name() string
	Observe(k int, r, u, y float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(k int, r, u, y float64)
}

type Config struct {
	Dt   float64
	Seed int64
	// NoiseStd is the standard deviation of white Gaussian noise added to
	// the measured output.
	NoiseStd float64
}

// Result is one simulated experiment. Reference is nil for open-loop runs.
type Result struct {
	Times     []float64
	Reference []float64
	Input     []float64
	// Output is the noise-free plant output, Measured the noisy one.
	Output   []float64
	Measured []float64
	Metrics  map[string]float64
	Dt       float64
}

// Data packages the measured run as an experiment. The plant starts at rest,
// so the output history is historyLen zeros.
func (r *Result) Data(historyLen int) (*iddata.Data, error) {
	return iddata.New(r.Measured, r.Input, r.Dt, make([]float64, historyLen))
}
