package metrics

import (
	"math"

	"github.com/san-kum/vrft/internal/tf"
)

// TrackingError is the RMS distance between the plant output and the output
// the reference model produces for the same reference. Zero means the loop
// behaves exactly like the model.
type TrackingError struct {
	name    string
	model   tf.TransferFunction
	runner  *tf.Runner
	sumSq   float64
	samples int
}

func NewTrackingError(model tf.TransferFunction) (*TrackingError, error) {
	r, err := model.NewRunner(nil)
	if err != nil {
		return nil, err
	}
	return &TrackingError{name: "tracking_error", model: model, runner: r}, nil
}

func (e *TrackingError) Name() string { return e.name }

func (e *TrackingError) Observe(k int, r, u, y float64) {
	d := y - e.runner.Step(r)
	e.sumSq += d * d
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *TrackingError) Reset() {
	// the model was validated in NewTrackingError
	e.runner, _ = e.model.NewRunner(nil)
	e.sumSq = 0
	e.samples = 0
}
