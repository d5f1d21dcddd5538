package vrft

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vrft/internal/iddata"
	"github.com/san-kum/vrft/internal/tf"
)

// Result is the outcome of a complete VRFT run.
type Result struct {
	Theta    []float64
	Estimate *Estimate
	Problem  *Problem
	// VirtualReference is M⁻¹·y, see [VirtualReference].
	VirtualReference []float64
	// Instruments is the instrument matrix when IV was used, nil otherwise.
	Instruments *mat.Dense
	Controller  tf.TransferFunction
}

type options struct {
	instrument *iddata.Data
	logger     *zap.Logger
	condLimit  float64
}

// Option configures Compute.
type Option func(*options)

// WithInstrument selects the instrumental-variable estimator, building the
// instruments from a second experiment of the same length whose noise is
// independent of the first.
func WithInstrument(d *iddata.Data) Option {
	return func(o *options) { o.instrument = d }
}

// WithLogger sets the logger for stage-level debug events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConditionLimit overrides DefaultConditionLimit for IV.
func WithConditionLimit(c float64) Option {
	return func(o *options) { o.condLimit = c }
}

// Compute validates the inputs, builds the regression, estimates θ and
// returns the synthesised controller. OLS is used unless WithInstrument is
// given.
func Compute(data *iddata.Data, m tf.TransferFunction, basis []tf.TransferFunction, l tf.TransferFunction, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop(), condLimit: DefaultConditionLimit}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	problem, err := Build(data, m, basis, l)
	if err != nil {
		return nil, fmt.Errorf("build regression: %w", err)
	}
	rows, cols := problem.Dims()
	log.Debug("regression built",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Int("warmup", problem.Warmup),
	)

	r, err := VirtualReference(data, m)
	if err != nil {
		return nil, fmt.Errorf("virtual reference: %w", err)
	}
	res := &Result{Problem: problem, VirtualReference: r}
	if o.instrument != nil {
		if o.instrument.Len() != data.Len() {
			return nil, fmt.Errorf("%w: instrument experiment has %d samples, experiment %d",
				ErrDimensionMismatch, o.instrument.Len(), data.Len())
		}
		zp, err := Build(o.instrument, m, basis, l)
		if err != nil {
			return nil, fmt.Errorf("build instruments: %w", err)
		}
		res.Instruments = zp.Phi
		res.Estimate, err = IV(problem, zp.Phi, o.condLimit)
		if err != nil {
			return nil, fmt.Errorf("instrumental variables: %w", err)
		}
	} else {
		res.Estimate, err = OLS(problem)
		if err != nil {
			return nil, fmt.Errorf("least squares: %w", err)
		}
	}
	res.Theta = res.Estimate.Theta
	log.Debug("parameters estimated",
		zap.String("method", string(res.Estimate.Method)),
		zap.Float64s("theta", res.Theta),
		zap.Float64("loss", res.Estimate.Loss),
		zap.Float64("cond", res.Estimate.Cond),
	)

	res.Controller, err = Synthesize(res.Theta, basis)
	if err != nil {
		return nil, fmt.Errorf("synthesize controller: %w", err)
	}
	log.Debug("controller synthesized", zap.Stringer("controller", res.Controller))
	return res, nil
}
