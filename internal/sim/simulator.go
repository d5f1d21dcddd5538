package sim

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/san-kum/vrft/internal/tf"
)

// Simulator runs a discrete plant in open loop, or in closed loop with a
// controller acting on the measured tracking error.
type Simulator struct {
	plant      tf.TransferFunction
	controller *tf.TransferFunction
	metrics    []Metric
	observers  []Observer
}

// New returns a simulator for plant. A nil controller gives open-loop runs.
func New(plant tf.TransferFunction, controller *tf.TransferFunction) *Simulator {
	return &Simulator{
		plant:      plant,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run drives the simulation with excitation: the plant input in open loop,
// the reference in closed loop. The plant starts at rest.
func (s *Simulator) Run(ctx context.Context, excitation []float64, cfg Config) (*Result, error) {
	if err := s.validateConfig(excitation, cfg); err != nil {
		return nil, err
	}

	plant, err := s.plant.NewRunner(nil)
	if err != nil {
		return nil, fmt.Errorf("plant: %w", err)
	}
	var ctrl *tf.Runner
	if s.controller != nil {
		if ctrl, err = s.controller.NewRunner(nil); err != nil {
			return nil, fmt.Errorf("controller: %w", err)
		}
	}

	n := len(excitation)
	result := &Result{
		Times:    make([]float64, n),
		Input:    make([]float64, n),
		Output:   make([]float64, n),
		Measured: make([]float64, n),
		Metrics:  make(map[string]float64),
		Dt:       cfg.Dt,
	}
	if ctrl != nil {
		result.Reference = make([]float64, n)
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	noise := rand.New(rand.NewSource(cfg.Seed))

	for k, x := range excitation {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var r, u, y float64
		nk := cfg.NoiseStd * noise.NormFloat64()
		if ctrl == nil {
			u = x
			y = plant.Step(u)
		} else {
			r = x
			y = plant.Peek()
			u = ctrl.Step(r - (y + nk))
			plant.Step(u)
			result.Reference[k] = r
		}

		result.Times[k] = float64(k) * cfg.Dt
		result.Input[k] = u
		result.Output[k] = y
		result.Measured[k] = y + nk

		for _, m := range s.metrics {
			m.Observe(k, r, u, y)
		}
		for _, obs := range s.observers {
			obs.OnStep(k, r, u, y)
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) validateConfig(excitation []float64, cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if !tf.SamePeriod(cfg.Dt, s.plant.Dt()) {
		return fmt.Errorf("%w: dt %g does not match plant sampling period %g", ErrInvalidConfig, cfg.Dt, s.plant.Dt())
	}
	if cfg.NoiseStd < 0 {
		return fmt.Errorf("%w: noise standard deviation must be non-negative", ErrInvalidConfig)
	}
	if len(excitation) == 0 {
		return fmt.Errorf("%w: empty excitation", ErrInvalidConfig)
	}
	if s.controller != nil {
		if !tf.SamePeriod(s.controller.Dt(), s.plant.Dt()) {
			return fmt.Errorf("%w: controller %g, plant %g", tf.ErrSamplingMismatch, s.controller.Dt(), s.plant.Dt())
		}
		if s.plant.RelativeDegree() < 1 {
			return ErrAlgebraicLoop
		}
	}
	return nil
}
