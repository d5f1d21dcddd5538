package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/vrft/internal/sim"
	"github.com/san-kum/vrft/internal/tf"
)

const (
	DefaultDt        = 0.01
	DefaultSteps     = 1000
	DefaultHistory   = 2
	DefaultAmplitude = 1.0
	DefaultPeriod    = 200
	DefaultBasis     = "pi"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// TFConfig is a transfer function in descending powers of z.
type TFConfig struct {
	Num []float64 `yaml:"num"`
	Den []float64 `yaml:"den"`
}

// Build returns the transfer function sampled every dt seconds.
func (c TFConfig) Build(dt float64) (tf.TransferFunction, error) {
	return tf.New(c.Num, c.Den, dt)
}

type Config struct {
	Dt             float64    `yaml:"dt"`
	Plant          TFConfig   `yaml:"plant"`
	ReferenceModel TFConfig   `yaml:"reference_model"`
	Prefilter      *TFConfig  `yaml:"prefilter,omitempty"`
	Basis          string     `yaml:"basis"`
	CustomBasis    []TFConfig `yaml:"custom_basis,omitempty"`
	History        int        `yaml:"history"`
	Instrument     bool       `yaml:"instrument"`
	ConditionLimit float64    `yaml:"condition_limit"`
	Experiment     ExpConfig  `yaml:"experiment"`
	Simulation     SimConfig  `yaml:"simulation"`
}

// ExpConfig describes the excitation of the identification experiment.
type ExpConfig struct {
	Signal    string  `yaml:"signal"`
	Steps     int     `yaml:"steps"`
	Amplitude float64 `yaml:"amplitude"`
	Period    int     `yaml:"period"`
	Seed      int64   `yaml:"seed"`
	NoiseStd  float64 `yaml:"noise_std"`
}

// SimConfig controls the Monte-Carlo study.
type SimConfig struct {
	Runs int   `yaml:"runs"`
	Seed int64 `yaml:"seed"`
}

// DefaultConfig is a first-order plant tuned for the reference model
// 0.6/(z-0.4) with a PI basis, excited by a 2 s square wave.
func DefaultConfig() *Config {
	return &Config{
		Dt:             DefaultDt,
		Plant:          TFConfig{Num: []float64{0.5}, Den: []float64{1, -0.9}},
		ReferenceModel: TFConfig{Num: []float64{0.6}, Den: []float64{1, -0.4}},
		Basis:          DefaultBasis,
		History:        DefaultHistory,
		Experiment: ExpConfig{
			Signal:    "square",
			Steps:     DefaultSteps,
			Amplitude: DefaultAmplitude,
			Period:    DefaultPeriod,
		},
		Simulation: SimConfig{Runs: 100, Seed: 1},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	if c.History < 0 {
		return fmt.Errorf("%w: negative history %d", ErrInvalidConfig, c.History)
	}
	if c.Experiment.Steps <= 0 {
		return fmt.Errorf("%w: experiment needs a positive number of steps", ErrInvalidConfig)
	}
	if c.Experiment.NoiseStd < 0 {
		return fmt.Errorf("%w: negative noise level", ErrInvalidConfig)
	}
	if len(c.CustomBasis) == 0 && GetPreset(c.Basis) == nil {
		return fmt.Errorf("%w: unknown basis %q", ErrInvalidConfig, c.Basis)
	}
	return nil
}

func (c *Config) GetPlant() (tf.TransferFunction, error) {
	g, err := c.Plant.Build(c.Dt)
	if err != nil {
		return tf.TransferFunction{}, fmt.Errorf("plant: %w", err)
	}
	return g, nil
}

func (c *Config) GetReferenceModel() (tf.TransferFunction, error) {
	m, err := c.ReferenceModel.Build(c.Dt)
	if err != nil {
		return tf.TransferFunction{}, fmt.Errorf("reference model: %w", err)
	}
	return m, nil
}

// GetPrefilter returns the configured prefilter, or nil when the default
// should be derived from the reference model.
func (c *Config) GetPrefilter() (*tf.TransferFunction, error) {
	if c.Prefilter == nil {
		return nil, nil
	}
	l, err := c.Prefilter.Build(c.Dt)
	if err != nil {
		return nil, fmt.Errorf("prefilter: %w", err)
	}
	return &l, nil
}

// GetBasis returns the custom basis when one is given, the named preset
// otherwise.
func (c *Config) GetBasis() ([]tf.TransferFunction, error) {
	specs := c.CustomBasis
	if len(specs) == 0 {
		if specs = GetPreset(c.Basis); specs == nil {
			return nil, fmt.Errorf("%w: unknown basis %q", ErrInvalidConfig, c.Basis)
		}
	}
	basis := make([]tf.TransferFunction, len(specs))
	for i, s := range specs {
		b, err := s.Build(c.Dt)
		if err != nil {
			return nil, fmt.Errorf("basis %d: %w", i, err)
		}
		basis[i] = b
	}
	return basis, nil
}

// GetExcitation generates the experiment input. seedOffset shifts the seed
// of random signals so repeated experiments differ.
func (c *Config) GetExcitation(seedOffset int64) ([]float64, error) {
	e := c.Experiment
	switch e.Signal {
	case "square", "":
		return sim.Square(e.Steps, e.Period, e.Amplitude), nil
	case "prbs":
		return sim.RandomBinary(e.Steps, e.Seed+seedOffset, e.Amplitude), nil
	case "step":
		return sim.Constant(e.Steps, e.Amplitude), nil
	default:
		return nil, fmt.Errorf("%w: unknown signal %q", ErrInvalidConfig, e.Signal)
	}
}

func (c *Config) GetSimConfig(seed int64) sim.Config {
	return sim.Config{Dt: c.Dt, Seed: seed, NoiseStd: c.Experiment.NoiseStd}
}
