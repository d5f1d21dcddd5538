package vrft

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vrft/internal/iddata"
	"github.com/san-kum/vrft/internal/tf"
)

// Problem is the regression target ≈ Phi·θ. Column i of Phi belongs to
// basis element i; row k to sample Warmup+k of the experiment.
type Problem struct {
	Phi    *mat.Dense
	Target *mat.VecDense
	Warmup int
	// VirtualError is the prefiltered virtual error over the kept rows.
	VirtualError []float64
}

// Dims returns the number of kept samples and of parameters.
func (p *Problem) Dims() (rows, cols int) { return p.Phi.Dims() }

// DefaultPrefilter returns L = (1-M)·M.
func DefaultPrefilter(m tf.TransferFunction) (tf.TransferFunction, error) {
	c, err := m.Complement()
	if err != nil {
		return tf.TransferFunction{}, err
	}
	return c.Multiply(m)
}

// Warmup is the number of leading samples discarded by Build: the largest
// order among m, l and the basis.
func Warmup(m tf.TransferFunction, basis []tf.TransferFunction, l tf.TransferFunction) int {
	w := max(m.Order(), l.Order())
	for _, b := range basis {
		w = max(w, b.Order())
	}
	return w
}

// RequiredHistory is the number of past outputs Build needs in data.Y0: the
// warm-up, or the order of the virtual-error filter when that is larger.
func RequiredHistory(m tf.TransferFunction, basis []tf.TransferFunction, l tf.TransferFunction) (int, error) {
	e, err := VirtualErrorFilter(m, l)
	if err != nil {
		return 0, err
	}
	return max(Warmup(m, basis, l), e.Order()), nil
}

// VirtualErrorFilter returns E = L·(1-M)/M, the map from the measured output
// to the prefiltered virtual error. With M = B/A it is L_num·(A-B)/(L_den·B),
// which is causal when L delays at least as much as M.
func VirtualErrorFilter(m, l tf.TransferFunction) (tf.TransferFunction, error) {
	if err := m.Validate(); err != nil {
		return tf.TransferFunction{}, fmt.Errorf("reference model: %w", err)
	}
	if err := l.Validate(); err != nil {
		return tf.TransferFunction{}, fmt.Errorf("prefilter: %w", err)
	}
	if !tf.SamePeriod(m.Dt(), l.Dt()) {
		return tf.TransferFunction{}, fmt.Errorf("%w: reference model %g, prefilter %g", tf.ErrSamplingMismatch, m.Dt(), l.Dt())
	}
	if m.IsZero() {
		return tf.TransferFunction{}, fmt.Errorf("%w: reference model is identically zero", tf.ErrInvalidTransferFunction)
	}
	a, b := m.Den(), m.Num()
	e, err := tf.New(l.Num().Mul(a.Sub(b)), l.Den().Mul(b), m.Dt())
	if err != nil {
		return tf.TransferFunction{}, fmt.Errorf("prefilter relative degree %d below reference model's %d: %w",
			l.RelativeDegree(), m.RelativeDegree(), err)
	}
	return e, nil
}

// Build forms the VRFT regression from one experiment:
//
//	Phi[:, i] = β_i·L·(1-M)/M·y,  target = L·u
//
// with the first Warmup samples dropped from every column and the target.
// data.Y0 is used as the output history and must hold RequiredHistory samples.
func Build(data *iddata.Data, m tf.TransferFunction, basis []tf.TransferFunction, l tf.TransferFunction) (*Problem, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil experiment", ErrInvalidParameter)
	}
	if len(basis) == 0 {
		return nil, fmt.Errorf("%w: empty control basis", ErrInvalidParameter)
	}
	if err := checkPeriods(data.Dt(), m, basis, l); err != nil {
		return nil, err
	}

	e, err := VirtualErrorFilter(m, l)
	if err != nil {
		return nil, err
	}
	warmup := Warmup(m, basis, l)
	y0 := data.Y0()
	if need := max(warmup, e.Order()); len(y0) < need {
		return nil, fmt.Errorf("%w: have %d samples, need %d", ErrInsufficientHistory, len(y0), need)
	}
	n := data.Len()
	if n <= warmup {
		return nil, fmt.Errorf("%w: %d samples, warm-up %d", ErrInsufficientData, n, warmup)
	}

	virtualErr, err := e.Filter(data.Y(), &tf.InitialState{Input: y0})
	if err != nil {
		return nil, fmt.Errorf("virtual error: %w", err)
	}
	target, err := l.Filter(data.U(), nil)
	if err != nil {
		return nil, fmt.Errorf("prefiltered input: %w", err)
	}

	rows := n - warmup
	phi := mat.NewDense(rows, len(basis), nil)
	for i, b := range basis {
		col, err := b.Filter(virtualErr, nil)
		if err != nil {
			return nil, fmt.Errorf("basis %d: %w", i, err)
		}
		for k := 0; k < rows; k++ {
			phi.Set(k, i, col[warmup+k])
		}
	}

	return &Problem{
		Phi:          phi,
		Target:       mat.NewVecDense(rows, target[warmup:]),
		Warmup:       warmup,
		VirtualError: virtualErr[warmup:],
	}, nil
}

func checkPeriods(dt float64, m tf.TransferFunction, basis []tf.TransferFunction, l tf.TransferFunction) error {
	check := func(name string, g tf.TransferFunction) error {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if !tf.SamePeriod(dt, g.Dt()) {
			return fmt.Errorf("%w: %s has %g, experiment has %g", tf.ErrSamplingMismatch, name, g.Dt(), dt)
		}
		return nil
	}
	if err := check("reference model", m); err != nil {
		return err
	}
	if err := check("prefilter", l); err != nil {
		return err
	}
	for i, b := range basis {
		if err := check(fmt.Sprintf("basis %d", i), b); err != nil {
			return err
		}
	}
	return nil
}
