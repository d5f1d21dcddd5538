package vrft

import (
	"fmt"

	"github.com/san-kum/vrft/internal/iddata"
	"github.com/san-kum/vrft/internal/tf"
)

// VirtualReference returns r = M⁻¹·y, the reference that would have made the
// reference model output the measured y. M⁻¹ is improper by the relative
// degree d of m, so r is computed through the proper A/(z^d·B) and the last d
// samples, which would need future outputs, are not returned: len(r) is
// data.Len()-d. data.Y0 is the output history and must hold at least
// order(m) samples; the history of r is zero.
func VirtualReference(data *iddata.Data, m tf.TransferFunction) ([]float64, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil experiment", ErrInvalidParameter)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("reference model: %w", err)
	}
	if !tf.SamePeriod(data.Dt(), m.Dt()) {
		return nil, fmt.Errorf("%w: reference model %g, experiment %g", tf.ErrSamplingMismatch, m.Dt(), data.Dt())
	}
	if m.IsZero() {
		return nil, fmt.Errorf("%w: reference model is identically zero", tf.ErrInvalidTransferFunction)
	}
	y0 := data.Y0()
	if len(y0) < m.Order() {
		return nil, fmt.Errorf("%w: have %d samples, reference model order %d", ErrInsufficientHistory, len(y0), m.Order())
	}
	d := m.RelativeDegree()
	if data.Len() <= d {
		return nil, fmt.Errorf("%w: %d samples, model delay %d", ErrInsufficientData, data.Len(), d)
	}

	delay := make(tf.Poly, d+1)
	delay[0] = 1
	inv, err := tf.New(m.Den(), m.Num().Mul(delay), m.Dt())
	if err != nil {
		return nil, fmt.Errorf("inverse reference model: %w", err)
	}
	w, err := inv.Filter(data.Y(), &tf.InitialState{Input: y0})
	if err != nil {
		return nil, fmt.Errorf("virtual reference: %w", err)
	}
	return w[d:], nil
}
