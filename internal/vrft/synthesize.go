package vrft

import (
	"fmt"

	"github.com/san-kum/vrft/internal/tf"
)

// Synthesize returns the controller Σ θ_i·β_i.
func Synthesize(theta []float64, basis []tf.TransferFunction) (tf.TransferFunction, error) {
	if len(theta) != len(basis) {
		return tf.TransferFunction{}, fmt.Errorf("%w: %d parameters for %d basis functions", ErrDimensionMismatch, len(theta), len(basis))
	}
	if len(basis) == 0 {
		return tf.TransferFunction{}, fmt.Errorf("%w: empty control basis", ErrInvalidParameter)
	}
	if err := basis[0].Validate(); err != nil {
		return tf.TransferFunction{}, fmt.Errorf("basis 0: %w", err)
	}
	c := basis[0].Scale(theta[0])
	for i := 1; i < len(basis); i++ {
		var err error
		c, err = c.Add(basis[i].Scale(theta[i]))
		if err != nil {
			return tf.TransferFunction{}, fmt.Errorf("basis %d: %w", i, err)
		}
	}
	return c, nil
}
