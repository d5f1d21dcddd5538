package tf

import "fmt"

func (g TransferFunction) checkPeriod(h TransferFunction) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}
	if !SamePeriod(g.dt, h.dt) {
		return fmt.Errorf("%w: %g vs %g", ErrSamplingMismatch, g.dt, h.dt)
	}
	return nil
}

// Add returns g+h. Operands sharing a denominator keep it; otherwise the sum
// is formed over the product of the denominators.
func (g TransferFunction) Add(h TransferFunction) (TransferFunction, error) {
	if err := g.checkPeriod(h); err != nil {
		return TransferFunction{}, err
	}
	if g.den.Equal(h.den) {
		return New(g.num.Add(h.num), g.den, g.dt)
	}
	num := g.num.Mul(h.den).Add(h.num.Mul(g.den))
	return New(num, g.den.Mul(h.den), g.dt)
}

// Subtract returns g-h.
func (g TransferFunction) Subtract(h TransferFunction) (TransferFunction, error) {
	if err := g.checkPeriod(h); err != nil {
		return TransferFunction{}, err
	}
	return g.Add(h.Scale(-1))
}

// Multiply returns the series connection g·h.
func (g TransferFunction) Multiply(h TransferFunction) (TransferFunction, error) {
	if err := g.checkPeriod(h); err != nil {
		return TransferFunction{}, err
	}
	return New(g.num.Mul(h.num), g.den.Mul(h.den), g.dt)
}

// Divide returns g/h. The result must be causal.
func (g TransferFunction) Divide(h TransferFunction) (TransferFunction, error) {
	if err := g.checkPeriod(h); err != nil {
		return TransferFunction{}, err
	}
	if h.IsZero() {
		return TransferFunction{}, fmt.Errorf("%w: division by zero system", ErrInvalidTransferFunction)
	}
	if g.den.Equal(h.den) {
		return New(g.num, h.num, g.dt)
	}
	return New(g.num.Mul(h.den), g.den.Mul(h.num), g.dt)
}

// Scale multiplies g by the constant k.
func (g TransferFunction) Scale(k float64) TransferFunction {
	return TransferFunction{num: g.num.Scale(k).trim(), den: g.den.Clone(), dt: g.dt}
}

// Complement returns 1-g.
func (g TransferFunction) Complement() (TransferFunction, error) {
	if err := g.Validate(); err != nil {
		return TransferFunction{}, err
	}
	return New(g.den.Sub(g.num), g.den, g.dt)
}

// Feedback closes a unity negative feedback loop around g: g/(1+g).
func (g TransferFunction) Feedback() (TransferFunction, error) {
	if err := g.Validate(); err != nil {
		return TransferFunction{}, err
	}
	return New(g.num, g.den.Add(g.num), g.dt)
}
