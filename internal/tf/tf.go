package tf

import (
	"fmt"
	"math"
)

// leadTol bounds the leading denominator coefficient relative to the
// largest one; anything smaller is treated as zero.
const leadTol = 1e-12

// periodTol is the relative tolerance used when comparing sampling periods.
const periodTol = 1e-9

// TransferFunction is a causal SISO discrete-time transfer function num(z)/den(z).
// The zero value is not usable; construct with [New].
type TransferFunction struct {
	num Poly
	den Poly
	dt  float64
}

// New builds num(z)/den(z) sampled every dt seconds. Both coefficient slices
// are copied. Leading zeros of the numerator are dropped; the numerator degree
// may not exceed the denominator degree.
func New(num, den []float64, dt float64) (TransferFunction, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return TransferFunction{}, fmt.Errorf("%w: sampling period must be positive and finite, got %g", ErrInvalidParameter, dt)
	}
	if len(num) == 0 || len(den) == 0 {
		return TransferFunction{}, fmt.Errorf("%w: empty numerator or denominator", ErrInvalidTransferFunction)
	}
	n := Poly(num).Clone().trim()
	d := Poly(den).Clone()
	if !n.finite() || !d.finite() {
		return TransferFunction{}, fmt.Errorf("%w: non-finite coefficient", ErrInvalidTransferFunction)
	}
	if err := checkLeading(d); err != nil {
		return TransferFunction{}, err
	}
	if len(n) > len(d) {
		return TransferFunction{}, fmt.Errorf("%w: numerator degree %d exceeds denominator degree %d (non-causal)",
			ErrInvalidTransferFunction, n.Degree(), d.Degree())
	}
	return TransferFunction{num: n, den: d, dt: dt}, nil
}

// Must is like New but panics on error. Intended for constants and tests.
func Must(num, den []float64, dt float64) TransferFunction {
	g, err := New(num, den, dt)
	if err != nil {
		panic(err)
	}
	return g
}

// Constant returns the static gain k.
func Constant(k, dt float64) (TransferFunction, error) {
	return New([]float64{k}, []float64{1}, dt)
}

// One returns the identity system.
func One(dt float64) (TransferFunction, error) {
	return Constant(1, dt)
}

func checkLeading(d Poly) error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty denominator", ErrInvalidTransferFunction)
	}
	m := d.maxAbs()
	if m == 0 || math.Abs(d[0]) <= leadTol*m {
		return fmt.Errorf("%w: leading denominator coefficient is zero", ErrInvalidTransferFunction)
	}
	return nil
}

// Validate reports whether g satisfies the causality invariants. It fails
// for the zero value.
func (g TransferFunction) Validate() error {
	if !(g.dt > 0) {
		return fmt.Errorf("%w: sampling period not set", ErrInvalidParameter)
	}
	if len(g.num) == 0 {
		return fmt.Errorf("%w: empty numerator", ErrInvalidTransferFunction)
	}
	if err := checkLeading(g.den); err != nil {
		return err
	}
	if len(g.num) > len(g.den) {
		return fmt.Errorf("%w: non-causal", ErrInvalidTransferFunction)
	}
	return nil
}

// Num returns a copy of the numerator coefficients.
func (g TransferFunction) Num() Poly { return g.num.Clone() }

// Den returns a copy of the denominator coefficients.
func (g TransferFunction) Den() Poly { return g.den.Clone() }

func (g TransferFunction) Dt() float64 { return g.dt }

// Order is the denominator degree, i.e. the number of lagged samples the
// recursion reads.
func (g TransferFunction) Order() int { return len(g.den) - 1 }

// RelativeDegree is the pure delay in samples between input and output.
func (g TransferFunction) RelativeDegree() int { return len(g.den) - len(g.num) }

// IsZero reports whether g is identically zero.
func (g TransferFunction) IsZero() bool { return g.num.IsZero() }

// SamePeriod reports whether two sampling periods are equal up to rounding.
func SamePeriod(a, b float64) bool {
	return math.Abs(a-b) <= periodTol*math.Max(math.Abs(a), math.Abs(b))
}

func (g TransferFunction) String() string {
	n, nt := g.num.format()
	if len(g.den) == 1 && g.den[0] == 1 {
		return n
	}
	d, dt := g.den.format()
	if nt > 1 {
		n = "(" + n + ")"
	}
	if dt > 1 {
		d = "(" + d + ")"
	}
	return n + " / " + d
}
