// Package iddata holds the input/output record of one identification experiment.
package iddata

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch indicates sequences whose lengths do not agree.
	ErrDimensionMismatch = errors.New("iddata: dimension mismatch")

	// ErrInvalidParameter indicates a non-positive sampling period or a
	// non-finite sample.
	ErrInvalidParameter = errors.New("iddata: invalid parameter")
)

// Data is an immutable experiment: output y, input u, sampling period dt and
// the output history y0 preceding the first sample, newest first
// (y0[0] is y[-1]).
type Data struct {
	y  []float64
	u  []float64
	y0 []float64
	dt float64
}

// New validates and copies an experiment record. How long y0 must be is
// decided by whoever filters the data, not here.
func New(y, u []float64, dt float64, y0 []float64) (*Data, error) {
	if len(y) != len(u) {
		return nil, fmt.Errorf("%w: len(y)=%d, len(u)=%d", ErrDimensionMismatch, len(y), len(u))
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("%w: empty experiment", ErrDimensionMismatch)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: sampling period must be positive and finite, got %g", ErrInvalidParameter, dt)
	}
	names := []string{"y", "u", "y0"}
	for k, s := range [][]float64{y, u, y0} {
		if i := firstNonFinite(s); i >= 0 {
			return nil, fmt.Errorf("%w: %s[%d] is not finite", ErrInvalidParameter, names[k], i)
		}
	}
	return &Data{y: clone(y), u: clone(u), y0: clone(y0), dt: dt}, nil
}

func (d *Data) Y() []float64  { return clone(d.y) }
func (d *Data) U() []float64  { return clone(d.u) }
func (d *Data) Y0() []float64 { return clone(d.y0) }
func (d *Data) Dt() float64   { return d.dt }
func (d *Data) Len() int      { return len(d.y) }

// Times returns the sample instants n·dt.
func (d *Data) Times() []float64 {
	t := make([]float64, len(d.y))
	for i := range t {
		t[i] = float64(i) * d.dt
	}
	return t
}

// Split cuts the record into two experiments of equal length, dropping the
// last sample of an odd-length record. Only the output history carries
// over: the second half's y0 is the tail of the first half. Data holds no
// input history, so filters run on the second half start from a zero input
// and zero output state, and instruments built from it carry a start-up
// transient.
func (d *Data) Split() (*Data, *Data, error) {
	h := len(d.y) / 2
	if h == 0 {
		return nil, nil, fmt.Errorf("%w: need at least two samples to split", ErrDimensionMismatch)
	}
	hist := make([]float64, len(d.y0))
	for i := range hist {
		if j := h - 1 - i; j >= 0 {
			hist[i] = d.y[j]
		} else {
			hist[i] = d.y0[-j-1]
		}
	}
	first := &Data{y: clone(d.y[:h]), u: clone(d.u[:h]), y0: clone(d.y0), dt: d.dt}
	second := &Data{y: clone(d.y[h : 2*h]), u: clone(d.u[h : 2*h]), y0: hist, dt: d.dt}
	return first, second, nil
}

func clone(s []float64) []float64 {
	c := make([]float64, len(s))
	copy(c, s)
	return c
}

func firstNonFinite(s []float64) int {
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}
