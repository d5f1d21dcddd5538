package tf

import "errors"

var (
	// ErrInvalidTransferFunction indicates empty, non-finite or non-causal
	// coefficients, or a (numerically) zero leading denominator coefficient.
	ErrInvalidTransferFunction = errors.New("tf: invalid transfer function")

	// ErrSamplingMismatch indicates an operation on transfer functions with
	// different sampling periods.
	ErrSamplingMismatch = errors.New("tf: sampling periods differ")

	// ErrInvalidParameter indicates a non-positive or non-finite sampling period.
	ErrInvalidParameter = errors.New("tf: invalid parameter")
)
