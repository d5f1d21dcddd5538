// Package tf provides causal discrete-time transfer functions.
//
// A [TransferFunction] is a rational function in z with an associated
// sampling period. Coefficients are given in descending powers of z, so
// 0.5/(z-0.3) is written as
//
//	g, err := tf.New([]float64{0.5}, []float64{1, -0.3}, 0.01)
//
// Transfer functions are immutable values. Algebraic combinations
// ([TransferFunction.Add], [TransferFunction.Subtract],
// [TransferFunction.Multiply], [TransferFunction.Divide]) return new values
// and fail with [ErrSamplingMismatch] when the sampling periods differ.
//
// # Filtering
//
// [TransferFunction.Filter] runs the difference equation over a whole
// signal. A [Runner] exposes the same recursion one sample at a time, which
// is what closed-loop simulation needs.
//
// Lagged samples in an [InitialState] are stored newest first: Input[0] is
// u[-1], Input[1] is u[-2], and so on.
package tf
