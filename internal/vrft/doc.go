// Package vrft implements Virtual Reference Feedback Tuning.
//
// VRFT estimates the parameters θ of a linearly parametrised controller
//
//	C(θ) = Σ θ_i·β_i
//
// from a single input/output experiment, without a plant model. Given a
// reference model M, the measured output y defines a virtual reference
// r = M⁻¹y and a virtual error e = r - y. The controller that would have
// produced the measured input u from e is found by least squares after both
// sides are shaped by a prefilter L:
//
//	L·u ≈ Σ θ_i·β_i·L·e
//
// The pipeline is [Build] → [OLS] or [IV] → [Synthesize]; [Compute] runs all
// three.
//
//	m := tf.Must([]float64{0.6}, []float64{1, -0.4}, dt)
//	basis := []tf.TransferFunction{
//	    tf.Must([]float64{1}, []float64{1, -1}, dt),
//	    tf.Must([]float64{1, 0}, []float64{1, -1}, dt),
//	}
//	l, _ := vrft.DefaultPrefilter(m)
//	res, err := vrft.Compute(data, m, basis, l)
//
// Everything in the package is a pure function of its arguments.
package vrft
