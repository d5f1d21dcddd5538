package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |X_k|²/N for k = 0..N/2, the one-sided periodogram
// of x without window or scaling of the mirrored half.
func PowerSpectrum(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}

	coeffs := fft.FFTReal(x)
	ps := make([]float64, n/2+1)
	for k := range ps {
		a := cmplx.Abs(coeffs[k])
		ps[k] = a * a / float64(n)
	}
	return ps
}

// ExcitationOrder counts the spectral lines of x whose power exceeds tol
// times the strongest line. Lines other than DC and Nyquist count twice,
// once for each conjugate frequency.
func ExcitationOrder(x []float64, tol float64) int {
	ps := PowerSpectrum(x)
	if len(ps) == 0 {
		return 0
	}

	peak := 0.0
	for _, p := range ps {
		peak = max(peak, p)
	}
	if peak == 0 {
		return 0
	}

	n := len(x)
	order := 0
	for k, p := range ps {
		if p <= tol*peak {
			continue
		}
		if k == 0 || (n%2 == 0 && k == n/2) {
			order++
		} else {
			order += 2
		}
	}
	return order
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC line
// of x sampled every dt seconds, or 0 when all power sits at DC up to
// rounding.
func DominantFrequency(x []float64, dt float64) float64 {
	ps := PowerSpectrum(x)
	total := 0.0
	for _, p := range ps {
		total += p
	}
	best, bestK := 0.0, 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > best {
			best, bestK = ps[k], k
		}
	}
	if bestK == 0 || best <= 1e-12*total {
		return 0
	}
	return float64(bestK) / (float64(len(x)) * dt)
}
