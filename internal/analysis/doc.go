// Package analysis inspects excitation signals before they are used for
// tuning.
//
// A basis with n parameters can only be identified from an input that is
// persistently exciting of order n, i.e. whose spectrum has at least n
// non-zero lines (a sinusoid contributes two, a constant one):
//
//	if analysis.ExcitationOrder(u, 1e-8) < len(basis) {
//	    // the regression will be rank deficient
//	}
package analysis
