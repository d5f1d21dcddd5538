package vrft

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultConditionLimit is the largest condition number of Zᵀ·Phi accepted
// by IV.
const DefaultConditionLimit = 1e12

// Method names the estimator that produced an Estimate.
type Method string

const (
	MethodOLS Method = "ols"
	MethodIV  Method = "iv"
)

// Estimate is the solution of a Problem together with residual diagnostics.
type Estimate struct {
	Method Method
	Theta  []float64
	// Residuals is target - Phi·θ.
	Residuals    []float64
	ResidualNorm float64
	// Loss is the mean squared residual.
	Loss float64
	// Cond is the condition number of the matrix that was solved: Phi for
	// OLS, Zᵀ·Phi for IV.
	Cond float64
	// Covariance is the estimated covariance of θ, scaled by the residual
	// variance. It is zero when there are no spare degrees of freedom.
	Covariance *mat.Dense
}

// OLS solves min ‖Phi·θ - target‖² with a Householder QR factorisation.
// Rank is checked with the singular values of Phi; a rank-deficient Phi is
// reported, not regularised.
func OLS(p *Problem) (*Estimate, error) {
	rows, cols := p.Dims()
	if rows < cols {
		return nil, fmt.Errorf("%w: %d samples for %d parameters", ErrRankDeficient, rows, cols)
	}

	var svd mat.SVD
	if !svd.Factorize(p.Phi, mat.SVDThin) {
		return nil, fmt.Errorf("%w: singular value decomposition did not converge", ErrRankDeficient)
	}
	s := svd.Values(nil)
	tol := float64(max(rows, cols)) * eps * s[0]
	if rank := numericalRank(s, tol); rank < cols {
		return nil, fmt.Errorf("%w: rank %d of %d", ErrRankDeficient, rank, cols)
	}

	theta, err := solveQR(p.Phi, p.Target)
	if err != nil {
		return nil, err
	}
	est := newEstimate(MethodOLS, p, theta, s[0]/s[len(s)-1])

	// (PhiᵀPhi)⁻¹ = V·diag(1/s²)·Vᵀ
	var v mat.Dense
	svd.VTo(&v)
	sigma2 := est.residualVariance(rows, cols)
	cov := mat.NewDense(cols, cols, nil)
	for i := 0; i < cols; i++ {
		for j := 0; j < cols; j++ {
			sum := 0.0
			for k := 0; k < cols; k++ {
				sum += v.At(i, k) * v.At(j, k) / (s[k] * s[k])
			}
			cov.Set(i, j, sigma2*sum)
		}
	}
	est.Covariance = cov
	return est, nil
}

// IV solves (Zᵀ·Phi)·θ = Zᵀ·target, where the instruments z are built like
// Phi from an experiment whose noise is independent of the one behind p.
// Whether z is a valid instrument is the caller's responsibility; a poor one
// shows up as ErrIllConditioned. condLimit <= 0 selects DefaultConditionLimit.
func IV(p *Problem, z mat.Matrix, condLimit float64) (*Estimate, error) {
	if condLimit <= 0 {
		condLimit = DefaultConditionLimit
	}
	rows, cols := p.Dims()
	zr, zc := z.Dims()
	if zr != rows || zc != cols {
		return nil, fmt.Errorf("%w: instruments are %dx%d, regressors %dx%d", ErrDimensionMismatch, zr, zc, rows, cols)
	}

	var a mat.Dense
	a.Mul(z.T(), p.Phi)
	var rhs mat.VecDense
	rhs.MulVec(z.T(), p.Target)

	var svd mat.SVD
	if !svd.Factorize(&a, mat.SVDNone) {
		return nil, fmt.Errorf("%w: singular value decomposition did not converge", ErrIllConditioned)
	}
	s := svd.Values(nil)
	if s[len(s)-1] == 0 {
		return nil, fmt.Errorf("%w: instrument correlation matrix is singular", ErrIllConditioned)
	}
	cond := s[0] / s[len(s)-1]
	if cond > condLimit {
		return nil, fmt.Errorf("%w: condition number %.3g exceeds %.3g", ErrIllConditioned, cond, condLimit)
	}

	theta, err := solveQR(&a, &rhs)
	if err != nil {
		return nil, err
	}
	est := newEstimate(MethodIV, p, theta, cond)

	// σ²·A⁻¹(ZᵀZ)A⁻ᵀ from two solves against A
	var qr mat.QR
	qr.Factorize(&a)
	var zz, x, y mat.Dense
	zz.Mul(z.T(), z)
	if err := qr.SolveTo(&x, false, &zz); err != nil {
		return nil, conditionError(err)
	}
	if err := qr.SolveTo(&y, false, x.T()); err != nil {
		return nil, conditionError(err)
	}
	cov := mat.DenseCopyOf(y.T())
	cov.Scale(est.residualVariance(rows, cols), cov)
	est.Covariance = cov
	return est, nil
}

// eps is the float64 machine epsilon.
var eps = math.Nextafter(1, 2) - 1

func numericalRank(s []float64, tol float64) int {
	if len(s) == 0 || s[0] == 0 {
		return 0
	}
	rank := 0
	for _, v := range s {
		if v > tol {
			rank++
		}
	}
	return rank
}

func solveQR(a mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	_, c := a.Dims()
	var qr mat.QR
	qr.Factorize(a)
	theta := mat.NewVecDense(c, nil)
	if err := qr.SolveVecTo(theta, false, b); err != nil {
		return nil, conditionError(err)
	}
	return theta, nil
}

func conditionError(err error) error {
	var cond mat.Condition
	if errors.As(err, &cond) {
		return fmt.Errorf("%w: condition number %.3g", ErrIllConditioned, float64(cond))
	}
	return err
}

func newEstimate(method Method, p *Problem, theta *mat.VecDense, cond float64) *Estimate {
	var fit, res mat.VecDense
	fit.MulVec(p.Phi, theta)
	res.SubVec(p.Target, &fit)

	n := res.Len()
	residuals := make([]float64, n)
	rss := 0.0
	for i := range residuals {
		residuals[i] = res.AtVec(i)
		rss += residuals[i] * residuals[i]
	}
	return &Estimate{
		Method:       method,
		Theta:        mat.Col(nil, 0, theta),
		Residuals:    residuals,
		ResidualNorm: math.Sqrt(rss),
		Loss:         rss / float64(n),
		Cond:         cond,
	}
}

func (e *Estimate) residualVariance(rows, cols int) float64 {
	if rows <= cols {
		return 0
	}
	return e.ResidualNorm * e.ResidualNorm / float64(rows-cols)
}
