package vrft

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vrft/internal/iddata"
	"github.com/san-kum/vrft/internal/tf"
)

func mustData(t *testing.T, u []float64, y0 []float64) *iddata.Data {
	t.Helper()
	y, err := plant.Filter(u, nil)
	require.NoError(t, err)
	d, err := iddata.New(y, u, dt, y0)
	require.NoError(t, err)
	return d
}

func excitation(n int) []float64 {
	u := make([]float64, n)
	for i := range u {
		// deterministic, non-periodic over short windows
		u[i] = float64((i*7919)%13) - 6
	}
	return u
}

func TestDefaultPrefilter(t *testing.T) {
	l, err := DefaultPrefilter(model)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.6, -0.6}, l.Num(), 1e-15)
	require.InDeltaSlice(t, []float64{1, -0.8, 0.16}, l.Den(), 1e-15)
}

func TestWarmup(t *testing.T) {
	l, err := DefaultPrefilter(model)
	require.NoError(t, err)
	require.Equal(t, 2, Warmup(model, piBasis, l))

	third := tf.Must([]float64{1}, []float64{1, 0, 0, 0}, dt)
	require.Equal(t, 3, Warmup(model, append([]tf.TransferFunction{third}, piBasis...), l))
}

func TestVirtualErrorFilterIsComplementSquared(t *testing.T) {
	l, err := DefaultPrefilter(model)
	require.NoError(t, err)
	e, err := VirtualErrorFilter(model, l)
	require.NoError(t, err)

	c, err := model.Complement()
	require.NoError(t, err)
	c2, err := c.Multiply(c)
	require.NoError(t, err)

	u := excitation(50)
	got, err := e.Filter(u, nil)
	require.NoError(t, err)
	want, err := c2.Filter(u, nil)
	require.NoError(t, err)
	require.InDeltaSlice(t, want, got, 1e-12)
}

func TestBuildShapesAndAlignment(t *testing.T) {
	l, err := DefaultPrefilter(model)
	require.NoError(t, err)
	data := mustData(t, excitation(40), []float64{0, 0})

	p, err := Build(data, model, piBasis, l)
	require.NoError(t, err)

	rows, cols := p.Dims()
	require.Equal(t, 38, rows)
	require.Equal(t, 2, cols)
	require.Equal(t, rows, p.Target.Len())
	require.Len(t, p.VirtualError, rows)
	require.Equal(t, 2, p.Warmup)

	// column i is basis i applied to the full prefiltered virtual error
	e, err := VirtualErrorFilter(model, l)
	require.NoError(t, err)
	ve, err := e.Filter(data.Y(), &tf.InitialState{Input: data.Y0()})
	require.NoError(t, err)
	lu, err := l.Filter(data.U(), nil)
	require.NoError(t, err)
	for i, b := range piBasis {
		col, err := b.Filter(ve, nil)
		require.NoError(t, err)
		require.InDeltaSlice(t, col[2:], mat.Col(nil, i, p.Phi), 1e-12)
	}
	require.InDeltaSlice(t, lu[2:], mat.Col(nil, 0, p.Target), 1e-12)
}

func TestBuildIsDeterministic(t *testing.T) {
	l, err := DefaultPrefilter(model)
	require.NoError(t, err)
	data := mustData(t, excitation(60), []float64{0, 0})

	a, err := Build(data, model, piBasis, l)
	require.NoError(t, err)
	b, err := Build(data, model, piBasis, l)
	require.NoError(t, err)
	require.True(t, mat.Equal(a.Phi, b.Phi))
	require.True(t, mat.Equal(a.Target, b.Target))
}

func TestBuildUsesOutputHistory(t *testing.T) {
	l, err := DefaultPrefilter(model)
	require.NoError(t, err)
	u := excitation(30)
	rest := mustData(t, u, []float64{0, 0})
	moved := mustData(t, u, []float64{1, -1})

	a, err := Build(rest, model, piBasis, l)
	require.NoError(t, err)
	b, err := Build(moved, model, piBasis, l)
	require.NoError(t, err)
	require.False(t, mat.Equal(a.Phi, b.Phi))
}

func TestBuildErrors(t *testing.T) {
	l, err := DefaultPrefilter(model)
	require.NoError(t, err)
	data := mustData(t, excitation(20), []float64{0, 0})
	tiny := mustData(t, excitation(2), []float64{0, 0})
	short := mustData(t, excitation(20), []float64{0})

	tests := []struct {
		name  string
		data  *iddata.Data
		m     tf.TransferFunction
		basis []tf.TransferFunction
		l     tf.TransferFunction
		want  error
	}{
		{"nil data", nil, model, piBasis, l, ErrInvalidParameter},
		{"empty basis", data, model, nil, l, ErrInvalidParameter},
		{"short history", short, model, piBasis, l, ErrInsufficientHistory},
		{"no rows left", tiny, model, piBasis, l, ErrInsufficientData},
		{"zero model", data, model.Scale(0), piBasis, l, tf.ErrInvalidTransferFunction},
		{"invalid basis", data, model, []tf.TransferFunction{{}}, l, tf.ErrInvalidParameter},
		{"model rate", data, tf.Must([]float64{0.6}, []float64{1, -0.4}, 0.1), piBasis, l, tf.ErrSamplingMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Build(tt.data, tt.m, tt.basis, tt.l)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, p)
		})
	}
}

func TestOLSDiagnostics(t *testing.T) {
	// target = 2·x1 - x2 + small deterministic disturbance
	x := []float64{1, 0, 2, 1, 0, 3, 1, 2, 2, 1}
	phi := mat.NewDense(5, 2, x)
	target := mat.NewVecDense(5, []float64{2.01, 3.0, -0.99, 1.0, 2.02})
	p := &Problem{Phi: phi, Target: target}

	est, err := OLS(p)
	require.NoError(t, err)
	require.Equal(t, MethodOLS, est.Method)
	require.Len(t, est.Residuals, 5)
	require.Greater(t, est.Cond, 1.0)

	// normal equations hold at the solution: Phiᵀ·r = 0
	var g mat.VecDense
	g.MulVec(phi.T(), mat.NewVecDense(5, est.Residuals))
	require.InDelta(t, 0, g.AtVec(0), 1e-12)
	require.InDelta(t, 0, g.AtVec(1), 1e-12)

	rss := 0.0
	for _, r := range est.Residuals {
		rss += r * r
	}
	require.InDelta(t, rss/5, est.Loss, 1e-15)

	// covariance = σ²·(PhiᵀPhi)⁻¹
	var ata, inv mat.Dense
	ata.Mul(phi.T(), phi)
	require.NoError(t, inv.Inverse(&ata))
	inv.Scale(rss/3, &inv)
	require.True(t, mat.EqualApprox(&inv, est.Covariance, 1e-10))
}

func TestOLSRankDeficient(t *testing.T) {
	tests := []struct {
		name string
		phi  *mat.Dense
	}{
		{"underdetermined", mat.NewDense(1, 2, []float64{1, 2})},
		{"collinear", mat.NewDense(3, 2, []float64{1, 2, 2, 4, 3, 6})},
		{"zero", mat.NewDense(3, 2, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := tt.phi.Dims()
			_, err := OLS(&Problem{Phi: tt.phi, Target: mat.NewVecDense(r, nil)})
			require.ErrorIs(t, err, ErrRankDeficient)
		})
	}
}

func TestIVDimensionMismatch(t *testing.T) {
	p := &Problem{Phi: mat.NewDense(4, 2, []float64{1, 0, 0, 1, 1, 1, 2, 0}), Target: mat.NewVecDense(4, nil)}
	_, err := IV(p, mat.NewDense(3, 2, nil), 0)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestIVConditionLimit(t *testing.T) {
	phi := mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
	z := mat.NewDense(3, 2, []float64{1, 1, 1, 1.0001, 1, 1})
	p := &Problem{Phi: phi, Target: mat.NewVecDense(3, []float64{1, 2, 3})}

	_, err := IV(p, z, 10)
	require.ErrorIs(t, err, ErrIllConditioned)

	_, err = IV(p, z, 0)
	require.NoError(t, err)
}

func TestSynthesize(t *testing.T) {
	c, err := Synthesize(trueTheta, piBasis)
	require.NoError(t, err)
	require.Equal(t, "(1.2z - 0.36) / (z - 1)", c.String())

	_, err = Synthesize([]float64{1}, piBasis)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Synthesize(nil, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	mixed := []tf.TransferFunction{piBasis[0], tf.Must([]float64{1}, []float64{1, -1}, 0.5)}
	_, err = Synthesize([]float64{1, 1}, mixed)
	require.ErrorIs(t, err, tf.ErrSamplingMismatch)
}

func TestBuildNeedsVirtualErrorHistory(t *testing.T) {
	// M = (0.3z+0.1)/(z²-0.5z+0.06): L = (1-M)·M has order 4, E order 5
	m := tf.Must([]float64{0.3, 0.1}, []float64{1, -0.5, 0.06}, dt)
	l, err := DefaultPrefilter(m)
	require.NoError(t, err)
	require.Equal(t, 4, Warmup(m, piBasis, l))

	need, err := RequiredHistory(m, piBasis, l)
	require.NoError(t, err)
	require.Equal(t, 5, need)

	u := excitation(40)
	y, err := m.Filter(u, nil)
	require.NoError(t, err)

	atWarmup, err := iddata.New(y, u, dt, make([]float64, 4))
	require.NoError(t, err)
	_, err = Build(atWarmup, m, piBasis, l)
	require.ErrorIs(t, err, ErrInsufficientHistory)

	full, err := iddata.New(y, u, dt, make([]float64, 5))
	require.NoError(t, err)
	p, err := Build(full, m, piBasis, l)
	require.NoError(t, err)
	require.Equal(t, 4, p.Warmup)
}

func TestComputeReturnsVirtualReference(t *testing.T) {
	l, err := DefaultPrefilter(model)
	require.NoError(t, err)
	u := excitation(50)
	data := mustData(t, u, []float64{0, 0})

	res, err := Compute(data, model, piBasis, l)
	require.NoError(t, err)

	// the virtual reference drives the model to the measured output
	require.Len(t, res.VirtualReference, 49)
	ym, err := model.Filter(res.VirtualReference, nil)
	require.NoError(t, err)
	require.InDeltaSlice(t, data.Y()[:49], ym, 1e-9)
}
