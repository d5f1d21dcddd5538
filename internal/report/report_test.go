package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/vrft/internal/iddata"
	"github.com/san-kum/vrft/internal/tf"
	"github.com/san-kum/vrft/internal/vrft"
)

func piResult(t *testing.T) *vrft.Result {
	t.Helper()
	const dt = 0.01
	plant := tf.Must([]float64{0.5}, []float64{1, -0.3}, dt)
	model := tf.Must([]float64{0.6}, []float64{1, -0.4}, dt)
	basis := []tf.TransferFunction{
		tf.Must([]float64{1}, []float64{1, -1}, dt),
		tf.Must([]float64{1, 0}, []float64{1, -1}, dt),
	}
	u := make([]float64, 100)
	for i := range u {
		if (i/7)%2 == 0 {
			u[i] = 1
		}
	}
	y, err := plant.Filter(u, nil)
	require.NoError(t, err)
	data, err := iddata.New(y, u, dt, []float64{0, 0})
	require.NoError(t, err)
	l, err := vrft.DefaultPrefilter(model)
	require.NoError(t, err)
	res, err := vrft.Compute(data, model, basis, l)
	require.NoError(t, err)
	return res
}

func TestSummary(t *testing.T) {
	res := piResult(t)
	out := Summary("pi", res)

	require.Contains(t, out, "VRFT OLS")
	require.Contains(t, out, "pi")
	require.Contains(t, out, res.Controller.String())
	require.Contains(t, out, "θ[0]")
	require.Contains(t, out, "θ[1]")
	require.Contains(t, out, "warm-up 2")
}

func TestPlot(t *testing.T) {
	out := Plot([]float64{0, 1, 2, 1, 0}, 5, "residuals")
	require.Contains(t, out, "residuals")
	require.GreaterOrEqual(t, strings.Count(out, "\n"), 5)

	require.Contains(t, Plot(nil, 5, "x"), "no data")
}

func TestCompare(t *testing.T) {
	out := Compare([]float64{0, 0.6, 0.84}, []float64{0, 0.5, 0.9}, 5, "step")
	require.Contains(t, out, "step")
	require.Contains(t, out, "reference model")

	require.Contains(t, Compare(nil, []float64{1}, 5, "x"), "no data")
}

func TestSparkline(t *testing.T) {
	require.Equal(t, "", Sparkline([]float64{1, 2}, 0))
	require.Equal(t, strings.Repeat("─", 4), Sparkline(nil, 4))

	out := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	require.Contains(t, out, "▁")
	require.Contains(t, out, "█")
}

func TestSeparator(t *testing.T) {
	require.Contains(t, Separator(20), "◆")
	require.Contains(t, Separator(2), "◆")
}
