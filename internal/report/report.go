// Package report renders tuning results for the terminal.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vrft/internal/vrft"
)

const plotWidth = 80

// Summary renders the estimated parameters, their standard deviations and
// the fit diagnostics of res in a bordered panel.
func Summary(basis string, res *vrft.Result) string {
	est := res.Estimate
	rows, cols := res.Problem.Dims()

	lines := []string{
		Title.Render("VRFT " + strings.ToUpper(string(est.Method))),
		field("basis", basis),
		field("samples", fmt.Sprintf("%d (warm-up %d)", rows, res.Problem.Warmup)),
		field("controller", res.Controller.String()),
		"",
	}
	for i := 0; i < cols; i++ {
		sd := math.NaN()
		if est.Covariance != nil {
			sd = math.Sqrt(est.Covariance.At(i, i))
		}
		lines = append(lines, field(fmt.Sprintf("θ[%d]", i), fmt.Sprintf("%+.6g  ± %.3g", res.Theta[i], sd)))
	}
	lines = append(lines,
		"",
		field("loss", fmt.Sprintf("%.6g", est.Loss)),
		field("residual norm", fmt.Sprintf("%.6g", est.ResidualNorm)),
		field("condition", conditionLabel(est.Cond)),
		field("residuals", Sparkline(est.Residuals, 40)),
	)
	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func field(label, value string) string {
	return MetricLabel.Render(label) + MetricValue.Render(value)
}

func conditionLabel(cond float64) string {
	s := fmt.Sprintf("%.3g", cond)
	switch {
	case cond < 1e4:
		return Good.Render(s)
	case cond < 1e8:
		return Warn.Render(s)
	default:
		return Bad.Render(s)
	}
}

// Plot draws one series with asciigraph.
func Plot(data []float64, height int, caption string) string {
	if len(data) == 0 {
		return Subtle.Render("no data to plot")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
}

// Compare overlays two equally long series, typically the reference model
// response and the achieved closed-loop response.
func Compare(want, got []float64, height int, caption string) string {
	if len(want) == 0 || len(got) == 0 {
		return Subtle.Render("no data to plot")
	}
	return asciigraph.PlotMany([][]float64{want, got},
		asciigraph.Height(height),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
		asciigraph.SeriesLegends("reference model", "closed loop"),
	)
}
