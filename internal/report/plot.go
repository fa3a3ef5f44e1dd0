package report

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoRows is returned when there is nothing to plot.
var ErrNoRows = errors.New("report has no attention rows")

// WritePlot renders a bar chart of attention time per row as PNG to w.
func WritePlot(w io.Writer, title string, rows []Row) error {
	if len(rows) == 0 {
		return ErrNoRows
	}

	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		values[i] = float64(r.TotalMs) / 1000
		labels[i] = fmt.Sprintf("%s/%s\n%s", r.Stage, r.Focus, r.Zone)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Attention (s)"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	width := vg.Length(len(rows))*vg.Centimeter*2 + 4*vg.Centimeter
	wt, err := p.WriterTo(width, 10*vg.Centimeter, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
