// Package render draws trace charts to image files with gonum/plot. The image
// format follows the output file extension (png, svg, pdf, jpg, eps, tif).
package render

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ZephyrDeng/trace-analyzer-mcp/analyzer"
)

const (
	figureWidth  = 10 * vg.Inch
	figureHeight = 6 * vg.Inch

	barHeight = 0.4
	// logFloor is where histogram bars start on the logarithmic axis, which
	// cannot show zero.
	logFloor = 0.5
)

var errNothingToPlot = errors.New("nothing to plot")

// Gantt draws one horizontal bar per execution, one row per function.
func Gantt(chart *analyzer.GanttChart, path string) error {
	if len(chart.Rows) == 0 {
		return fmt.Errorf("gantt chart: %w", errNothingToPlot)
	}

	p := plot.New()
	p.Title.Text = "Gantt Chart of Traced Executions"
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "Functions"

	grid := plotter.NewGrid()
	dotted := []vg.Length{vg.Points(1), vg.Points(2)}
	grid.Vertical.Dashes = dotted
	grid.Vertical.Width = vg.Points(0.5)
	grid.Horizontal.Dashes = dotted
	grid.Horizontal.Width = vg.Points(0.5)
	p.Add(grid)

	for _, bar := range chart.Bars {
		y := float64(bar.Row)
		poly, err := rectangle(bar.StartMs, bar.StartMs+bar.DurationMs, y-barHeight/2, y+barHeight/2)
		if err != nil {
			return fmt.Errorf("gantt bar for %s: %w", bar.Function, err)
		}
		poly.Color = chart.Rows[bar.Row].RGBA
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	names := make([]string, len(chart.Rows))
	for i, row := range chart.Rows {
		names[i] = row.Function
	}
	p.NominalY(names...)
	p.Y.Min = -0.5
	p.Y.Max = float64(len(names)) - 0.5

	return save(p, path)
}

// Histogram draws the interval histogram of function with a logarithmic
// frequency axis.
func Histogram(hist *analyzer.Histogram, function, path string) error {
	if len(hist.Bins) == 0 || hist.MaxCount() == 0 {
		return fmt.Errorf("histogram: %w", errNothingToPlot)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Histogram of intervals between starts of %q", function)
	p.X.Label.Text = "Interval between starts (ms)"
	p.Y.Label.Text = "Frequency (log scale)"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{}

	for _, bin := range hist.Bins {
		if bin.Count == 0 {
			continue
		}
		poly, err := rectangle(bin.Low, bin.High, logFloor, float64(bin.Count))
		if err != nil {
			return fmt.Errorf("histogram bin [%g, %g]: %w", bin.Low, bin.High, err)
		}
		poly.Color = analyzer.Palette[0]
		poly.LineStyle = draw.LineStyle{Color: color.Black, Width: vg.Points(0.5)}
		p.Add(poly)
	}

	p.X.Min = hist.Bins[0].Low
	p.X.Max = hist.Bins[len(hist.Bins)-1].High
	p.Y.Min = logFloor
	p.Y.Max = float64(hist.MaxCount()) * 1.5

	return save(p, path)
}

func rectangle(x0, x1, y0, y1 float64) (*plotter.Polygon, error) {
	return plotter.NewPolygon(plotter.XYs{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	})
}

func save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := p.Save(figureWidth, figureHeight, path); err != nil {
		return fmt.Errorf("failed to save chart to %s: %w", path, err)
	}
	logrus.WithField("path", path).Info("Chart written")
	return nil
}
