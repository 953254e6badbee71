// Package plotting renders training diagnostics with gonum/plot.
package plotting

import (
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// Default canvas size.
var (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// LossCurve plots one point per epoch. Epochs are numbered from 1.
func LossCurve(history []float64, title string) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, errors.NewValueError("LossCurve", "loss history is empty")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Mean loss"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(history))
	for i, v := range history {
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, errors.Wrap(err, "plotting: loss curve")
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.LineStyle.Width = vg.Points(1.5)
	points.Shape = draw.CircleGlyph{}
	points.Color = line.Color
	if len(history) > 50 {
		// 点が多いと線が見えなくなるため、マーカーは省略する
		p.Add(line)
	} else {
		p.Add(line, points)
	}
	return p, nil
}

// WeightHistogram plots the distribution of the non-zero weights.
func WeightHistogram(weights []float32, bins int, title string) (*plot.Plot, error) {
	vals := make(plotter.Values, 0, len(weights))
	for _, w := range weights {
		if w != 0 {
			vals = append(vals, float64(w))
		}
	}
	if len(vals) == 0 {
		return nil, errors.NewValueError("WeightHistogram", "model has no non-zero weights")
	}
	if bins <= 0 {
		bins = 30
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Weight"
	p.Y.Label.Text = "Features"

	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return nil, errors.Wrap(err, "plotting: weight histogram")
	}
	h.FillColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	p.Add(h)
	return p, nil
}

// Write encodes p in the given format ("png", "svg", "pdf", ...).
func Write(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
	if err != nil {
		return errors.Wrapf(err, "plotting: format %q", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "plotting: write")
	}
	return nil
}

// Save writes p to path, choosing the format from the file extension.
func Save(p *plot.Plot, path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "png"
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewPersistenceError("plotting.Save", errors.KindOpen, path, err)
	}
	if err := Write(f, p, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.NewPersistenceError("plotting.Save", errors.KindWrite, path, err)
	}
	return nil
}
