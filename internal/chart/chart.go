// Package chart draws the trend line for a fetched result.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

const (
	width  = 10 * vg.Inch
	height = 4 * vg.Inch
)

var axisColor = color.RGBA{R: 0x64, G: 0x74, B: 0x8b, A: 0xff}

// Write renders rows as a line chart of parameter values over time.
func Write(w io.Writer, rows []domain.Observation, parameter domain.Parameter, format Format) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	if format != PNG && format != SVG {
		return fmt.Errorf("unsupported chart format %q", format)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Trend", parameter)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = parameter.Unit()
	p.Y.Label.TextStyle.Color = axisColor
	p.Y.Tick.Label.Color = axisColor
	p.X.Tick.Label.Color = axisColor

	points := make(plotter.XYs, len(rows))
	labels := make([]string, len(rows))
	for i, o := range rows {
		points[i].X = float64(i)
		points[i].Y = o.Value
		labels[i] = fmt.Sprintf("%s %d", o.Month, o.Year)
	}
	p.NominalX(labels...)
	if len(labels) > 12 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	series := parseHex(parameter.Color())

	line, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("create line: %w", err)
	}
	line.Color = series
	line.Width = vg.Points(2)

	dots, err := plotter.NewScatter(points)
	if err != nil {
		return fmt.Errorf("create points: %w", err)
	}
	dots.GlyphStyle.Color = series
	dots.GlyphStyle.Radius = vg.Points(3)
	dots.GlyphStyle.Shape = draw.CircleGlyph{}

	grid := plotter.NewGrid()
	grid.Vertical.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	grid.Horizontal.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	p.Add(grid, line, dots)
	p.Legend.Add(string(parameter), line, dots)
	p.Legend.Top = true

	wt, err := p.WriterTo(width, height, string(format))
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

// parseHex turns "#rrggbb" into a colour, falling back to the axis grey.
func parseHex(s string) color.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return axisColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return axisColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
