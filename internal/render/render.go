// Package render turns 2-D intensity grids into PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrEmptyGrid is returned for grids with no finite pixels.
var ErrEmptyGrid = errors.New("grid has no finite values")

// Options control the rendered figure.
type Options struct {
	Width  vg.Length
	Height vg.Length
	Title  string
	// Colors is the number of palette entries used by the heat map.
	Colors int
}

// DefaultOptions returns an 8x6 inch figure with a 255 step palette.
func DefaultOptions() Options {
	return Options{
		Width:  8 * vg.Inch,
		Height: 6 * vg.Inch,
		Colors: 255,
	}
}

const colorBarWidth = 1.2 * vg.Inch

// PNG renders grid as a colour mapped heat map with a vertical colour scale
// to its right. Row 0 is drawn at the bottom.
func PNG(grid mat.Matrix, opts Options) ([]byte, error) {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Colors <= 0 {
		opts.Colors = def.Colors
	}

	lo, hi, err := Range(grid)
	if err != nil {
		return nil, err
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	cm := moreland.Kindlmann()
	cm.SetMax(hi)
	cm.SetMin(lo)

	heat := plotter.NewHeatMap(matrixGrid{grid}, cm.Palette(opts.Colors))
	heat.Min, heat.Max = lo, hi

	img := plot.New()
	img.Title.Text = opts.Title
	img.X.Label.Text = "x [pixel]"
	img.Y.Label.Text = "y [pixel]"
	img.Add(heat)

	bar := plot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	bar.HideX()
	bar.Y.Padding = 0

	canvas := vgimg.New(opts.Width, opts.Height)
	dc := draw.New(canvas)
	img.Draw(draw.Crop(dc, 0, -colorBarWidth, 0, 0))
	bar.Draw(draw.Crop(dc, opts.Width-colorBarWidth+0.3*vg.Inch, 0, 0, 0))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// Range returns the smallest and largest finite values in grid.
func Range(grid mat.Matrix) (lo, hi float64, err error) {
	if grid == nil {
		return 0, 0, ErrEmptyGrid
	}
	rows, cols := grid.Dims()
	vals := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := grid.At(r, c); !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return 0, 0, ErrEmptyGrid
	}
	return floats.Min(vals), floats.Max(vals), nil
}

// matrixGrid adapts a matrix to plotter.GridXYZ with pixel coordinates.
type matrixGrid struct {
	m mat.Matrix
}

var _ plotter.GridXYZ = matrixGrid{}

func (g matrixGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g matrixGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }
