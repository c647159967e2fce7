// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chart renders scaling tables as two-panel line charts, one
// panel for overall time and one for computation time.
package chart

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/lezahlie/Stencil-Project/scaling"
	"github.com/lezahlie/Stencil-Project/storage/fs"
)

// A Kind names what a chart shows. It is also the suffix of the chart
// file name.
type Kind string

const (
	Time       Kind = "Time"
	Speedup    Kind = "Speedup"
	Efficiency Kind = "Efficiency"
	KarpFlatt  Kind = "e"
)

// Kinds lists every Kind in the order charts are rendered.
var Kinds = []Kind{Time, Speedup, Efficiency, KarpFlatt}

// YLabel returns the default y-axis label of k.
func (k Kind) YLabel() string {
	switch k {
	case Time:
		return "Time (sec)"
	case Speedup:
		return "Sp (x's)"
	case Efficiency:
		return "Eff (%)"
	case KarpFlatt:
		return "e (%)"
	}
	return string(k)
}

// Options configures a chart.
type Options struct {
	Kind Kind

	// System is the implementation name shown in panel titles,
	// such as "OpenMPI" or "Pthreads".
	System string

	// XLabel and YLabel label the axes of both panels. An empty
	// YLabel uses Kind.YLabel.
	XLabel, YLabel string

	// Width and Height are the size of the whole image. Zero
	// values use 18×6 inches.
	Width, Height vg.Length
	// DPI is the image resolution. Zero uses 150.
	DPI int
}

const (
	defaultWidth  = 18 * vg.Inch
	defaultHeight = 6 * vg.Inch
	defaultDPI    = 150
)

// panelNames are the titles of the two panels, in order.
var panelNames = [...]string{"Overall", "Computation"}

// FileName returns the name of the chart of kind k for the given
// prefix, such as "mpi-Speedup.png".
func FileName(prefix string, k Kind) string {
	return prefix + "-" + string(k) + ".png"
}

// Panels returns the overall and computation panels for t.
//
// extremum is the scale extremum returned alongside t: the largest
// efficiency for Efficiency charts and the smallest Karp-Flatt value
// for KarpFlatt charts. It is ignored for other kinds.
func Panels(t *scaling.Table, extremum float64, opts Options) ([]*plot.Plot, error) {
	if len(t.Procs) == 0 || len(t.Sizes) == 0 {
		return nil, fmt.Errorf("empty %s table", opts.Kind)
	}
	ylabel := opts.YLabel
	if ylabel == "" {
		ylabel = opts.Kind.YLabel()
	}

	var panels []*plot.Plot
	for i, m := range scaling.Metrics {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s: %s_%s", opts.System, opts.Kind, panelNames[i])
		p.X.Label.Text = opts.XLabel
		p.Y.Label.Text = ylabel
		p.X.Tick.Marker = procTicks(t.Procs)
		p.Legend.Top = true
		p.Legend.Left = true

		grid := plotter.NewGrid()
		grid.Vertical.Color = color.Gray{0xd0}
		grid.Horizontal.Color = color.Gray{0xd0}
		p.Add(grid)

		panelMax := math.Inf(-1)
		for si, size := range t.Sizes {
			xys := points(t.Procs, t.Grid(m)[si])
			if len(xys) == 0 {
				continue
			}
			for _, xy := range xys {
				panelMax = math.Max(panelMax, xy.Y)
			}
			line, scatter, err := plotter.NewLinePoints(xys)
			if err != nil {
				return nil, err
			}
			line.Color = plotutil.Color(si)
			scatter.Color = plotutil.Color(si)
			scatter.Shape = draw.CircleGlyph{}
			p.Add(line, scatter)
			p.Legend.Add(fmt.Sprintf("%dx%d", size, size), line, scatter)
		}

		if ideal := idealLine(opts.Kind, t.Procs); ideal != nil {
			p.Add(ideal)
			p.Legend.Add("Ideal", ideal)
		}

		p.X.Min = float64(t.Procs[0])
		p.X.Max = float64(t.Procs[len(t.Procs)-1])
		p.Y.Min, p.Y.Max = yRange(opts.Kind, t.Procs, extremum, panelMax)
		panels = append(panels, p)
	}
	return panels, nil
}

// yRange returns the y-axis bounds of a panel.
func yRange(k Kind, procs []int, extremum, panelMax float64) (min, max float64) {
	switch k {
	case Speedup:
		return 1, float64(procs[len(procs)-1])
	case Efficiency:
		return 0, extremum + 0.01
	case KarpFlatt:
		return extremum - 0.01, 1.01
	}
	if math.IsInf(panelMax, -1) || panelMax <= 0 {
		return 0, 1
	}
	return 0, panelMax * 1.05
}

// points returns the finite (procs, value) pairs of row.
func points(procs []int, row []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(row))
	for k, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(procs[k]), Y: v})
	}
	return xys
}

// idealLine returns the dashed reference line for k, or nil if k has
// none.
func idealLine(k Kind, procs []int) *plotter.Line {
	var f func(p float64) float64
	switch k {
	case Speedup:
		f = func(p float64) float64 { return p }
	case Efficiency:
		f = func(float64) float64 { return 1 }
	case KarpFlatt:
		f = func(float64) float64 { return 0 }
	default:
		return nil
	}
	xys := make(plotter.XYs, len(procs))
	for i, p := range procs {
		xys[i] = plotter.XY{X: float64(p), Y: f(float64(p))}
	}
	return &plotter.Line{
		XYs: xys,
		LineStyle: draw.LineStyle{
			Color:  color.Black,
			Width:  vg.Points(1),
			Dashes: []vg.Length{vg.Points(6), vg.Points(3)},
		},
	}
}

// procTicks returns a tick marker with a labelled tick at every
// integer between the smallest and largest process count.
func procTicks(procs []int) plot.ConstantTicks {
	lo, hi := procs[0], procs[0]
	for _, p := range procs {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	var ticks plot.ConstantTicks
	for p := lo; p <= hi; p++ {
		ticks = append(ticks, plot.Tick{Value: float64(p), Label: strconv.Itoa(p)})
	}
	return ticks
}

// Render draws the two panels of t side by side and writes them to w
// as a PNG image.
func Render(w io.Writer, t *scaling.Table, extremum float64, opts Options) error {
	panels, err := Panels(t, extremum, opts)
	if err != nil {
		return err
	}

	width, height, dpi := opts.Width, opts.Height, opts.DPI
	if width == 0 {
		width = defaultWidth
	}
	if height == 0 {
		height = defaultHeight
	}
	if dpi == 0 {
		dpi = defaultDPI
	}
	img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(panels),
		PadX:      vg.Millimeter * 8,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{panels}, tiles, dc)
	for i, p := range panels {
		p.Draw(canvases[0][i])
	}

	_, err = vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}

// Save renders t into the file FileName(prefix, opts.Kind) of fsys and
// returns that name. Nothing is stored if rendering fails.
func Save(ctx context.Context, fsys fs.FS, prefix string, t *scaling.Table, extremum float64, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, t, extremum, opts); err != nil {
		return "", err
	}

	name := FileName(prefix, opts.Kind)
	fw, err := fsys.NewWriter(ctx, name, map[string]string{"kind": string(opts.Kind), "system": opts.System})
	if err != nil {
		return "", err
	}
	if _, err := buf.WriteTo(fw); err != nil {
		fw.CloseWithError(err)
		return "", err
	}
	if err := fw.Close(); err != nil {
		return "", err
	}
	return name, nil
}
