// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scaling arranges stencil benchmark runs into timing tables
// and derives strong-scaling metrics from them.
//
// A Table has one row per matrix size and one column per process (or
// thread) count, in the order each was first seen in the log. Column 0
// is the baseline: every derived metric is computed relative to it.
package scaling

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
)

// A Metric selects one of the two timings reported by a run.
type Metric int

const (
	// Overall is the elapsed time of the whole run, including I/O.
	Overall Metric = iota
	// Compute is the elapsed time of the stencil iterations alone.
	Compute
)

// Metrics lists every Metric in display order.
var Metrics = []Metric{Overall, Compute}

func (m Metric) String() string {
	switch m {
	case Overall:
		return "overall"
	case Compute:
		return "compute"
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// A Table holds one value per (metric, size, process count).
//
// Overall and Compute are indexed as [size rank][process-count rank],
// where the ranks are indexes into Sizes and Procs.
type Table struct {
	Sizes []int
	Procs []int

	Overall [][]float64
	Compute [][]float64
}

// NewTable returns a zero-filled table with the given axes.
func NewTable(sizes, procs []int) *Table {
	t := &Table{
		Sizes: append([]int(nil), sizes...),
		Procs: append([]int(nil), procs...),
	}
	t.Overall = newGrid(len(sizes), len(procs))
	t.Compute = newGrid(len(sizes), len(procs))
	return t
}

func newGrid(rows, cols int) [][]float64 {
	cells := make([]float64, rows*cols)
	grid := make([][]float64, rows)
	for i := range grid {
		grid[i] = cells[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return grid
}

// like returns a zero-filled table with the same axes as t.
func (t *Table) like() *Table {
	return NewTable(t.Sizes, t.Procs)
}

// Grid returns the cells of metric m.
func (t *Table) Grid(m Metric) [][]float64 {
	switch m {
	case Overall:
		return t.Overall
	case Compute:
		return t.Compute
	}
	panic(fmt.Sprintf("unknown metric %v", m))
}

// Row returns the values of metric m for the given matrix size, one
// per process count, or nil if size is not in the table.
func (t *Table) Row(m Metric, size int) []float64 {
	for i, s := range t.Sizes {
		if s == size {
			return t.Grid(m)[i]
		}
	}
	return nil
}

// At returns the value of metric m for the given size and process
// count.
func (t *Table) At(m Metric, size, procs int) (float64, bool) {
	row := t.Row(m, size)
	if row == nil {
		return 0, false
	}
	for k, p := range t.Procs {
		if p == procs {
			return row[k], true
		}
	}
	return 0, false
}

// Bounds returns the minimum and maximum finite values of metric m.
// It returns NaN, NaN if there are none.
func (t *Table) Bounds(m Metric) (min, max float64) {
	return stats.Bounds(finite(t.Grid(m), 0))
}

// MaxValue returns the largest finite value in t across both metrics.
// It is the scale extremum of a timing table.
func MaxValue(t *Table) float64 {
	_, max := stats.Bounds(append(finite(t.Overall, 0), finite(t.Compute, 0)...))
	return max
}

// GeoMeans returns, for each process count, the geometric mean of
// metric m across all sizes. Columns with a non-positive value have
// no geometric mean and report NaN.
func GeoMeans(t *Table, m Metric) []float64 {
	return columns(t.Grid(m), len(t.Procs), geoMean)
}

// Means returns, for each process count, the arithmetic mean of
// metric m across all sizes.
func Means(t *Table, m Metric) []float64 {
	return columns(t.Grid(m), len(t.Procs), stats.Mean)
}

func columns(grid [][]float64, n int, f func([]float64) float64) []float64 {
	out := make([]float64, n)
	col := make([]float64, 0, len(grid))
	for k := range out {
		col = col[:0]
		for _, row := range grid {
			col = append(col, row[k])
		}
		out[k] = f(col)
	}
	return out
}

func geoMean(xs []float64) float64 {
	if hasNonPositive(xs) {
		return math.NaN()
	}
	return stats.GeoMean(xs)
}

func hasNonPositive(xs []float64) bool {
	for _, x := range xs {
		if !(x > 0) {
			return true
		}
	}
	return false
}

// finite returns the finite values of grid starting at column from.
func finite(grid [][]float64, from int) []float64 {
	var out []float64
	for _, row := range grid {
		for _, v := range row[from:] {
			if !isNaNOrInf(v) {
				out = append(out, v)
			}
		}
	}
	return out
}
