// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scaling

import "math"

// Starting values of the scale extrema returned by Efficiency and
// KarpFlatt.
const (
	minEfficiencyMax = 1.05
	maxKarpFlattMin  = 0
)

// Speedup returns the speedup of every cell of the timing table
// times relative to column 0 of its row:
//
//	speedup[k] = time[0] / time[k]
//
// Column 0 is exactly 1.
func Speedup(times *Table) *Table {
	out := times.like()
	for _, m := range Metrics {
		src, dst := times.Grid(m), out.Grid(m)
		for i, row := range src {
			base := row[0]
			dst[i][0] = 1.0
			for k := 1; k < len(row); k++ {
				dst[i][k] = base / row[k]
			}
		}
	}
	return out
}

// Efficiency returns the parallel efficiency of every cell of the
// speedup table:
//
//	efficiency[k] = speedup[k] / procs[k]
//
// Column 0 is exactly 1. It also returns the largest efficiency in
// columns 1 and up, or 1.05 if none is larger. This is used to scale
// charts.
func Efficiency(speedup *Table) (*Table, float64) {
	out := speedup.like()
	max := minEfficiencyMax
	for _, m := range Metrics {
		src, dst := speedup.Grid(m), out.Grid(m)
		for i, row := range src {
			dst[i][0] = 1.0
			for k := 1; k < len(row); k++ {
				e := row[k] / float64(speedup.Procs[k])
				dst[i][k] = e
				if e > max {
					max = e
				}
			}
		}
	}
	return out, max
}

// KarpFlatt returns the Karp-Flatt metric, the experimentally
// determined serial fraction, of every cell of the speedup table:
//
//	e[k] = (1/speedup[k] - 1/procs[k]) / (1 - 1/procs[k])
//
// Column 0 is the baseline and is left 0. A column whose process
// count is 1 has no serial fraction and is NaN. It also returns the
// smallest value in columns 1 and up, or 0 if none is smaller.
func KarpFlatt(speedup *Table) (*Table, float64) {
	out := speedup.like()
	min := float64(maxKarpFlattMin)
	for _, m := range Metrics {
		src, dst := speedup.Grid(m), out.Grid(m)
		for i, row := range src {
			for k := 1; k < len(row); k++ {
				p := float64(speedup.Procs[k])
				if p == 1 {
					dst[i][k] = math.NaN()
					continue
				}
				e := (1/row[k] - 1/p) / (1 - 1/p)
				dst[i][k] = e
				if e < min {
					min = e
				}
			}
		}
	}
	return out, min
}

func isNaNOrInf(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}
