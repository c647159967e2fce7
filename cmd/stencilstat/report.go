// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/lezahlie/Stencil-Project/chart"
	"github.com/lezahlie/Stencil-Project/internal/texttab"
	"github.com/lezahlie/Stencil-Project/scaling"
)

// A result is one derived table and its scale extremum.
type result struct {
	kind     chart.Kind
	table    *scaling.Table
	extremum float64
}

var panelNames = map[scaling.Metric]string{
	scaling.Overall: "Overall",
	scaling.Compute: "Computation",
}

func knownFormat(f string) bool {
	switch f {
	case "text", "csv", "none":
		return true
	}
	return false
}

func writeReport(w io.Writer, format string, results []*result) error {
	switch format {
	case "text":
		return formatText(w, results)
	case "csv":
		return formatCSV(w, results)
	}
	return nil
}

// summary returns the label and the per-column summary printed under
// metric m of r.
func summary(r *result, m scaling.Metric) (string, []float64) {
	if r.kind == chart.KarpFlatt {
		return "mean", scaling.Means(r.table, m)
	}
	return "geomean", scaling.GeoMeans(r.table, m)
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func sizeLabel(size int) string {
	return fmt.Sprintf("%dx%d", size, size)
}

// formatText writes one text table per result and metric, separated
// by blank lines.
func formatText(w io.Writer, results []*result) error {
	first := true
	for _, r := range results {
		for _, m := range scaling.Metrics {
			if !first {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			first = false

			var tab texttab.Table
			tab.Row().Cell(string(r.kind) + "_" + panelNames[m])
			for _, p := range r.table.Procs {
				tab.Cell(strconv.Itoa(p), texttab.Right)
			}
			for i, size := range r.table.Sizes {
				tab.Row().Cell(sizeLabel(size))
				for _, v := range r.table.Grid(m)[i] {
					tab.Cell(formatValue(v), texttab.Right)
				}
			}
			label, sum := summary(r, m)
			tab.Row().Cell(label)
			for _, v := range sum {
				tab.Cell(formatValue(v), texttab.Right)
			}
			if err := tab.Format(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// formatCSV writes every cell of every result as one CSV record.
func formatCSV(w io.Writer, results []*result) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"kind", "metric", "size", "procs", "value"})
	for _, r := range results {
		for _, m := range scaling.Metrics {
			grid := r.table.Grid(m)
			for i, size := range r.table.Sizes {
				for k, p := range r.table.Procs {
					cw.Write([]string{string(r.kind), m.String(), strconv.Itoa(size), strconv.Itoa(p), formatValue(grid[i][k])})
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
