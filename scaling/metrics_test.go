// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scaling

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

// exampleTable is a 2×2 table whose overall times are 10 and 6
// seconds for size 100 and 40 and 22 seconds for size 200.
func exampleTable() *Table {
	t := NewTable([]int{100, 200}, []int{1, 2})
	t.Overall[0] = []float64{10, 6}
	t.Overall[1] = []float64{40, 22}
	t.Compute[0] = []float64{9, 5}
	t.Compute[1] = []float64{36, 20}
	return t
}

func TestSpeedupEfficiency(t *testing.T) {
	sp := Speedup(exampleTable())
	for _, c := range []struct {
		m    Metric
		size int
		want float64
	}{
		{Overall, 100, 1.667},
		{Overall, 200, 1.818},
		{Compute, 100, 1.8},
		{Compute, 200, 1.8},
	} {
		if got, _ := sp.At(c.m, c.size, 2); !near(got, c.want) {
			t.Errorf("speedup %v %d: got %v, want %v", c.m, c.size, got, c.want)
		}
	}

	eff, max := Efficiency(sp)
	if got, _ := eff.At(Overall, 100, 2); !near(got, 0.833) {
		t.Errorf("efficiency overall 100: got %v, want 0.833", got)
	}
	if got, _ := eff.At(Overall, 200, 2); !near(got, 0.909) {
		t.Errorf("efficiency overall 200: got %v, want 0.909", got)
	}
	if max != 1.05 {
		t.Errorf("efficiency max = %v, want 1.05", max)
	}

	for _, m := range Metrics {
		for i := range sp.Sizes {
			if v := sp.Grid(m)[i][0]; v != 1 {
				t.Errorf("speedup %v [%d][0] = %v, want 1", m, i, v)
			}
			if v := eff.Grid(m)[i][0]; v != 1 {
				t.Errorf("efficiency %v [%d][0] = %v, want 1", m, i, v)
			}
		}
	}
}

func TestEfficiencySuperlinear(t *testing.T) {
	tab := NewTable([]int{100}, []int{1, 2})
	tab.Overall[0] = []float64{10, 4}
	tab.Compute[0] = []float64{10, 5}
	_, max := Efficiency(Speedup(tab))
	if max != 1.25 {
		t.Errorf("efficiency max = %v, want 1.25", max)
	}
}

func TestKarpFlattIdeal(t *testing.T) {
	// Perfect scaling has no serial fraction.
	procs := []int{1, 2, 4, 8}
	tab := NewTable([]int{250, 500}, procs)
	for i := range tab.Sizes {
		for k, p := range procs {
			tab.Overall[i][k] = 64 / float64(p)
			tab.Compute[i][k] = 32 / float64(p)
		}
	}
	kf, min := KarpFlatt(Speedup(tab))
	for _, m := range Metrics {
		for i := range kf.Sizes {
			row := kf.Grid(m)[i]
			if row[0] != 0 {
				t.Errorf("%v [%d][0] = %v, want 0", m, i, row[0])
			}
			for k := 1; k < len(row); k++ {
				if math.Abs(row[k]) > 1e-9 {
					t.Errorf("%v [%d][%d] = %v, want 0", m, i, k, row[k])
				}
			}
		}
	}
	if math.Abs(min) > 1e-9 {
		t.Errorf("min = %v, want 0", min)
	}
}

func TestKarpFlatt(t *testing.T) {
	kf, min := KarpFlatt(Speedup(exampleTable()))
	// speedup 10/6: (0.6 - 0.5) / 0.5 = 0.2
	if got, _ := kf.At(Overall, 100, 2); !near(got, 0.2) {
		t.Errorf("overall 100: got %v, want 0.2", got)
	}
	if min != 0 {
		t.Errorf("min = %v, want 0", min)
	}

	// Superlinear speedup gives a negative serial fraction.
	tab := NewTable([]int{100}, []int{1, 2})
	tab.Overall[0] = []float64{10, 4}
	tab.Compute[0] = []float64{10, 5}
	_, min = KarpFlatt(Speedup(tab))
	if !near(min, -0.2) {
		t.Errorf("superlinear min = %v, want -0.2", min)
	}
}

func TestKarpFlattSingleProcess(t *testing.T) {
	// A second column with one process has no defined serial
	// fraction.
	tab := NewTable([]int{100}, []int{2, 1})
	tab.Overall[0] = []float64{5, 10}
	tab.Compute[0] = []float64{5, 10}
	kf, min := KarpFlatt(Speedup(tab))
	if v := kf.Overall[0][1]; !math.IsNaN(v) {
		t.Errorf("got %v, want NaN", v)
	}
	if min != 0 {
		t.Errorf("min = %v, want 0", min)
	}
	if lo, hi := kf.Bounds(Overall); lo != 0 || hi != 0 {
		t.Errorf("Bounds = %v, %v, want 0, 0", lo, hi)
	}
}

func TestTableSummaries(t *testing.T) {
	tab := exampleTable()
	if got := MaxValue(tab); got != 40 {
		t.Errorf("MaxValue = %v, want 40", got)
	}
	if lo, hi := tab.Bounds(Compute); lo != 5 || hi != 36 {
		t.Errorf("Bounds(Compute) = %v, %v, want 5, 36", lo, hi)
	}
	gm := GeoMeans(tab, Overall)
	if !near(gm[0], 20) || !near(gm[1], math.Sqrt(132)) {
		t.Errorf("GeoMeans = %v", gm)
	}
	mean := Means(tab, Compute)
	if mean[0] != 22.5 || mean[1] != 12.5 {
		t.Errorf("Means = %v, want [22.5 12.5]", mean)
	}

	tab.Overall[0][1] = 0
	if gm := GeoMeans(tab, Overall); !math.IsNaN(gm[1]) {
		t.Errorf("GeoMeans with zero = %v, want NaN in column 1", gm)
	}
}
