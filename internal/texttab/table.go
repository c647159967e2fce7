// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package texttab lays out plain-text tables.
package texttab

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Table does layout of text-based tables.
//
// Its building methods return the Table so calls can be chained.
type Table struct {
	rows [][]cell
	cols int
}

type cell struct {
	col, span int
	value     string
	right     bool
}

// A CellOption modifies a cell.
type CellOption func(c *cell)

var (
	// Left aligns a cell to the left. This is the default.
	Left CellOption = func(c *cell) { c.right = false }
	// Right aligns a cell to the right.
	Right CellOption = func(c *cell) { c.right = true }
)

// Row starts a new row in t.
func (t *Table) Row() *Table {
	t.rows = append(t.rows, nil)
	return t
}

// Cell adds a single-column cell at the end of the current row.
func (t *Table) Cell(value string, opts ...CellOption) *Table {
	return t.Span(1, value, opts...)
}

// Span adds a cell covering cols columns at the end of the current
// row.
func (t *Table) Span(cols int, value string, opts ...CellOption) *Table {
	if len(t.rows) == 0 {
		t.Row()
	}
	r := &t.rows[len(t.rows)-1]
	col := 0
	if n := len(*r); n > 0 {
		last := (*r)[n-1]
		col = last.col + last.span
	}
	c := cell{col: col, span: cols, value: value}
	for _, o := range opts {
		o(&c)
	}
	*r = append(*r, c)
	if col+cols > t.cols {
		t.cols = col + cols
	}
	return t
}

// Format lays out t with columns separated by two spaces and writes it
// to w. Trailing spaces are trimmed from every line.
func (t *Table) Format(w io.Writer) error {
	const gap = 2

	ws := make([]int, t.cols)
	for _, r := range t.rows {
		for _, c := range r {
			if c.span == 1 {
				ws[c.col] = max(ws[c.col], utf8.RuneCountInString(c.value))
			}
		}
	}
	// Widen the last column under a span that does not fit.
	for _, r := range t.rows {
		for _, c := range r {
			if c.span == 1 {
				continue
			}
			have := (c.span - 1) * gap
			for col := c.col; col < c.col+c.span; col++ {
				have += ws[col]
			}
			if need := utf8.RuneCountInString(c.value); need > have {
				ws[c.col+c.span-1] += need - have
			}
		}
	}

	var line strings.Builder
	for _, r := range t.rows {
		line.Reset()
		for i, c := range r {
			if i > 0 {
				line.WriteString(strings.Repeat(" ", gap))
			}
			width := (c.span - 1) * gap
			for col := c.col; col < c.col+c.span; col++ {
				width += ws[col]
			}
			pad := width - utf8.RuneCountInString(c.value)
			if c.right {
				fmt.Fprintf(&line, "%*s%s", pad, "", c.value)
			} else {
				fmt.Fprintf(&line, "%s%*s", c.value, pad, "")
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
