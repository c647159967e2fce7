// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package matrix reads and writes the binary matrix files used by the
// stencil binaries.
//
// A data file holds one matrix: its row count and column count as
// little-endian int32s, followed by rows×cols little-endian float64s in
// row-major order. A stacked raw file holds the matrix after every
// iteration, including the initial state, as consecutive rows×cols
// float64 blocks with no header.
package matrix

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
)

// MinDim is the smallest row or column count a stencil matrix may
// have.
const MinDim = 3

// A Matrix is a dense row-major matrix of float64s.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// New returns a zero rows×cols matrix.
func New(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Init returns the initial state of a rows×cols stencil: the first and
// last columns are 1 and every other cell is 0.
func Init(rows, cols int) (*Matrix, error) {
	if rows < MinDim || cols < MinDim {
		return nil, fmt.Errorf("matrix %dx%d is smaller than %dx%d", rows, cols, MinDim, MinDim)
	}
	m := New(rows, cols)
	for i := 0; i < rows; i++ {
		m.Set(i, 0, 1)
		m.Set(i, cols-1, 1)
	}
	return m, nil
}

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// Set sets the value at row i, column j.
func (m *Matrix) Set(i, j int, v float64) {
	m.Data[i*m.Cols+j] = v
}

// Bounds returns the smallest and largest values in m.
func (m *Matrix) Bounds() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range m.Data {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max
}

// A Diff describes the first difference between two matrices.
type Diff struct {
	Msg string
}

func (d *Diff) Error() string {
	return d.Msg
}

// Equal reports whether a and b have the same shape and identical
// values. If they differ, it returns a *Diff describing the first
// difference.
func Equal(a, b *Matrix) (bool, *Diff) {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return false, &Diff{fmt.Sprintf("shape %dx%d != %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)}
	}
	for k := range a.Data {
		if a.Data[k] != b.Data[k] {
			return false, &Diff{fmt.Sprintf("[%d][%d]: %v != %v", k/a.Cols, k%a.Cols, a.Data[k], b.Data[k])}
		}
	}
	return true, nil
}

var byteOrder = binary.LittleEndian

// Read reads a data file from r.
func Read(r io.Reader) (*Matrix, error) {
	return read(r, -1)
}

// read reads a data file from r. If limit is not negative, a header
// that promises more than limit values is a *SizeError and nothing is
// allocated for it.
func read(r io.Reader, limit int64) (*Matrix, error) {
	var hdr [2]int32
	if err := binary.Read(r, byteOrder, &hdr); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	rows, cols := int(hdr[0]), int(hdr[1])
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("bad matrix shape %dx%d", rows, cols)
	}
	if n := int64(rows) * int64(cols); limit >= 0 && n > limit {
		return nil, &SizeError{Shape: StackShape{Rows: rows, Cols: cols}, Expected: n, Actual: limit}
	}
	m := New(rows, cols)
	if err := binary.Read(r, byteOrder, m.Data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading %dx%d matrix: %w", rows, cols, err)
	}
	return m, nil
}

// WriteTo writes m to w as a data file.
func (m *Matrix) WriteTo(w io.Writer) (int64, error) {
	if m.Rows > math.MaxInt32 || m.Cols > math.MaxInt32 {
		return 0, fmt.Errorf("matrix %dx%d is too large", m.Rows, m.Cols)
	}
	bw := bufio.NewWriter(w)
	hdr := [2]int32{int32(m.Rows), int32(m.Cols)}
	if err := binary.Write(bw, byteOrder, hdr); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, byteOrder, m.Data); err != nil {
		return 0, err
	}
	n := int64(8 + 8*len(m.Data))
	return n, bw.Flush()
}

// ReadFile reads the data file at path. The shape in its header must
// fit in the size of the file.
func ReadFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	limit := (fi.Size() - 8) / 8
	if limit < 0 {
		limit = 0
	}
	m, err := read(bufio.NewReader(f), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteFile writes m to a data file at path.
func WriteFile(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := m.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CompareFiles reads two data files and reports whether they hold the
// same matrix.
func CompareFiles(a, b string) (bool, *Diff, error) {
	ma, err := ReadFile(a)
	if err != nil {
		return false, nil, err
	}
	mb, err := ReadFile(b)
	if err != nil {
		return false, nil, err
	}
	eq, d := Equal(ma, mb)
	return eq, d, nil
}

// A StackShape is the geometry of a stacked raw file.
type StackShape struct {
	Rows, Cols int
	// Iterations is the number of stencil iterations. The file
	// holds Iterations+1 frames.
	Iterations int
}

// Frames returns the number of matrices in the stack.
func (s StackShape) Frames() int {
	return s.Iterations + 1
}

func (s StackShape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Rows, s.Cols, s.Frames())
}

// StackName returns the conventional raw file name for s, such as
// "100-100-50.raw".
func StackName(s StackShape) string {
	return fmt.Sprintf("%d-%d-%d.raw", s.Rows, s.Cols, s.Iterations)
}

var numbers = regexp.MustCompile(`\d+`)

// ParseStackName recovers the shape of a stacked raw file from its
// name, which must contain exactly three numbers: rows, columns and
// iterations, in that order, separated by any non-digits.
// For example "all100x100x10.raw" and "100-100-50_stacked.raw".
func ParseStackName(name string) (StackShape, error) {
	nums := numbers.FindAllString(name, -1)
	if len(nums) != 3 {
		return StackShape{}, fmt.Errorf("stacked file name %q must contain rows, cols and iterations in order, such as 100-100-50.raw", name)
	}
	var v [3]int
	for i, s := range nums {
		n, err := strconv.Atoi(s)
		if err != nil {
			return StackShape{}, fmt.Errorf("stacked file name %q: %w", name, err)
		}
		v[i] = n
	}
	return StackShape{Rows: v[0], Cols: v[1], Iterations: v[2]}, nil
}

// A SizeError reports a matrix or stacked file whose length does not
// match its shape.
type SizeError struct {
	Shape    StackShape
	Expected int64 // values
	Actual   int64 // values
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("expected data size %d does not match actual size %d", e.Expected, e.Actual)
}

// ReadStack reads a stacked raw file of the given shape. It returns a
// *SizeError if the file does not hold exactly shape.Frames() matrices.
func ReadStack(path string, shape StackShape) ([]*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	want := int64(shape.Rows) * int64(shape.Cols) * int64(shape.Frames())
	if fi.Size()%8 != 0 || fi.Size()/8 != want {
		return nil, &SizeError{Shape: shape, Expected: want, Actual: fi.Size() / 8}
	}

	br := bufio.NewReader(f)
	frames := make([]*Matrix, shape.Frames())
	for i := range frames {
		m := New(shape.Rows, shape.Cols)
		if err := binary.Read(br, byteOrder, m.Data); err != nil {
			return nil, fmt.Errorf("%s: frame %d: %w", path, i, err)
		}
		frames[i] = m
	}
	return frames, nil
}

// WriteStack writes frames to w as a stacked raw file.
func WriteStack(w io.Writer, frames []*Matrix) error {
	bw := bufio.NewWriter(w)
	for _, m := range frames {
		if err := binary.Write(bw, byteOrder, m.Data); err != nil {
			return err
		}
	}
	return bw.Flush()
}
