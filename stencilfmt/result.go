// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stencilfmt reads and writes the benchmark log produced by
// running the stencil binaries.
//
// A log is a sequence of sections separated by Delimiter. Each
// section starts with the echoed command line of one run, followed by
// the run's standard output, which reports the overall and compute
// times:
//
//	./pth-stencil-2d 500 mat-250.dat ./data/pthread-250-4.dat 0 4
//	[Overall Time] = 0.731 sec
//	[I/O Time] = 0.012 sec
//	[Compute Time] = 0.719 sec
//	------------------------------------------------------------
//
// The process or thread count and the matrix size of a run are
// recovered from its command line.
package stencilfmt

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Markers identifying the lines of a run's output.
const (
	OverallMarker = "Overall"
	ComputeMarker = "Compute"
	ErrorMarker   = "Error"
)

// Launchers are the command names that wrap an MPI run. Their
// command lines put the process count and the input file at fixed
// positions.
var Launchers = []string{"mpirun", "mpiexec"}

// Matrix file names are "mat-<size>.dat".
const (
	matrixPrefix = "mat-"
	matrixSuffix = ".dat"
)

// MatrixFile returns the input file name for a square matrix of the
// given size. ParseDescriptor recovers size from it.
func MatrixFile(size int) string {
	return matrixPrefix + strconv.Itoa(size) + matrixSuffix
}

// A Descriptor identifies a run by its process (or thread) count and
// its matrix size.
type Descriptor struct {
	Procs int
	Size  int
}

func (d Descriptor) String() string {
	return fmt.Sprintf("size=%d procs=%d", d.Size, d.Procs)
}

// A Timing holds the elapsed times reported by one run, in seconds.
type Timing struct {
	Overall float64
	Compute float64
}

// A Run is a single parsed section of a benchmark log.
type Run struct {
	Descriptor
	Timing

	// Command is the echoed command line of the run.
	Command string

	fileName string
	section  int
}

// NewRun returns a Run that was not read from a log.
func NewRun(command string, d Descriptor, t Timing) *Run {
	return &Run{Descriptor: d, Timing: t, Command: command, section: -1}
}

// Pos returns the file name and section index the run was read from.
func (r *Run) Pos() (fileName string, section int) {
	return r.fileName, r.section
}

// String returns the run's position in "file#section" form.
func (r *Run) String() string {
	return posString(r.fileName, r.section)
}

// A Record is a single record read from a benchmark log. It is
// either a *Run or one of the error types *SyntaxError,
// *MissingError or *RunError.
type Record interface {
	// Pos returns the position of this record as a file name and
	// a 0-based section index. If the record was not read from a
	// log, it returns "", -1.
	Pos() (fileName string, section int)
}

var _ Record = (*Run)(nil)
var _ Record = (*SyntaxError)(nil)
var _ Record = (*MissingError)(nil)
var _ Record = (*RunError)(nil)

// A SyntaxError reports a section whose text does not have the
// expected shape. Line is the offending line.
type SyntaxError struct {
	FileName string
	Section  int
	Line     string
	Msg      string
}

func (e *SyntaxError) Pos() (fileName string, section int) {
	return e.FileName, e.Section
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s: %q", posString(e.FileName, e.Section), e.Msg, e.Line)
}

// A MissingError reports a section that lacks the line for one of
// its timing metrics.
type MissingError struct {
	FileName string
	Section  int
	Metric   string
}

func (e *MissingError) Pos() (fileName string, section int) {
	return e.FileName, e.Section
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: missing %s time", posString(e.FileName, e.Section), strings.ToLower(e.Metric))
}

// A RunError reports output from a stencil binary that contains an
// error line. Output holds the complete captured output.
type RunError struct {
	FileName string
	Section  int
	Line     string
	Output   string
}

func (e *RunError) Pos() (fileName string, section int) {
	return e.FileName, e.Section
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: run failed: %s", posString(e.FileName, e.Section), strings.TrimSpace(e.Line))
}

func posString(fileName string, section int) string {
	if fileName == "" {
		fileName = "<unknown>"
	}
	if section < 0 {
		return fileName
	}
	return fmt.Sprintf("%s#%d", fileName, section)
}

// ParseDescriptor extracts the process count and matrix size from the
// echoed command line of a run.
//
// A launcher-wrapped line such as
//
//	mpirun -np 4 ./mpi-stencil-2d 500 mat-250.dat out.dat 0
//
// has the process count in its 3rd field and the matrix file in its
// 6th. Any other line is a direct invocation such as
//
//	./pth-stencil-2d 500 mat-250.dat out.dat 0 4
//
// with the count in its last field and the matrix file 4th from the
// end. The returned *SyntaxError has no position set.
func ParseDescriptor(line string) (Descriptor, error) {
	fields := strings.Fields(line)
	var procField, fileField string
	if isLaunched(fields) {
		if len(fields) < 6 {
			return Descriptor{}, lineError(line, fmt.Sprintf("launcher command has %d fields, want at least 6", len(fields)))
		}
		procField, fileField = fields[2], fields[5]
	} else {
		if len(fields) < 4 {
			return Descriptor{}, lineError(line, fmt.Sprintf("command has %d fields, want at least 4", len(fields)))
		}
		procField, fileField = fields[len(fields)-1], fields[len(fields)-4]
	}

	procs, err := strconv.Atoi(procField)
	if err != nil {
		return Descriptor{}, lineError(line, "parsing process count: "+numErr(err))
	}
	if procs < 1 {
		return Descriptor{}, lineError(line, fmt.Sprintf("process count %d is not positive", procs))
	}

	if len(fileField) <= len(matrixPrefix)+len(matrixSuffix) {
		return Descriptor{}, lineError(line, fmt.Sprintf("matrix file %q is not of the form %s", fileField, MatrixFile(0)))
	}
	sizeField := fileField[len(matrixPrefix) : len(fileField)-len(matrixSuffix)]
	size, err := strconv.Atoi(sizeField)
	if err != nil {
		return Descriptor{}, lineError(line, fmt.Sprintf("parsing matrix size in %q: %s", fileField, numErr(err)))
	}
	if size < 1 {
		return Descriptor{}, lineError(line, fmt.Sprintf("matrix size %d is not positive", size))
	}
	return Descriptor{Procs: procs, Size: size}, nil
}

func isLaunched(fields []string) bool {
	for _, f := range fields {
		name := filepath.Base(f)
		for _, l := range Launchers {
			if name == l {
				return true
			}
		}
	}
	return false
}

func lineError(line, msg string) *SyntaxError {
	return &SyntaxError{Section: -1, Line: line, Msg: msg}
}

func numErr(err error) string {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err.Error()
	}
	return err.Error()
}

// ExtractTiming finds the overall and compute times in the output of
// sec, that is, every line after its command line. A line containing
// ErrorMarker yields a *RunError; a missing
// timing line yields a *MissingError. Times must be positive and
// finite.
func ExtractTiming(sec Section) (Timing, error) {
	var t Timing
	var haveOverall, haveCompute bool
	lines := strings.Split(sec.Text, "\n")[1:]
	for _, line := range lines {
		switch {
		case strings.Contains(line, ErrorMarker):
			return Timing{}, &RunError{Section: sec.Index, Line: line, Output: sec.Text}
		case !haveOverall && strings.Contains(line, OverallMarker):
			v, err := parseSeconds(line)
			if err != nil {
				err.Section = sec.Index
				return Timing{}, err
			}
			t.Overall, haveOverall = v, true
		case !haveCompute && strings.Contains(line, ComputeMarker):
			v, err := parseSeconds(line)
			if err != nil {
				err.Section = sec.Index
				return Timing{}, err
			}
			t.Compute, haveCompute = v, true
		}
	}
	if !haveOverall {
		return Timing{}, &MissingError{Section: sec.Index, Metric: OverallMarker}
	}
	if !haveCompute {
		return Timing{}, &MissingError{Section: sec.Index, Metric: ComputeMarker}
	}
	return t, nil
}

// parseSeconds parses the second-to-last field of line, as in
// "[Overall Time] = 0.731 sec".
func parseSeconds(line string) (float64, *SyntaxError) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, lineError(line, "missing time value")
	}
	v, err := strconv.ParseFloat(fields[len(fields)-2], 64)
	if err != nil {
		return 0, lineError(line, "parsing time: "+numErr(err))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, lineError(line, fmt.Sprintf("time %v is not a positive duration", v))
	}
	return v, nil
}

// FindError returns the first line of output containing ErrorMarker.
func FindError(output string) (line string, ok bool) {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, ErrorMarker) {
			return line, true
		}
	}
	return "", false
}
