// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runner builds command lines for the stencil binaries and
// runs them, capturing their standard output.
//
// The binaries are external collaborators. A Runner knows only their
// argument conventions and the "Error" line they print on failure.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lezahlie/Stencil-Project/stencilfmt"
)

// A Mode selects a stencil implementation.
type Mode string

const (
	Serial  Mode = "serial"
	Pthread Mode = "pthread"
	MPI     Mode = "mpi"
)

// ParseMode parses a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case Serial, Pthread, MPI:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want mpi, pthread or serial)", s)
}

// Title returns the implementation name shown in chart titles.
func (m Mode) Title() string {
	switch m {
	case MPI:
		return "OpenMPI"
	case Pthread:
		return "Pthreads"
	}
	return "Serial"
}

// AxisLabel returns the label of the parallelism axis.
func (m Mode) AxisLabel() string {
	if m == MPI {
		return "#p (processes)"
	}
	return "#t (threads)"
}

// Binary names, relative to Binaries.Dir.
const (
	SerialBinary  = "stencil-2d"
	PthreadBinary = "pth-stencil-2d"
	MPIBinary     = "mpi-stencil-2d"
	MakeBinary    = "make-2d"
)

// Binaries locates the stencil binaries.
type Binaries struct {
	// Dir is the directory holding the binaries.
	// The empty string means the current directory.
	Dir string
	// Launcher is the MPI launcher, "mpirun" if empty.
	Launcher string
}

func (b Binaries) path(name string) string {
	if b.Dir == "" || b.Dir == "." {
		return "./" + name
	}
	return filepath.Join(b.Dir, name)
}

func (b Binaries) launcher() string {
	if b.Launcher == "" {
		return stencilfmt.Launchers[0]
	}
	return b.Launcher
}

// A Job describes one invocation of a stencil binary.
type Job struct {
	Mode       Mode
	Iterations int
	Input      string
	Output     string
	// Procs is the number of processes or threads. It is ignored
	// in Serial mode.
	Procs int
	// Debug asks the binary to print its matrices.
	Debug bool
	// Stacked, if set, names a raw file that receives the matrix
	// after every iteration.
	Stacked string
}

// Command returns the argument vector that runs j.
func (b Binaries) Command(j Job) ([]string, error) {
	if j.Iterations < 0 {
		return nil, fmt.Errorf("iteration count %d is negative", j.Iterations)
	}
	if j.Mode != Serial && j.Procs < 1 {
		return nil, fmt.Errorf("%s job has %d processes, want at least 1", j.Mode, j.Procs)
	}
	debug := "0"
	if j.Debug {
		debug = "1"
	}
	iters := strconv.Itoa(j.Iterations)

	var argv []string
	switch j.Mode {
	case Serial:
		argv = []string{b.path(SerialBinary), iters, j.Input, j.Output}
	case Pthread:
		argv = []string{b.path(PthreadBinary), iters, j.Input, j.Output, debug, strconv.Itoa(j.Procs)}
	case MPI:
		argv = []string{b.launcher(), "-np", strconv.Itoa(j.Procs), b.path(MPIBinary), iters, j.Input, j.Output, debug}
	default:
		return nil, fmt.Errorf("unknown mode %q", j.Mode)
	}
	if j.Stacked != "" {
		argv = append(argv, j.Stacked)
	}
	return argv, nil
}

// MakeCommand returns the argument vector that writes the initial
// rows×cols matrix to out.
func (b Binaries) MakeCommand(rows, cols int, out string) []string {
	return []string{b.path(MakeBinary), strconv.Itoa(rows), strconv.Itoa(cols), out}
}

// An Executor runs commands.
type Executor interface {
	// Exec runs argv and returns its standard output.
	// A non-zero exit status is reported as an error along with
	// whatever output was produced.
	Exec(ctx context.Context, argv []string) ([]byte, error)
}

// LocalExec is an Executor that runs commands on the local system.
type LocalExec struct {
	// Dir is the working directory of the commands.
	// The empty string means the current directory.
	Dir string
}

func (e *LocalExec) Exec(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("missing command")
	}
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = e.Dir

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s: %v\n%s", strings.Join(argv, " "), err, stderr.Bytes())
	}
	return stdout.Bytes(), nil
}

// A Runner runs stencil binaries.
type Runner struct {
	Binaries
	// Exec runs the commands. A nil Exec runs them locally in
	// the current directory.
	Exec Executor
}

func (r *Runner) executor() Executor {
	if r.Exec == nil {
		return &LocalExec{}
	}
	return r.Exec
}

// Run runs argv and returns its output.
//
// If the output contains an "Error" line, Run returns the output and
// a *stencilfmt.RunError, even if the command exited successfully.
func (r *Runner) Run(ctx context.Context, argv []string) ([]byte, error) {
	out, err := r.executor().Exec(ctx, argv)
	if line, ok := stencilfmt.FindError(string(out)); ok {
		return out, &stencilfmt.RunError{FileName: strings.Join(argv, " "), Section: -1, Line: line, Output: string(out)}
	}
	return out, err
}

// RunJob runs j and returns the command it ran and its output.
func (r *Runner) RunJob(ctx context.Context, j Job) ([]string, []byte, error) {
	argv, err := r.Command(j)
	if err != nil {
		return nil, nil, err
	}
	out, err := r.Run(ctx, argv)
	return argv, out, err
}

// Make writes the initial rows×cols matrix to out using make-2d.
func (r *Runner) Make(ctx context.Context, rows, cols int, out string) ([]byte, error) {
	return r.Run(ctx, r.MakeCommand(rows, cols, out))
}

// Iterations recovers the iteration count from the echoed command
// line of a stencil run. It reports false if command does not run one
// of the stencil binaries.
func Iterations(command string) (int, bool) {
	fields := strings.Fields(command)
	for i := 0; i+1 < len(fields); i++ {
		switch filepath.Base(fields[i]) {
		case SerialBinary, PthreadBinary, MPIBinary:
			n, err := strconv.Atoi(fields[i+1])
			return n, err == nil && n >= 0
		}
	}
	return 0, false
}

// ParseCounts parses a comma-separated list of positive integers,
// such as the matrix sizes "250,500,1000" or the process counts
// "1,2,4".
func ParseCounts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("bad list %q: %q is not a number", s, f)
		}
		if n < 1 {
			return nil, fmt.Errorf("bad list %q: %d is not positive", s, n)
		}
		out = append(out, n)
	}
	return out, nil
}
