// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Stencilcheck cross-validates the serial, pthread and MPI stencil
// binaries by comparing the matrices they produce.
//
// Usage:
//
//	stencilcheck [flags]
//
// For each matrix size, stencilcheck makes the input matrix, runs the
// serial binary to produce a reference, then runs the pthread binary
// and the MPI binary once for each count. Every pthread result is
// compared with the serial reference, and every MPI result with the
// pthread result of the same count. The binaries run with their debug
// output enabled; all output and every comparison is recorded in
// logs/debug_data_output.log.
//
// Stencilcheck prints the number of results that differ and exits
// with status 1 if it is not zero. The matrices it wrote are removed
// unless -keep is given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lezahlie/Stencil-Project/internal/logfile"
	"github.com/lezahlie/Stencil-Project/matrix"
	"github.com/lezahlie/Stencil-Project/runner"
	"github.com/lezahlie/Stencil-Project/stencilfmt"
)

var exit = os.Exit // replaced during testing

// executor runs the binaries. nil runs them locally in the -C
// directory.
var executor runner.Executor // replaced during testing

var errUsage = errors.New("usage: stencilcheck [flags]")

func main() {
	log.SetPrefix("stencilcheck: ")
	log.SetFlags(0)
	if err := stencilcheck(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if err == errUsage {
			exit(2)
		}
		log.Print(err)
		exit(1)
	}
}

func stencilcheck(stdout, stderr io.Writer, args []string) (err error) {
	flags := flag.NewFlagSet("stencilcheck", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "%s\n", errUsage)
		fmt.Fprintf(stderr, "flags:\n")
		flags.PrintDefaults()
	}
	var (
		flagDir      = flags.String("C", ".", "run the binaries and write matrices in `dir`")
		flagLogs     = flags.String("logs", logfile.Dir, "write the log to `dir`")
		flagBin      = flags.String("bin", "", "run the stencil binaries from `dir` (default the -C directory)")
		flagLauncher = flags.String("launcher", "mpirun", "MPI launcher `command`")
		flagSizes    = flags.String("sizes", "100,200,500", "comma-separated matrix `sizes`")
		flagCounts   = flags.String("counts", "1,2,3", "comma-separated process and thread `counts`")
		flagIters    = flags.Int("iters", 200, "stencil `iterations`")
		flagKeep     = flags.Bool("keep", false, "keep the matrices written during the check")
	)
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if flags.NArg() != 0 || *flagIters < 0 {
		flags.Usage()
		return errUsage
	}
	sizes, err := runner.ParseCounts(*flagSizes)
	if err != nil {
		fmt.Fprintf(stderr, "stencilcheck: -sizes: %v\n", err)
		flags.Usage()
		return errUsage
	}
	counts, err := runner.ParseCounts(*flagCounts)
	if err != nil {
		fmt.Fprintf(stderr, "stencilcheck: -counts: %v\n", err)
		flags.Usage()
		return errUsage
	}

	c := &checker{
		dir:        *flagDir,
		sizes:      sizes,
		counts:     counts,
		iterations: *flagIters,
		runner: &runner.Runner{
			Binaries: runner.Binaries{Dir: *flagBin, Launcher: *flagLauncher},
			Exec:     executor,
		},
	}
	if c.runner.Exec == nil {
		c.runner.Exec = &runner.LocalExec{Dir: c.dir}
	}
	c.log, err = logfile.Open(*flagLogs, "debug-data", false)
	if err != nil {
		return err
	}
	defer c.log.Close()
	defer func() {
		if err != nil {
			c.log.Error(err)
		}
	}()
	if !*flagKeep {
		defer c.cleanup()
	}
	return c.check(stdout)
}

// A checker runs one cross-validation.
type checker struct {
	dir        string
	sizes      []int
	counts     []int
	iterations int
	runner     *runner.Runner

	log     *logfile.File
	written []string
	diffs   int
}

func (c *checker) check(stdout io.Writer) error {
	fmt.Fprintf(stdout, "running stencil programs and saving output in '%s'...\n", c.log.Path())
	ctx := context.Background()
	for _, size := range c.sizes {
		if err := c.checkSize(ctx, size); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "total files with differences = %d\n", c.diffs)
	c.log.Printf("total files with differences = %d", c.diffs)
	if c.diffs > 0 {
		return fmt.Errorf("%d results differ; see %s", c.diffs, c.log.Path())
	}
	return nil
}

func (c *checker) checkSize(ctx context.Context, size int) error {
	input := stencilfmt.MatrixFile(size)
	c.written = append(c.written, input)
	out, err := c.runner.Make(ctx, size, size, input)
	c.log.Writer().Write(out)
	if err != nil {
		return err
	}

	serial := fmt.Sprintf("serial-%d.dat", size)
	if err := c.run(ctx, runner.Job{Mode: runner.Serial, Iterations: c.iterations, Input: input, Output: serial}); err != nil {
		return err
	}
	pth := func(n int) string { return fmt.Sprintf("pth-%d-%d.dat", size, n) }
	for _, n := range c.counts {
		if err := c.run(ctx, runner.Job{Mode: runner.Pthread, Iterations: c.iterations, Input: input, Output: pth(n), Procs: n, Debug: true}); err != nil {
			return err
		}
		if err := c.compare(serial, pth(n)); err != nil {
			return err
		}
	}
	for _, n := range c.counts {
		mpi := fmt.Sprintf("mpi-%d-%d.dat", size, n)
		if err := c.run(ctx, runner.Job{Mode: runner.MPI, Iterations: c.iterations, Input: input, Output: mpi, Procs: n, Debug: true}); err != nil {
			return err
		}
		if err := c.compare(pth(n), mpi); err != nil {
			return err
		}
	}
	return nil
}

// run runs j and logs its command line and output.
func (c *checker) run(ctx context.Context, j runner.Job) error {
	c.written = append(c.written, j.Output)
	argv, out, err := c.runner.RunJob(ctx, j)
	if argv != nil {
		c.log.Print(strings.Join(argv, " "))
	}
	c.log.Writer().Write(out)
	return err
}

// compare logs whether the matrices in files a and b are identical
// and counts them if not.
func (c *checker) compare(a, b string) error {
	c.log.Printf("compare %s %s", a, b)
	eq, d, err := matrix.CompareFiles(filepath.Join(c.dir, a), filepath.Join(c.dir, b))
	if err != nil {
		return err
	}
	if eq {
		c.log.Print("No differences!")
		return nil
	}
	c.diffs++
	c.log.Printf("Files %s and %s differ: %v", a, b, d)
	return nil
}

func (c *checker) cleanup() {
	for _, name := range c.written {
		os.Remove(filepath.Join(c.dir, name))
	}
}
