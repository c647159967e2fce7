// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Stencilgen writes the square input matrices used by stencilgather.
//
// Usage:
//
//	stencilgen [flags] [sizes]
//
// sizes is a comma-separated list, 250,500,750,1000 by default. For
// each size s, stencilgen runs
//
//	./make-2d s s mat-s.dat
//
// and records its output in logs/generate_matrix_output.log. With
// -native, stencilgen writes the initial matrices itself instead of
// running make-2d.
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

	"github.com/lezahlie/Stencil-Project/internal/logfile"
	"github.com/lezahlie/Stencil-Project/matrix"
	"github.com/lezahlie/Stencil-Project/runner"
	"github.com/lezahlie/Stencil-Project/stencilfmt"
)

var exit = os.Exit // replaced during testing

// executor runs make-2d. nil runs it locally.
var executor runner.Executor // replaced during testing

var errUsage = errors.New("usage: stencilgen [flags] [sizes]")

func main() {
	log.SetPrefix("stencilgen: ")
	log.SetFlags(0)
	if err := stencilgen(os.Stderr, os.Args[1:]); err != nil {
		if err == errUsage {
			exit(2)
		}
		log.Print(err)
		exit(1)
	}
}

func stencilgen(stderr io.Writer, args []string) (err error) {
	flags := flag.NewFlagSet("stencilgen", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "%s\n", errUsage)
		fmt.Fprintf(stderr, "flags:\n")
		flags.PrintDefaults()
	}
	var (
		flagDir    = flags.String("C", ".", "write the matrices to `dir`")
		flagLogs   = flags.String("logs", logfile.Dir, "write the log to `dir`")
		flagBin    = flags.String("bin", "", "run make-2d from `dir` (default the -C directory)")
		flagNative = flags.Bool("native", false, "write the matrices directly instead of running make-2d")
	)
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	sizes := []int{250, 500, 750, 1000}
	switch flags.NArg() {
	case 0:
	case 1:
		var err error
		if sizes, err = runner.ParseCounts(flags.Arg(0)); err != nil {
			fmt.Fprintf(stderr, "stencilgen: %v\n", err)
			flags.Usage()
			return errUsage
		}
	default:
		flags.Usage()
		return errUsage
	}
	for _, s := range sizes {
		if s < matrix.MinDim {
			return fmt.Errorf("matrix size %d is smaller than %d", s, matrix.MinDim)
		}
	}

	lf, err := logfile.Open(*flagLogs, "generate-matrix", false)
	if err != nil {
		return err
	}
	defer lf.Close()
	defer func() {
		if err != nil {
			lf.Error(err)
		}
	}()

	r := &runner.Runner{
		Binaries: runner.Binaries{Dir: *flagBin},
		Exec:     executor,
	}
	if r.Exec == nil {
		r.Exec = &runner.LocalExec{Dir: *flagDir}
	}
	ctx := context.Background()
	for _, s := range sizes {
		name := stencilfmt.MatrixFile(s)
		if *flagNative {
			m, err := matrix.Init(s, s)
			if err != nil {
				return err
			}
			if err := matrix.WriteFile(filepath.Join(*flagDir, name), m); err != nil {
				return err
			}
			lf.Printf("wrote %dx%d matrix to '%s'", s, s, name)
			continue
		}
		out, err := r.Make(ctx, s, s, name)
		lf.Writer().Write(out)
		if err != nil {
			return err
		}
	}
	return nil
}
