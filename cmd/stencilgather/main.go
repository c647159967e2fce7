// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Stencilgather runs the parallel stencil binaries over a grid of
// matrix sizes and process (or thread) counts and appends their
// timings to the benchmark log of the mode.
//
// Usage:
//
//	stencilgather [flags] mpi|pthread [sizes counts iterations]
//
// sizes and counts are comma-separated lists such as 250,500,1000
// and 1,2,4, which are the defaults along with 500 iterations. Every
// size must already have an input matrix mat-<size>.dat, as made by
// stencilgen.
//
// For each size, and each count within it, stencilgather runs
//
//	mpirun -np <count> ./mpi-stencil-2d <iterations> mat-<size>.dat data/mpi-<size>-<count>.dat 0
//
// or
//
//	./pth-stencil-2d <iterations> mat-<size>.dat data/pthread-<size>-<count>.dat 0 <count>
//
// and appends the command line and its output, followed by a
// delimiter line, to data/<mode>_stencil_data.txt. The log only
// grows, so sizes can be gathered a few at a time. Stencilstat
// analyzes the result.
//
// If a binary reports an error, its output is copied to
// logs/gather_data_output.log and stencilgather stops.
//
// With -db, the gathered runs are also archived as a new session in
// a SQL database. The session is removed again if the gather fails.
// -db-driver and -db accept the same values as in stencilstat.
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

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	_ "github.com/go-sql-driver/mysql"

	"github.com/lezahlie/Stencil-Project/internal/logfile"
	"github.com/lezahlie/Stencil-Project/runner"
	"github.com/lezahlie/Stencil-Project/stencilfmt"
	"github.com/lezahlie/Stencil-Project/storage/db"
	_ "github.com/lezahlie/Stencil-Project/storage/db/sqlite3"
)

var exit = os.Exit // replaced during testing

// executor runs the binaries. nil runs them locally.
var executor runner.Executor // replaced during testing

var errUsage = errors.New("usage: stencilgather [flags] mpi|pthread [sizes counts iterations]")

func main() {
	log.SetPrefix("stencilgather: ")
	log.SetFlags(0)
	if err := stencilgather(os.Stderr, os.Args[1:]); err != nil {
		if err == errUsage {
			exit(2)
		}
		log.Print(err)
		exit(1)
	}
}

func stencilgather(stderr io.Writer, args []string) (err error) {
	flags := flag.NewFlagSet("stencilgather", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "%s\n", errUsage)
		fmt.Fprintf(stderr, "flags:\n")
		flags.PrintDefaults()
	}
	var (
		flagData     = flags.String("data", "data", "append the benchmark log and write outputs in `dir`")
		flagLogs     = flags.String("logs", logfile.Dir, "append the progress log in `dir`")
		flagBin      = flags.String("bin", "", "run the stencil binaries from `dir` (default current directory)")
		flagLauncher = flags.String("launcher", "mpirun", "MPI launcher `command`")
		flagDriver   = flags.String("db-driver", "sqlite3", "archive database `driver`: sqlite3 or mysql")
		flagDB       = flags.String("db", "", "archive runs in the database at `dsn`")
	)
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	lf, err := logfile.Open(*flagLogs, "gather-data", true)
	if err != nil {
		return err
	}
	defer lf.Close()
	io.WriteString(lf.Writer(), stencilfmt.Delimiter)
	defer func() {
		if err != nil && err != errUsage {
			lf.Error(err)
		}
	}()

	g, err := parseArgs(flags.Args())
	if err != nil {
		lf.Printf("Usage: stencilgather <mpi | pthread> OPTIONAL: <sizes> <counts> <iterations>")
		lf.Printf("1. optional args <sizes> and <counts> can be comma-separated lists with no spaces, e.g., 1,2,4")
		lf.Printf("2. stencilgen must be run before stencilgather with the same matrix sizes")
		lf.Printf("Note: sizes can be entered all at once or a few at a time")
		fmt.Fprintf(stderr, "stencilgather: %v\n", err)
		flags.Usage()
		return errUsage
	}
	g.dataDir = *flagData
	g.runner = &runner.Runner{
		Binaries: runner.Binaries{Dir: *flagBin, Launcher: *flagLauncher},
		Exec:     executor,
	}
	g.log = lf

	ctx := context.Background()
	var archive *db.DB
	if *flagDB != "" {
		archive, err = db.OpenSQL(*flagDriver, *flagDB)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer archive.Close()
	}

	if err := os.MkdirAll(g.dataDir, 0777); err != nil {
		return err
	}
	path := filepath.Join(g.dataDir, string(g.mode)+"_stencil_data.txt")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	if archive != nil {
		if g.session, err = archive.NewSession(ctx, string(g.mode), g.iterations); err != nil {
			return fmt.Errorf("archiving runs: %w", err)
		}
		defer func() {
			// Only complete grids stay archived.
			if err != nil {
				archive.DeleteSession(ctx, g.session.ID)
			}
		}()
	}

	lf.Step("gathering %s stencil program timing data...", g.mode)
	runs, err := g.gather(ctx, stencilfmt.NewWriter(f))
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	lf.Done("logged %s output in '%s'", g.mode, path)
	if g.session != nil {
		lf.Done("archived %d runs as session %d", len(runs), g.session.ID)
	}
	return nil
}

// A gatherer runs one benchmark grid.
type gatherer struct {
	mode       runner.Mode
	sizes      []int
	counts     []int
	iterations int

	dataDir string
	runner  *runner.Runner
	log     *logfile.File
	session *db.Session // archives each run as it completes; may be nil
}

func parseArgs(args []string) (*gatherer, error) {
	g := &gatherer{
		sizes:      []int{250, 500, 1000},
		counts:     []int{1, 2, 4},
		iterations: 500,
	}
	if len(args) != 1 && len(args) != 4 {
		return nil, fmt.Errorf("want 1 or 4 arguments, got %d", len(args))
	}
	mode, err := runner.ParseMode(args[0])
	if err != nil {
		return nil, err
	}
	if mode == runner.Serial {
		return nil, fmt.Errorf("serial runs have no process count to scale")
	}
	g.mode = mode
	if len(args) == 1 {
		return g, nil
	}
	if g.sizes, err = runner.ParseCounts(args[1]); err != nil {
		return nil, err
	}
	if g.counts, err = runner.ParseCounts(args[2]); err != nil {
		return nil, err
	}
	its, err := runner.ParseCounts(args[3])
	if err != nil || len(its) != 1 {
		return nil, fmt.Errorf("bad iteration count %q", args[3])
	}
	g.iterations = its[0]
	return g, nil
}

// gather runs every (size, count) pair in order and writes each
// command and its output to w. It stops at the first failure; if a
// binary reported an error, its output is copied to the progress log.
func (g *gatherer) gather(ctx context.Context, w *stencilfmt.Writer) ([]*stencilfmt.Run, error) {
	var runs []*stencilfmt.Run
	for _, size := range g.sizes {
		for _, count := range g.counts {
			job := runner.Job{
				Mode:       g.mode,
				Iterations: g.iterations,
				Input:      stencilfmt.MatrixFile(size),
				Output:     filepath.Join(g.dataDir, fmt.Sprintf("%s-%d-%d.dat", g.mode, size, count)),
				Procs:      count,
			}
			argv, out, err := g.runner.RunJob(ctx, job)
			var rerr *stencilfmt.RunError
			if errors.As(err, &rerr) {
				io.WriteString(g.log.Writer(), rerr.Output)
				return nil, err
			}
			if err != nil {
				return nil, err
			}
			if err := w.WriteOutput(argv, out); err != nil {
				return nil, err
			}

			cmd := strings.Join(argv, " ")
			d, err := stencilfmt.ParseDescriptor(cmd)
			if err != nil {
				return nil, err
			}
			t, err := stencilfmt.ExtractTiming(stencilfmt.Section{Index: len(runs), Text: cmd + "\n" + string(out), Terminated: true})
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cmd, err)
			}
			run := stencilfmt.NewRun(cmd, d, t)
			if g.session != nil {
				if err := g.session.InsertRun(ctx, run); err != nil {
					return nil, fmt.Errorf("archiving runs: %w", err)
				}
			}
			runs = append(runs, run)
		}
	}
	return runs, nil
}
