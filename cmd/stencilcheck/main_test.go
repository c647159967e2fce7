// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/lezahlie/Stencil-Project/internal/logfile"
	"github.com/lezahlie/Stencil-Project/matrix"
	"github.com/lezahlie/Stencil-Project/stencilfmt"
)

// fakeBinaries simulates the stencil binaries in dir. make-2d writes
// the initial matrix and every stencil run copies its input to its
// output, so all results agree unless corrupt names one of them.
type fakeBinaries struct {
	dir     string
	corrupt string
	fail    string
	calls   int
}

func (f *fakeBinaries) Exec(_ context.Context, argv []string) ([]byte, error) {
	f.calls++
	args := argv
	if args[0] == "mpirun" {
		args = args[3:]
	}
	switch filepath.Base(args[0]) {
	case "make-2d":
		rows, _ := strconv.Atoi(args[1])
		cols, _ := strconv.Atoi(args[2])
		m, err := matrix.Init(rows, cols)
		if err != nil {
			return nil, err
		}
		return nil, matrix.WriteFile(filepath.Join(f.dir, args[3]), m)
	case "stencil-2d", "pth-stencil-2d", "mpi-stencil-2d":
		in, out := args[2], args[3]
		if out == f.fail {
			return []byte("Error [mpi_utils:read]: cannot open/read '" + in + "'\n"), nil
		}
		m, err := matrix.ReadFile(filepath.Join(f.dir, in))
		if err != nil {
			return nil, err
		}
		if out == f.corrupt {
			m.Set(1, 1, 0.5)
		}
		if err := matrix.WriteFile(filepath.Join(f.dir, out), m); err != nil {
			return nil, err
		}
		return []byte("[Overall Time] = 1 sec\n"), nil
	}
	return nil, errors.New("unknown binary " + args[0])
}

func setup(t *testing.T) (*fakeBinaries, string) {
	f := &fakeBinaries{dir: t.TempDir()}
	executor = f
	t.Cleanup(func() { executor = nil })
	return f, t.TempDir()
}

func readLog(t *testing.T, logs string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logs, logfile.Name("debug-data")))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCheck(t *testing.T) {
	f, logs := setup(t)
	var stdout, stderr bytes.Buffer
	if err := stencilcheck(&stdout, &stderr, []string{"-C", f.dir, "-logs", logs, "-sizes", "5,6", "-counts", "1,2", "-iters", "3"}); err != nil {
		t.Fatal(err)
	}
	// Per size: make-2d, serial, 2 pthread and 2 MPI runs.
	if f.calls != 12 {
		t.Errorf("ran %d commands, want 12", f.calls)
	}
	if !strings.HasSuffix(stdout.String(), "total files with differences = 0\n") {
		t.Errorf("stdout = %q", stdout.String())
	}
	lg := readLog(t, logs)
	for _, want := range []string{
		"./stencil-2d 3 mat-5.dat serial-5.dat\n",
		"./pth-stencil-2d 3 mat-5.dat pth-5-2.dat 1 2\n",
		"mpirun -np 2 ./mpi-stencil-2d 3 mat-6.dat mpi-6-2.dat 1\n",
		"compare serial-6.dat pth-6-1.dat\nNo differences!\n",
		"compare pth-6-2.dat mpi-6-2.dat\nNo differences!\n",
	} {
		if !strings.Contains(lg, want) {
			t.Errorf("log does not contain %q:\n%s", want, lg)
		}
	}
	if n := strings.Count(lg, "No differences!"); n != 8 {
		t.Errorf("log records %d identical pairs, want 8", n)
	}

	ents, err := os.ReadDir(f.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) != 0 {
		t.Errorf("%d files left behind in %s", len(ents), f.dir)
	}
}

func TestCheckDiffers(t *testing.T) {
	f, logs := setup(t)
	f.corrupt = "mpi-5-2.dat"
	var stdout, stderr bytes.Buffer
	err := stencilcheck(&stdout, &stderr, []string{"-C", f.dir, "-logs", logs, "-sizes", "5", "-counts", "1,2", "-iters", "3", "-keep"})
	if err == nil {
		t.Fatal("want error for differing results")
	}
	if !strings.HasSuffix(stdout.String(), "total files with differences = 1\n") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if lg := readLog(t, logs); !strings.Contains(lg, "Files pth-5-2.dat and mpi-5-2.dat differ: [1][1]: 0 != 0.5\n") {
		t.Errorf("difference not logged:\n%s", lg)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "mpi-5-2.dat")); err != nil {
		t.Errorf("-keep removed results: %v", err)
	}
}

func TestCheckRunError(t *testing.T) {
	f, logs := setup(t)
	f.fail = "pth-5-1.dat"
	var stdout, stderr bytes.Buffer
	err := stencilcheck(&stdout, &stderr, []string{"-C", f.dir, "-logs", logs, "-sizes", "5", "-counts", "1"})
	var rerr *stencilfmt.RunError
	if !errors.As(err, &rerr) {
		t.Fatalf("got %v, want *stencilfmt.RunError", err)
	}
	if strings.Contains(stdout.String(), "total files") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if lg := readLog(t, logs); !strings.Contains(lg, "Error [mpi_utils:read]") {
		t.Errorf("error output not logged:\n%s", lg)
	}
}

func TestCheckUsage(t *testing.T) {
	for _, args := range [][]string{{"extra"}, {"-sizes", "a"}, {"-counts", "0"}, {"-iters", "-1"}} {
		var stdout, stderr bytes.Buffer
		if err := stencilcheck(&stdout, &stderr, args); err != errUsage {
			t.Errorf("%v: got %v, want usage error", args, err)
		}
	}
}
