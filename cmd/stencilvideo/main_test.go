// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/lezahlie/Stencil-Project/matrix"
)

// fakeBinaries simulates make-2d and pth-stencil-2d in dir and records
// the ffmpeg command without running it.
type fakeBinaries struct {
	dir    string
	ffmpeg []string
	made   []string
}

func (f *fakeBinaries) Exec(_ context.Context, argv []string) ([]byte, error) {
	switch filepath.Base(argv[0]) {
	case "make-2d":
		rows, _ := strconv.Atoi(argv[1])
		cols, _ := strconv.Atoi(argv[2])
		m, err := matrix.Init(rows, cols)
		if err != nil {
			return nil, err
		}
		f.made = append(f.made, argv[3])
		return []byte("made " + argv[3] + "\n"), matrix.WriteFile(filepath.Join(f.dir, argv[3]), m)
	case "pth-stencil-2d":
		iters, _ := strconv.Atoi(argv[1])
		m, err := matrix.ReadFile(filepath.Join(f.dir, argv[2]))
		if err != nil {
			return nil, err
		}
		return nil, writeStack(filepath.Join(f.dir, argv[len(argv)-1]), m, iters)
	case "ffmpeg":
		f.ffmpeg = argv
		return nil, nil
	}
	return nil, errors.New("unknown command " + argv[0])
}

// writeStack writes iters+1 frames starting from m, warming one more
// interior cell in each.
func writeStack(path string, m *matrix.Matrix, iters int) error {
	var frames []*matrix.Matrix
	for i := 0; i <= iters; i++ {
		fm := matrix.New(m.Rows, m.Cols)
		copy(fm.Data, m.Data)
		for k := 0; k < i && k < m.Cols-2; k++ {
			fm.Set(1, 1+k, 0.5)
		}
		frames = append(frames, fm)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := matrix.WriteStack(f, frames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func setup(t *testing.T) (*fakeBinaries, []string) {
	f := &fakeBinaries{dir: t.TempDir()}
	executor = f
	t.Cleanup(func() { executor = nil })
	return f, []string{"-C", f.dir, "-videos", filepath.Join(t.TempDir(), "videos"), "-logs", t.TempDir()}
}

func TestGenerated(t *testing.T) {
	f, args := setup(t)
	var stdout, stderr bytes.Buffer
	if err := stencilvideo(&stdout, &stderr, append(args, "-ffmpeg", "4", "5", "3")); err != nil {
		t.Fatal(err)
	}
	if len(f.made) != 1 || f.made[0] != "mat-4-5.dat" {
		t.Errorf("made %v", f.made)
	}
	videos := args[3]
	frameDir := filepath.Join(videos, "heatmap-4x5x4")
	for i := 0; i < 4; i++ {
		p := filepath.Join(frameDir, "frame-0000"+strconv.Itoa(i)+".png")
		fd, err := os.Open(p)
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(fd)
		fd.Close()
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 4 {
			t.Errorf("%s is %dx%d, want 5x4", p, b.Dx(), b.Dy())
		}
	}

	cmd := strings.Join(f.ffmpeg, " ")
	if !strings.Contains(cmd, "-framerate 90 ") || !strings.HasSuffix(cmd, " "+filepath.Join(videos, "heatmap-4x5x4.mp4")) {
		t.Errorf("ffmpeg command = %q", cmd)
	}
	out := stdout.String()
	for _, want := range []string{
		"Processing '" + filepath.Join(f.dir, "4-5-3.raw") + "' as 4 iterations of matrix size 4x5\n",
		"Saved 4 frames to '" + frameDir + "'\n",
		"Saved new mp4 video to '" + filepath.Join(videos, "heatmap-4x5x4.mp4") + "'\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout does not contain %q:\n%s", want, out)
		}
	}
}

func TestStackedFile(t *testing.T) {
	f, args := setup(t)
	m, _ := matrix.Init(3, 3)
	path := filepath.Join(f.dir, "all3x3x2.raw")
	if err := writeStack(path, m, 2); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	if err := stencilvideo(&stdout, &stderr, append(args, path)); err != nil {
		t.Fatal(err)
	}
	if f.ffmpeg != nil || f.made != nil {
		t.Errorf("ran commands for an existing stacked file")
	}
	ents, err := os.ReadDir(filepath.Join(args[3], "heatmap-3x3x3"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) != 3 {
		t.Errorf("wrote %d frames, want 3", len(ents))
	}
}

func TestSizeMismatch(t *testing.T) {
	f, args := setup(t)
	m, _ := matrix.Init(3, 3)
	path := filepath.Join(f.dir, "3-3-5.raw")
	if err := writeStack(path, m, 2); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	err := stencilvideo(&stdout, &stderr, append(args, path))
	var serr *matrix.SizeError
	if !errors.As(err, &serr) {
		t.Fatalf("got %v, want *matrix.SizeError", err)
	}
	if serr.Expected != 54 || serr.Actual != 27 {
		t.Errorf("got %+v", serr)
	}
}

func TestVideoErrors(t *testing.T) {
	f, args := setup(t)
	var stdout, stderr bytes.Buffer
	if err := stencilvideo(&stdout, &stderr, append(args, "stack.raw")); err == nil || err == errUsage {
		t.Errorf("name without shape: got %v", err)
	}
	if err := stencilvideo(&stdout, &stderr, append(args, filepath.Join(f.dir, "9-9-9.raw"))); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("missing file: got %v", err)
	}
	if err := stencilvideo(&stdout, &stderr, append(args, "2", "5", "3")); err == nil || err == errUsage {
		t.Errorf("2 rows: got %v", err)
	}
	for _, bad := range [][]string{{}, {"4", "5"}, {"4", "x", "3"}, {"-gcs", "b", "-ffmpeg", "a.raw"}} {
		if err := stencilvideo(&stdout, &stderr, append(args, bad...)); err != errUsage {
			t.Errorf("%v: got %v, want usage error", bad, err)
		}
	}
}
