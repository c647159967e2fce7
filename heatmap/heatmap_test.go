// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heatmap

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"reflect"
	"strings"
	"testing"

	"github.com/lezahlie/Stencil-Project/matrix"
	"github.com/lezahlie/Stencil-Project/storage/fs"
)

func TestImage(t *testing.T) {
	m, err := matrix.Init(3, 4)
	if err != nil {
		t.Fatal(err)
	}
	img, err := Image(m, ColorMap())
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("image is %dx%d, want 4x3", b.Dx(), b.Dy())
	}
	// The hot edge columns are red, the cold middle is blue.
	hot := img.RGBAAt(0, 1)
	cold := img.RGBAAt(1, 1)
	if !(hot.R > hot.B) {
		t.Errorf("hot cell %v is not red", hot)
	}
	if !(cold.B > cold.R) {
		t.Errorf("cold cell %v is not blue", cold)
	}
	if img.RGBAAt(3, 2) != hot {
		t.Errorf("edge cells differ: %v != %v", img.RGBAAt(3, 2), hot)
	}
}

func TestImageConstant(t *testing.T) {
	m := matrix.New(3, 3)
	img, err := Image(m, ColorMap())
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(0, 0) != img.RGBAAt(2, 2) {
		t.Errorf("constant matrix has varying colors")
	}
}

func TestWritePNG(t *testing.T) {
	m, _ := matrix.Init(5, 7)
	img, err := Image(m, ColorMap())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		t.Fatal(err)
	}
	got, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := got.Bounds(); b.Dx() != 7 || b.Dy() != 5 {
		t.Errorf("decoded image is %dx%d, want 7x5", b.Dx(), b.Dy())
	}
}

func TestSaveFrames(t *testing.T) {
	shape := matrix.StackShape{Rows: 3, Cols: 3, Iterations: 1}
	a, _ := matrix.Init(3, 3)
	b, _ := matrix.Init(3, 3)
	b.Set(1, 1, 0.5)

	mem := fs.NewMemFS()
	names, err := SaveFrames(context.Background(), mem, Name(shape), []*matrix.Matrix{a, b})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"heatmap-3x3x2/frame-00000.png", "heatmap-3x3x2/frame-00001.png"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if !reflect.DeepEqual(mem.Files(), want) {
		t.Errorf("Files() = %v, want %v", mem.Files(), want)
	}
}

type fakeExec struct {
	argv []string
	err  error
}

func (f *fakeExec) Exec(_ context.Context, argv []string) ([]byte, error) {
	f.argv = argv
	return nil, f.err
}

func TestAssemble(t *testing.T) {
	fe := &fakeExec{}
	if err := Assemble(context.Background(), fe, "videos/heatmap-3x3x2", "videos/heatmap-3x3x2.mp4", FPS); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(fe.argv, " ")
	for _, want := range []string{"ffmpeg ", "-framerate 90", "-i videos/heatmap-3x3x2/frame-%05d.png", "-c:v mpeg4", " videos/heatmap-3x3x2.mp4"} {
		if !strings.Contains(got, want) {
			t.Errorf("command %q does not contain %q", got, want)
		}
	}

	fe.err = errors.New("ffmpeg: not found")
	if err := Assemble(context.Background(), fe, "d", "out.mp4", FPS); err == nil || !strings.Contains(err.Error(), "out.mp4") {
		t.Errorf("got %v, want error naming out.mp4", err)
	}
}
