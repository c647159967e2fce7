// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heatmap renders the iterations of a stencil run as heat-map
// images and assembles them into a video.
package heatmap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"path"
	"strconv"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/lezahlie/Stencil-Project/matrix"
	"github.com/lezahlie/Stencil-Project/runner"
	"github.com/lezahlie/Stencil-Project/storage/fs"
)

// FPS is the default video frame rate.
const FPS = 90

// ColorMap returns the cool-warm diverging color map over [0, 1] used
// for every frame.
func ColorMap() palette.ColorMap {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	return cm
}

// Image maps m onto cm, one pixel per cell. Values are normalized so
// that the smallest value of m maps to cm.Min() and the largest to
// cm.Max(). A constant matrix maps entirely to cm.Min().
func Image(m *matrix.Matrix, cm palette.ColorMap) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, m.Cols, m.Rows))
	lo, hi := m.Bounds()
	span := hi - lo
	min, max := cm.Min(), cm.Max()
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			v := 0.0
			if span > 0 {
				v = (m.At(i, j) - lo) / span
			}
			c, err := cm.At(min + clamp(v)*(max-min))
			if err != nil {
				return nil, fmt.Errorf("cell [%d][%d]: %w", i, j, err)
			}
			img.Set(j, i, color.RGBAModel.Convert(c))
		}
	}
	return img, nil
}

func clamp(v float64) float64 {
	switch {
	case !(v >= 0):
		return 0
	case v > 1:
		return 1
	}
	return v
}

// WritePNG writes img to w as a PNG image.
func WritePNG(w io.Writer, img *image.RGBA) error {
	c := vgimg.NewWith(vgimg.UseImage(img))
	_, err := vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

// FramePattern is the name of each frame within its directory, in the
// form accepted by ffmpeg's image2 demuxer.
const FramePattern = "frame-%05d.png"

// FrameName returns the name of frame i.
func FrameName(i int) string {
	return fmt.Sprintf(FramePattern, i)
}

// Name returns the base name shared by the frame directory and the
// video of a stack with the given shape, such as "heatmap-100x100x51".
func Name(shape matrix.StackShape) string {
	return "heatmap-" + shape.String()
}

// SaveFrames renders frames as PNG images into directory dir of fsys
// and returns their names.
func SaveFrames(ctx context.Context, fsys fs.FS, dir string, frames []*matrix.Matrix) ([]string, error) {
	cm := ColorMap()
	names := make([]string, 0, len(frames))
	var buf bytes.Buffer
	for i, m := range frames {
		img, err := Image(m, cm)
		if err != nil {
			return names, fmt.Errorf("frame %d: %w", i, err)
		}
		buf.Reset()
		if err := WritePNG(&buf, img); err != nil {
			return names, fmt.Errorf("frame %d: %w", i, err)
		}

		name := path.Join(dir, FrameName(i))
		fw, err := fsys.NewWriter(ctx, name, map[string]string{"frame": strconv.Itoa(i)})
		if err != nil {
			return names, err
		}
		if _, err := buf.WriteTo(fw); err != nil {
			fw.CloseWithError(err)
			return names, err
		}
		if err := fw.Close(); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// AssembleCommand returns the ffmpeg command that encodes the frames
// in dir into an MPEG-4 video at out.
func AssembleCommand(dir, out string, fps int) []string {
	return []string{
		"ffmpeg", "-y", "-loglevel", "error",
		"-framerate", strconv.Itoa(fps),
		"-i", path.Join(dir, FramePattern),
		"-c:v", "mpeg4", "-q:v", "2", "-pix_fmt", "yuv420p",
		out,
	}
}

// Assemble encodes the frames in dir into a video at out using ffmpeg.
func Assemble(ctx context.Context, e runner.Executor, dir, out string, fps int) error {
	if _, err := e.Exec(ctx, AssembleCommand(dir, out, fps)); err != nil {
		return fmt.Errorf("assembling %s: %w", out, err)
	}
	return nil
}
