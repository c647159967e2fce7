// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Stencilvideo renders every iteration of a stencil run as a heat
// map and, optionally, assembles the frames into a video.
//
// Usage:
//
//	stencilvideo [flags] stacked-file
//	stencilvideo [flags] rows cols iterations
//
// A stacked file holds the matrix after every iteration, including
// the initial state. Its name must contain its row count, column
// count and iteration count, in that order, separated by anything
// that is not a digit, such as all100x100x10.raw or
// 100-100-50_stacked.raw.
//
// Given rows, cols and iterations instead, stencilvideo makes an
// input matrix of that shape with make-2d, runs pth-stencil-2d over
// it with a stacked output, and renders the result.
//
// Every matrix is normalized to its own range and colored with a
// cool-warm palette. The frames are written as PNG images to
// videos/heatmap-<rows>x<cols>x<frames>/, or to a Google Cloud
// Storage bucket with -gcs. With -ffmpeg, they are encoded into
// videos/heatmap-<rows>x<cols>x<frames>.mp4 by running ffmpeg.
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
	"strconv"

	"github.com/lezahlie/Stencil-Project/heatmap"
	"github.com/lezahlie/Stencil-Project/internal/logfile"
	"github.com/lezahlie/Stencil-Project/matrix"
	"github.com/lezahlie/Stencil-Project/runner"
	"github.com/lezahlie/Stencil-Project/storage/fs"
	"github.com/lezahlie/Stencil-Project/storage/fs/gcs"
	"github.com/lezahlie/Stencil-Project/storage/fs/local"
)

var exit = os.Exit // replaced during testing

// executor runs the binaries and ffmpeg. nil runs them locally.
var executor runner.Executor // replaced during testing

var errUsage = errors.New("usage: stencilvideo [flags] stacked-file\n       stencilvideo [flags] rows cols iterations")

func main() {
	log.SetPrefix("stencilvideo: ")
	log.SetFlags(0)
	if err := stencilvideo(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if err == errUsage {
			exit(2)
		}
		log.Print(err)
		exit(1)
	}
}

func stencilvideo(stdout, stderr io.Writer, args []string) (err error) {
	flags := flag.NewFlagSet("stencilvideo", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "%s\n", errUsage)
		fmt.Fprintf(stderr, "flags:\n")
		flags.PrintDefaults()
	}
	var (
		flagDir     = flags.String("C", ".", "run the binaries and write the stacked file in `dir`")
		flagVideos  = flags.String("videos", "videos", "write frames and video to `dir`")
		flagLogs    = flags.String("logs", logfile.Dir, "write the log to `dir`")
		flagBin     = flags.String("bin", "", "run the stencil binaries from `dir` (default the -C directory)")
		flagThreads = flags.Int("threads", 2, "pthread `count` when generating a stacked file")
		flagGCS     = flags.String("gcs", "", "upload frames to the GCS `bucket` instead of the video directory")
		flagFFmpeg  = flags.Bool("ffmpeg", false, "encode the frames into an MP4 video with ffmpeg")
		flagFPS     = flags.Int("fps", heatmap.FPS, "video frame `rate`")
	)
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if *flagFFmpeg && *flagGCS != "" {
		fmt.Fprintf(stderr, "stencilvideo: -ffmpeg needs local frames and cannot be used with -gcs\n")
		return errUsage
	}
	if *flagThreads < 1 || *flagFPS < 1 {
		flags.Usage()
		return errUsage
	}

	lf, err := logfile.Open(*flagLogs, "create-video", false)
	if err != nil {
		return err
	}
	defer lf.Close()
	defer func() {
		if err != nil && err != errUsage {
			lf.Error(err)
		}
	}()

	exec := executor
	if exec == nil {
		exec = &runner.LocalExec{}
	}
	ctx := context.Background()

	var path string
	var shape matrix.StackShape
	switch flags.NArg() {
	case 1:
		path = flags.Arg(0)
		if shape, err = matrix.ParseStackName(filepath.Base(path)); err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("file %s does not exist", path)
		}
	case 3:
		var dims [3]int
		for i := range dims {
			if dims[i], err = strconv.Atoi(flags.Arg(i)); err != nil || dims[i] < 0 {
				flags.Usage()
				return errUsage
			}
		}
		shape = matrix.StackShape{Rows: dims[0], Cols: dims[1], Iterations: dims[2]}
		gexec := executor
		if gexec == nil {
			gexec = &runner.LocalExec{Dir: *flagDir}
		}
		r := &runner.Runner{Binaries: runner.Binaries{Dir: *flagBin}, Exec: gexec}
		if path, err = generate(ctx, lf, r, *flagDir, shape, *flagThreads); err != nil {
			return err
		}
	default:
		flags.Usage()
		return errUsage
	}

	frames, err := matrix.ReadStack(path, shape)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Processing '%s' as %d iterations of matrix size %dx%d\n", path, shape.Frames(), shape.Rows, shape.Cols)
	lf.Step("rendering %d frames of '%s'...", len(frames), path)

	var sink fs.FS
	where := *flagVideos
	if *flagGCS != "" {
		g, err := gcs.NewFS(ctx, *flagGCS)
		if err != nil {
			return err
		}
		defer g.Close()
		sink, where = g, "gs://"+*flagGCS
	} else {
		l, err := local.NewFS(*flagVideos)
		if err != nil {
			return err
		}
		sink = l
	}
	name := heatmap.Name(shape)
	if _, err := heatmap.SaveFrames(ctx, sink, name, frames); err != nil {
		return err
	}
	dir := where + "/" + name
	if *flagGCS == "" {
		dir = filepath.Join(where, name)
	}
	fmt.Fprintf(stdout, "Saved %d frames to '%s'\n", len(frames), dir)
	lf.Done("saved %d frames to '%s'", len(frames), dir)

	if *flagFFmpeg {
		video := filepath.Join(*flagVideos, name+".mp4")
		lf.Step("encoding '%s' at %d fps...", video, *flagFPS)
		if err := heatmap.Assemble(ctx, exec, dir, video, *flagFPS); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved new mp4 video to '%s'\n", video)
		lf.Done("saved new mp4 video to '%s'", video)
	}
	return nil
}

// generate makes a rows×cols input matrix in dir and runs the pthread
// binary over it, writing a stacked file. It returns the path of the
// stacked file.
func generate(ctx context.Context, lf *logfile.File, r *runner.Runner, dir string, shape matrix.StackShape, threads int) (string, error) {
	if shape.Rows < matrix.MinDim || shape.Cols < matrix.MinDim {
		return "", fmt.Errorf("matrix %dx%d is smaller than %dx%d", shape.Rows, shape.Cols, matrix.MinDim, matrix.MinDim)
	}
	input := fmt.Sprintf("mat-%d-%d.dat", shape.Rows, shape.Cols)
	lf.Step("making '%s'...", input)
	out, err := r.Make(ctx, shape.Rows, shape.Cols, input)
	lf.Writer().Write(out)
	if err != nil {
		return "", err
	}

	stacked := matrix.StackName(shape)
	lf.Step("running %d iterations into '%s'...", shape.Iterations, stacked)
	_, out, err = r.RunJob(ctx, runner.Job{
		Mode:       runner.Pthread,
		Iterations: shape.Iterations,
		Input:      input,
		Output:     "mat_out.dat",
		Procs:      threads,
		Stacked:    stacked,
	})
	lf.Writer().Write(out)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stacked), nil
}
