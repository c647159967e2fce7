// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logfile opens the durable per-command log files kept under
// the logs directory.
package logfile

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Dir is the default directory for log files.
const Dir = "logs"

// Name returns the log file name for the named command, such as
// "gather_data_output.log" for "gather-data".
func Name(command string) string {
	return strings.ReplaceAll(command, "-", "_") + "_output.log"
}

// A File is an open log file and a logger writing to it.
type File struct {
	*log.Logger
	f *os.File
}

// Open opens the log file for command under dir, creating dir if
// needed. If appendMode is set, new output is appended to the
// existing file; otherwise the file is truncated. Log lines carry no
// prefix or timestamp.
func Open(dir, command string, appendMode bool) (*File, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(filepath.Join(dir, Name(command)), flags, 0666)
	if err != nil {
		return nil, err
	}
	return &File{Logger: log.New(f, "", 0), f: f}, nil
}

// Discard returns a File whose output is discarded.
func Discard() *File {
	return &File{Logger: log.New(io.Discard, "", 0)}
}

// Path returns the path of the log file, or "" for a discarding File.
func (f *File) Path() string {
	if f.f == nil {
		return ""
	}
	return f.f.Name()
}

// Writer returns the underlying writer, for copying raw output.
func (f *File) Writer() io.Writer {
	return f.Logger.Writer()
}

// Step records the start of a step, as in "> gathering data...".
func (f *File) Step(format string, args ...interface{}) {
	f.Printf("> "+format, args...)
}

// Done records a finished step, as in "# logged output in ...".
func (f *File) Done(format string, args ...interface{}) {
	f.Printf("# "+format, args...)
}

// Error records err.
func (f *File) Error(err error) {
	f.Printf("Error: %v", err)
}

// Close closes the log file.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	if err := f.f.Close(); err != nil {
		return fmt.Errorf("closing log: %w", err)
	}
	return nil
}
