// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencilfmt

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// A Writer writes runs in the benchmark log format.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewWriter returns a writer that appends sections to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteOutput writes one section: the command line argv joined by
// spaces, then the captured output of the command, then Delimiter.
// The delimiter is not repeated if the output already ends with it.
func (w *Writer) WriteOutput(argv []string, output []byte) error {
	w.buf.WriteString(strings.Join(argv, " "))
	if len(output) == 0 || output[0] != '\n' {
		w.buf.WriteByte('\n')
	}
	if bytes.HasSuffix(output, []byte(Delimiter)) {
		w.buf.Write(output)
	} else {
		w.buf.Write(bytes.TrimSuffix(output, []byte("\n")))
		w.buf.WriteString(Delimiter)
	}

	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

// WriteRun writes a section for run in the format the stencil
// binaries print.
func (w *Writer) WriteRun(run *Run) error {
	out := fmt.Sprintf("\n[Overall Time] = %g sec\n[I/O Time] = %g sec\n[Compute Time] = %g sec",
		run.Overall, run.Overall-run.Compute, run.Compute)
	return w.WriteOutput(strings.Fields(run.Command), []byte(out))
}
