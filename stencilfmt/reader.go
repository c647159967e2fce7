// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencilfmt

import (
	"fmt"
	"io"
	"strings"
)

// A Reader reads runs from a benchmark log.
//
// Its API is modeled on bufio.Scanner. Sections that are empty or
// contain only white space are skipped, as is the final section when
// no delimiter terminates it: a run's output is complete only once
// its delimiter has been written, so an unterminated tail is
// trailing boilerplate (or a run that was interrupted).
type Reader struct {
	fileName string
	secs     *Sections
	err      error

	rec     Record
	trailer string
}

// NewReader reads the whole of r and returns a Reader over its
// sections. fileName is used in errors; it is purely diagnostic.
func NewReader(r io.Reader, fileName string) *Reader {
	reader := new(Reader)
	data, err := io.ReadAll(r)
	reader.Reset(string(data), fileName)
	if err != nil {
		reader.err = fmt.Errorf("%s: %w", reader.fileName, err)
	}
	return reader
}

// Reset restarts the reader over the given log text.
func (r *Reader) Reset(text, fileName string) {
	if fileName == "" {
		fileName = "<unknown>"
	}
	r.fileName = fileName
	if r.secs == nil {
		r.secs = NewSections(text)
	} else {
		r.secs.Reset(text)
	}
	r.err = nil
	r.rec = nil
	r.trailer = ""
}

// Scan advances the reader to the next record and reports whether
// one was read. The caller should use Result to get it. Scan returns
// false at the end of the log or on an I/O error, in which case the
// caller should check Err.
//
// Parse errors are returned as records and are not fatal to the
// Reader, so the caller can continue to call Scan.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for r.secs.Scan() {
		sec := r.secs.Section()
		if strings.TrimSpace(sec.Text) == "" {
			continue
		}
		if !sec.Terminated {
			r.trailer = sec.Text
			return false
		}
		r.rec = r.parse(sec)
		return true
	}
	return false
}

func (r *Reader) parse(sec Section) Record {
	command := sec.FirstLine()
	d, err := ParseDescriptor(command)
	if err != nil {
		serr := err.(*SyntaxError)
		serr.FileName, serr.Section = r.fileName, sec.Index
		return serr
	}
	t, err := ExtractTiming(sec)
	if err != nil {
		switch err := err.(type) {
		case *SyntaxError:
			err.FileName = r.fileName
			return err
		case *MissingError:
			err.FileName = r.fileName
			return err
		case *RunError:
			err.FileName = r.fileName
			return err
		}
		panic(fmt.Sprintf("unexpected error type %T", err))
	}
	return &Run{
		Descriptor: d,
		Timing:     t,
		Command:    command,
		fileName:   r.fileName,
		section:    sec.Index,
	}
}

// Result returns the record read by the last call to Scan. It is a
// *Run, *SyntaxError, *MissingError or *RunError.
func (r *Reader) Result() Record {
	if r.rec == nil {
		return &SyntaxError{FileName: r.fileName, Section: -1, Msg: "Reader.Scan has not been called"}
	}
	return r.rec
}

// Err returns the I/O error that stopped the reader, if any.
func (r *Reader) Err() error {
	return r.err
}

// Trailer returns the unterminated, non-blank text that ended the
// log, if Scan has reached it.
func (r *Reader) Trailer() string {
	return r.trailer
}

// ReadRuns reads every run from r. It stops at the first record that
// is not a *Run and returns it as the error.
func ReadRuns(r io.Reader, fileName string) ([]*Run, error) {
	reader := NewReader(r, fileName)
	var runs []*Run
	for reader.Scan() {
		switch rec := reader.Result().(type) {
		case *Run:
			runs = append(runs, rec)
		case error:
			return nil, rec
		default:
			return nil, fmt.Errorf("unexpected record type %T", rec)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
