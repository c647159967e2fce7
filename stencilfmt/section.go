// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencilfmt

import "strings"

// Delimiter separates the sections of a benchmark log. The stencil
// binaries print it after their timing lines.
const Delimiter = "\n" + "------------------------------------------------------------" + "\n"

// A Section is one delimited block of a benchmark log.
type Section struct {
	// Index is the 0-based position of this section in the log.
	Index int

	// Text is the raw text of the section, without the delimiter.
	Text string

	// Terminated reports whether the section was followed by a
	// delimiter. Only the final section of a log can be
	// unterminated.
	Terminated bool
}

// FirstLine returns the first line of the section, which is the
// echoed command that produced it.
func (s Section) FirstLine() string {
	line := s.Text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSuffix(line, "\r")
}

// Sections splits the text of a benchmark log into sections.
//
// Its API is modeled on bufio.Scanner. Splitting is lazy: each call
// to Scan finds only the next delimiter. A text without any
// delimiter is a single unterminated section.
type Sections struct {
	text string
	rest string
	cur  Section
	next int
	done bool
}

// NewSections returns a Sections over text.
func NewSections(text string) *Sections {
	s := new(Sections)
	s.Reset(text)
	return s
}

// Reset restarts s at the beginning of text.
func (s *Sections) Reset(text string) {
	s.text = text
	s.rest = text
	s.cur = Section{}
	s.next = 0
	s.done = false
}

// Scan advances to the next section and reports whether there was
// one. Like strings.Split, a text that ends with a delimiter has a
// final empty section.
func (s *Sections) Scan() bool {
	if s.done {
		return false
	}
	i := strings.Index(s.rest, Delimiter)
	if i < 0 {
		s.cur = Section{Index: s.next, Text: s.rest}
		s.rest = ""
		s.done = true
	} else {
		s.cur = Section{Index: s.next, Text: s.rest[:i], Terminated: true}
		s.rest = s.rest[i+len(Delimiter):]
	}
	s.next++
	return true
}

// Section returns the section found by the last call to Scan.
func (s *Sections) Section() Section {
	return s.cur
}

// Split returns the text of every section in text.
func Split(text string) []string {
	var out []string
	for s := NewSections(text); s.Scan(); {
		out = append(out, s.Section().Text)
	}
	return out
}
