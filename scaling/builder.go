// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scaling

import (
	"fmt"

	"github.com/lezahlie/Stencil-Project/stencilfmt"
)

// An OrderedSet is a set of ints that remembers insertion order.
// The zero value is an empty set ready to use.
type OrderedSet struct {
	vals  []int
	index map[int]int
}

// Add adds v to the set and reports whether it was new.
func (s *OrderedSet) Add(v int) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	if s.index == nil {
		s.index = make(map[int]int)
	}
	s.index[v] = len(s.vals)
	s.vals = append(s.vals, v)
	return true
}

// Index returns the insertion rank of v.
func (s *OrderedSet) Index(v int) (int, bool) {
	i, ok := s.index[v]
	return i, ok
}

// Values returns the members of s in insertion order.
// The caller must not modify the returned slice.
func (s *OrderedSet) Values() []int {
	return s.vals
}

// Len returns the number of members of s.
func (s *OrderedSet) Len() int {
	return len(s.vals)
}

// A ShapeError reports a log whose runs do not cover every
// combination of matrix size and process count exactly once.
type ShapeError struct {
	Runs  int
	Sizes []int
	Procs []int
}

func (e *ShapeError) Error() string {
	if e.Runs == 0 {
		return "no complete runs in log"
	}
	return fmt.Sprintf("%d runs do not fill a table of %d sizes %v × %d process counts %v (want %d runs)",
		e.Runs, len(e.Sizes), e.Sizes, len(e.Procs), e.Procs, len(e.Sizes)*len(e.Procs))
}

// A Builder collects runs into a timing Table.
type Builder struct {
	runs  []*stencilfmt.Run
	sizes OrderedSet
	procs OrderedSet
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return new(Builder)
}

// Add adds run to the Builder. Sizes and process counts are ordered
// by their first appearance across all added runs.
func (b *Builder) Add(run *stencilfmt.Run) {
	r := *run
	b.runs = append(b.runs, &r)
	b.sizes.Add(run.Size)
	b.procs.Add(run.Procs)
}

// Sizes returns the distinct matrix sizes seen so far, in order.
func (b *Builder) Sizes() []int {
	return b.sizes.Values()
}

// Procs returns the distinct process counts seen so far, in order.
func (b *Builder) Procs() []int {
	return b.procs.Values()
}

// Table returns the timing table of all added runs. It returns a
// *ShapeError if the number of runs is not the number of sizes times
// the number of process counts, and an error naming both runs if two
// runs share a (size, process count) cell.
func (b *Builder) Table() (*Table, error) {
	sizes, procs := b.sizes.Values(), b.procs.Values()
	if len(b.runs) == 0 || len(b.runs) != len(sizes)*len(procs) {
		return nil, &ShapeError{Runs: len(b.runs), Sizes: sizes, Procs: procs}
	}

	t := NewTable(sizes, procs)
	filled := make(map[stencilfmt.Descriptor]*stencilfmt.Run)
	for _, run := range b.runs {
		if !(run.Overall > 0) || !(run.Compute > 0) || isNaNOrInf(run.Overall) || isNaNOrInf(run.Compute) {
			return nil, fmt.Errorf("%s: %v: times must be positive and finite, got overall=%v compute=%v",
				run, run.Descriptor, run.Overall, run.Compute)
		}
		if prev := filled[run.Descriptor]; prev != nil {
			return nil, fmt.Errorf("%s: %v already reported by %s", run, run.Descriptor, prev)
		}
		filled[run.Descriptor] = run

		i, _ := b.sizes.Index(run.Size)
		k, _ := b.procs.Index(run.Procs)
		t.Overall[i][k] = run.Overall
		t.Compute[i][k] = run.Compute
	}
	return t, nil
}
