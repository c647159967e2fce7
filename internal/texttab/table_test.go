// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package texttab

import (
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var tab Table
	check := func(want string) {
		t.Helper()
		var gotBuf strings.Builder
		if err := tab.Format(&gotBuf); err != nil {
			t.Fatal(err)
		}
		if got := gotBuf.String(); want != got {
			t.Errorf("want:\n%sgot:\n%s", want, got)
		}
		// Reset tab.
		tab = Table{}
	}

	// Basic test.
	tab.Row().Cell("a").Cell("b").Cell("c")
	tab.Row().Cell("d").Cell("e").Cell("f")
	check("a  b  c\nd  e  f\n")

	// Padding, without trailing spaces.
	tab.Row().Cell("a").Cell("b").Cell("c")
	tab.Row().Cell("long").Cell("e").Cell("long")
	check("a     b  c\nlong  e  long\n")

	// Right alignment.
	tab.Row().Cell("size").Cell("p=1", Right).Cell("p=2", Right)
	tab.Row().Cell("100x100").Cell("1.0000", Right).Cell("1.6667", Right)
	check("size        p=1     p=2\n100x100  1.0000  1.6667\n")

	// A span that fits, and one that widens its last column.
	tab.Row().Span(2, "xy")
	tab.Row().Cell("a").Cell("b")
	check("xy\na  b\n")
	tab.Row().Span(2, "a wide title")
	tab.Row().Cell("a").Cell("b")
	check("a wide title\na  b\n")

	// Blank rows.
	tab.Row().Cell("a")
	tab.Row()
	tab.Row().Cell("b")
	check("a\n\nb\n")
}
