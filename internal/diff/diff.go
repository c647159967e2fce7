// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff describes differences between two texts, for test
// failures and validation reports.
package diff

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Diff returns a human-readable description of the differences
// between want and got, or "" if they are equal. It uses a unified
// diff from the "diff" command when one is installed and otherwise
// reports the first differing line.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	if _, err := exec.LookPath("diff"); err != nil {
		return firstDiff(want, got)
	}

	fw, err := writeTemp(want)
	if err != nil {
		return err.Error()
	}
	defer os.Remove(fw)
	fg, err := writeTemp(got)
	if err != nil {
		return err.Error()
	}
	defer os.Remove(fg)

	data, err := exec.Command("diff", "-u", "-L", "want", "-L", "got", fw, fg).CombinedOutput()
	if len(data) > 0 {
		// diff exits with a non-zero status when the files don't match.
		// Ignore that failure as long as we get output.
		return string(data)
	}
	if err != nil {
		return err.Error()
	}
	return firstDiff(want, got)
}

func writeTemp(s string) (string, error) {
	f, err := os.CreateTemp("", "stencil-diff")
	if err != nil {
		return "", err
	}
	_, err = f.WriteString(s)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// firstDiff reports the first line at which want and got differ.
func firstDiff(want, got string) string {
	wl, gl := strings.Split(want, "\n"), strings.Split(got, "\n")
	for i := 0; i < len(wl) || i < len(gl); i++ {
		var w, g string
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if w != g || i >= len(wl) || i >= len(gl) {
			return fmt.Sprintf("line %d:\nwant: %q\ngot:  %q\n", i+1, w, g)
		}
	}
	return ""
}
