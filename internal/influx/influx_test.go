// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package influx

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lezahlie/Stencil-Project/scaling"
)

func testTable() *scaling.Table {
	t := scaling.NewTable([]int{100}, []int{1, 2})
	t.Overall[0] = []float64{0, 0.2}
	t.Compute[0] = []float64{0, math.NaN()}
	return t
}

func TestPoints(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	pts := Points("mpi", "e", testTable(), ts)
	if len(pts) != 3 {
		t.Fatalf("got %d points, want 3 (NaN skipped)", len(pts))
	}
	p := pts[1]
	want := map[string]string{"mode": "mpi", "kind": "e", "metric": "overall", "size": "100", "procs": "2"}
	for k, v := range want {
		if p.Tags[k] != v {
			t.Errorf("tag %s = %q, want %q", k, p.Tags[k], v)
		}
	}
	if p.Value != 0.2 || !p.Time.Equal(ts) {
		t.Errorf("point = %+v", p)
	}
}

// lineServer records the line protocol bodies posted to it.
type lineServer struct {
	mu    sync.Mutex
	paths []string
	lines []string
}

func (s *lineServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	for _, l := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if l != "" {
			s.lines = append(s.lines, l)
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func TestExportV2(t *testing.T) {
	ls := new(lineServer)
	srv := httptest.NewServer(ls)
	defer srv.Close()

	e, err := NewExporter(Config{URL: srv.URL, Token: "token", Org: "org", Bucket: "stencil"})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if err := e.Export(context.Background(), Points("pthread", "Speedup", testTable(), time.Unix(1, 0))); err != nil {
		t.Fatal(err)
	}
	if len(ls.lines) != 3 {
		t.Fatalf("server got %d lines, want 3: %q", len(ls.lines), ls.lines)
	}
	if ls.paths[0] != "/api/v2/write" {
		t.Errorf("path = %q, want /api/v2/write", ls.paths[0])
	}
	if !strings.HasPrefix(ls.lines[0], Measurement+",") || !strings.Contains(ls.lines[0], "kind=Speedup") {
		t.Errorf("line = %q", ls.lines[0])
	}
}

func TestExportV1(t *testing.T) {
	ls := new(lineServer)
	srv := httptest.NewServer(ls)
	defer srv.Close()

	e, err := NewExporter(Config{URL: srv.URL, Database: "stencil"})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if err := e.Export(context.Background(), Points("mpi", "Efficiency", testTable(), time.Unix(1, 0))); err != nil {
		t.Fatal(err)
	}
	if len(ls.lines) != 3 {
		t.Fatalf("server got %d lines, want 3: %q", len(ls.lines), ls.lines)
	}
	if ls.paths[0] != "/write" {
		t.Errorf("path = %q, want /write", ls.paths[0])
	}
}

func TestNewExporterErrors(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{URL: "http://localhost:8086", Token: "t"},
		{URL: "http://localhost:8086"},
	} {
		if _, err := NewExporter(cfg); err == nil {
			t.Errorf("NewExporter(%+v) succeeded", cfg)
		}
	}
}
