// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Stencilstat analyzes the benchmark log of one stencil implementation
// and charts how it scales.
//
// Usage:
//
//	stencilstat [flags] mpi|pthread
//
// Stencilstat reads data/<mode>_stencil_data.txt, as written by
// stencilgather, and reduces it to a table of overall and compute
// times indexed by matrix size and process (or thread) count. From
// the times it derives the speedup, parallel efficiency and
// Karp-Flatt metric of every cell, relative to the first process
// count of each size.
//
// Each of the four tables is rendered as a pair of line charts, one
// for overall time and one for computation time, with one line per
// matrix size:
//
//	plots/<mode>-Time.png
//	plots/<mode>-Speedup.png
//	plots/<mode>-Efficiency.png
//	plots/<mode>-e.png
//
// Any PNG files already in the plot directory are removed first.
// With -gcs, the charts are uploaded to a Google Cloud Storage bucket
// instead.
//
// The tables themselves are printed to standard output, each followed
// by the geometric mean of every column (the arithmetic mean for the
// Karp-Flatt metric, which is often zero or negative). The -format
// flag selects "text", "csv" or "none".
//
// Progress is recorded in logs/analyze_data_output.log, which is
// truncated on every run.
//
// # Archiving and exporting
//
// With -db, the runs of the log are archived as a new session in a
// SQL database (SQLite by default, or MySQL with -db-driver=mysql).
// A MySQL DSN may name a Cloud SQL instance, as in
// user:password@cloudsql(project:region:instance)/dbname.
// With -db and -session, stencilstat analyzes an archived session
// instead of reading the log. -session=latest selects the most recent
// session of the mode.
//
// With -influx, every finite cell of every table is written to
// InfluxDB as a point of the "stencil" measurement. Passing
// -influx-token selects the InfluxDB 2 API, which needs -influx-org
// and -influx-bucket; otherwise the 1.x API is used with
// -influx-db.
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
	"time"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	_ "github.com/go-sql-driver/mysql"

	"github.com/lezahlie/Stencil-Project/chart"
	"github.com/lezahlie/Stencil-Project/internal/influx"
	"github.com/lezahlie/Stencil-Project/internal/logfile"
	"github.com/lezahlie/Stencil-Project/runner"
	"github.com/lezahlie/Stencil-Project/scaling"
	"github.com/lezahlie/Stencil-Project/stencilfmt"
	"github.com/lezahlie/Stencil-Project/storage/db"
	_ "github.com/lezahlie/Stencil-Project/storage/db/sqlite3"
	"github.com/lezahlie/Stencil-Project/storage/fs"
	"github.com/lezahlie/Stencil-Project/storage/fs/gcs"
	"github.com/lezahlie/Stencil-Project/storage/fs/local"
)

var exit = os.Exit // replaced during testing

// errUsage is returned for a command line that cannot be run. The
// usage message has already been printed.
var errUsage = errors.New("usage: stencilstat [flags] mpi|pthread")

func main() {
	log.SetPrefix("stencilstat: ")
	log.SetFlags(0)
	if err := stencilstat(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if err == errUsage {
			exit(2)
		}
		log.Print(err)
		exit(1)
	}
}

// now is a hook for testing
var now = time.Now

func stencilstat(stdout, stderr io.Writer, args []string) (err error) {
	flags := flag.NewFlagSet("stencilstat", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: stencilstat [flags] mpi|pthread\n")
		fmt.Fprintf(stderr, "flags:\n")
		flags.PrintDefaults()
	}
	var (
		flagData    = flags.String("data", "data", "read the benchmark log from `dir`")
		flagPlots   = flags.String("plots", "plots", "write charts to `dir`")
		flagLogs    = flags.String("logs", logfile.Dir, "write the analysis log to `dir`")
		flagFormat  = flags.String("format", "text", "print tables in `format`: text, csv or none")
		flagDPI     = flags.Int("dpi", 150, "chart resolution in `dots` per inch")
		flagGCS     = flags.String("gcs", "", "upload charts to the GCS `bucket` instead of the plot directory")
		flagDriver  = flags.String("db-driver", "sqlite3", "archive database `driver`: sqlite3 or mysql")
		flagDB      = flags.String("db", "", "archive runs in the database at `dsn`")
		flagSession = flags.String("session", "", "analyze the archived session `id`, or \"latest\", instead of the log (requires -db)")
		flagInflux  = flags.String("influx", "", "export tables to the InfluxDB server at `url`")
		flagToken   = flags.String("influx-token", "", "InfluxDB 2 API `token`")
		flagOrg     = flags.String("influx-org", "", "InfluxDB 2 `organization`")
		flagBucket  = flags.String("influx-bucket", "", "InfluxDB 2 `bucket`")
		flagIfxDB   = flags.String("influx-db", "", "InfluxDB 1.x `database`")
		flagIfxUser = flags.String("influx-user", "", "InfluxDB 1.x user `name`")
		flagIfxPass = flags.String("influx-password", "", "InfluxDB 1.x `password`")
	)
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	lf, err := logfile.Open(*flagLogs, "analyze-data", false)
	if err != nil {
		return err
	}
	defer lf.Close()
	defer func() {
		if err != nil && err != errUsage {
			lf.Error(err)
		}
	}()

	mode, err := runner.ParseMode(flags.Arg(0))
	if flags.NArg() != 1 || err != nil || mode == runner.Serial || !knownFormat(*flagFormat) {
		lf.Printf("Usage: stencilstat <mpi | pthread>")
		lf.Printf("Note: files generated by 'stencilgen' and 'stencilgather' are prerequisites")
		flags.Usage()
		return errUsage
	}
	if *flagSession != "" && (*flagDB == "" || !validSession(*flagSession)) {
		flags.Usage()
		return errUsage
	}

	ctx := context.Background()

	var archive *db.DB
	if *flagDB != "" {
		archive, err = db.OpenSQL(*flagDriver, *flagDB)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer archive.Close()
	}

	var runs []*stencilfmt.Run
	if *flagSession != "" {
		runs, err = readSession(ctx, lf, archive, mode, *flagSession)
	} else {
		runs, err = readLog(lf, filepath.Join(*flagData, string(mode)+"_stencil_data.txt"))
	}
	if err != nil {
		return err
	}

	b := scaling.NewBuilder()
	for _, run := range runs {
		b.Add(run)
	}
	times, err := b.Table()
	if err != nil {
		return err
	}

	lf.Step("calculating %s overall and computation speedup...", mode)
	speedup := scaling.Speedup(times)
	lf.Step("calculating %s overall and computation efficiency...", mode)
	eff, effMax := scaling.Efficiency(speedup)
	lf.Step("calculating %s overall and computation karp_flatt metric...", mode)
	kf, kfMin := scaling.KarpFlatt(speedup)

	results := []*result{
		{chart.Time, times, scaling.MaxValue(times)},
		{chart.Speedup, speedup, 0},
		{chart.Efficiency, eff, effMax},
		{chart.KarpFlatt, kf, kfMin},
	}

	var sink fs.FS
	where := *flagPlots
	if *flagGCS != "" {
		g, err := gcs.NewFS(ctx, *flagGCS)
		if err != nil {
			return err
		}
		defer g.Close()
		sink, where = g, "gs://"+*flagGCS
	} else {
		if err := removeCharts(*flagPlots); err != nil {
			return err
		}
		l, err := local.NewFS(*flagPlots)
		if err != nil {
			return err
		}
		sink = l
	}
	for _, r := range results {
		lf.Step("generating %s %s plots...", mode, chartNames[r.kind])
		opts := chart.Options{
			Kind:   r.kind,
			System: mode.Title(),
			XLabel: mode.AxisLabel(),
			DPI:    *flagDPI,
		}
		if _, err := chart.Save(ctx, sink, string(mode), r.table, r.extremum, opts); err != nil {
			return fmt.Errorf("%s chart: %w", r.kind, err)
		}
	}
	lf.Done("saved all plots in directory '%s'", where)

	if archive != nil && *flagSession == "" {
		s, err := archive.NewSession(ctx, string(mode), iterations(runs))
		if err != nil {
			return fmt.Errorf("archiving runs: %w", err)
		}
		if err := s.InsertRuns(ctx, runs); err != nil {
			return fmt.Errorf("archiving runs: %w", err)
		}
		lf.Done("archived %d runs as session %d", len(runs), s.ID)
	}

	if *flagInflux != "" {
		exp, err := influx.NewExporter(influx.Config{
			URL:      *flagInflux,
			Token:    *flagToken,
			Org:      *flagOrg,
			Bucket:   *flagBucket,
			Database: *flagIfxDB,
			Username: *flagIfxUser,
			Password: *flagIfxPass,
		})
		if err != nil {
			return err
		}
		defer exp.Close()
		ts := now()
		var pts []influx.Point
		for _, r := range results {
			pts = append(pts, influx.Points(string(mode), string(r.kind), r.table, ts)...)
		}
		if err := exp.Export(ctx, pts); err != nil {
			return err
		}
		lf.Done("exported %d points to %s", len(pts), *flagInflux)
	}

	return writeReport(stdout, *flagFormat, results)
}

// chartNames are the names of the charts in progress messages.
var chartNames = map[chart.Kind]string{
	chart.Time:       "time",
	chart.Speedup:    "speedup",
	chart.Efficiency: "efficiency",
	chart.KarpFlatt:  "karp flatt metric",
}

// readLog reads the runs of the benchmark log at path.
func readLog(lf *logfile.File, path string) ([]*stencilfmt.Run, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		lf.Printf("Error [open]: '%s' does not exist", path)
		lf.Printf("Note: 'stencilgen' => 'stencilgather' are prerequisites")
		return nil, fmt.Errorf("%s does not exist; run stencilgen and stencilgather first", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lf.Step("reading in time data from '%s'...", path)
	return stencilfmt.ReadRuns(f, path)
}

// validSession reports whether name is a session ID or "latest".
func validSession(name string) bool {
	if name == "latest" {
		return true
	}
	id, err := strconv.ParseInt(name, 10, 64)
	return err == nil && id > 0
}

// readSession reads the runs of the archived session name, which is
// either an ID or "latest". The session must be of the given mode.
func readSession(ctx context.Context, lf *logfile.File, archive *db.DB, mode runner.Mode, name string) ([]*stencilfmt.Run, error) {
	var s *db.Session
	var err error
	if name == "latest" {
		s, err = archive.LatestSession(ctx, string(mode))
	} else {
		id, _ := strconv.ParseInt(name, 10, 64)
		s, err = archive.Session(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", name, err)
	}
	if s.Mode != string(mode) {
		return nil, fmt.Errorf("session %d holds %s runs, not %s", s.ID, s.Mode, mode)
	}
	lf.Step("reading in time data from session %d...", s.ID)
	return archive.Runs(ctx, s.ID)
}

// iterations returns the iteration count shared by runs, or 0 if
// they disagree or it cannot be recovered from their commands.
func iterations(runs []*stencilfmt.Run) int {
	n := 0
	for i, run := range runs {
		it, ok := runner.Iterations(run.Command)
		if !ok || (i > 0 && it != n) {
			return 0
		}
		n = it
	}
	return n
}

// removeCharts removes the PNG files in dir, which need not exist.
func removeCharts(dir string) error {
	pngs, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return err
	}
	for _, p := range pngs {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	return nil
}
