// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package influx exports scaling tables to InfluxDB.
//
// Every finite cell of a table becomes one point in the "stencil"
// measurement, tagged with the mode, metric kind, panel, matrix size
// and process count.
package influx

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	influxdb1 "github.com/influxdata/influxdb1-client/v2"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/lezahlie/Stencil-Project/scaling"
)

// Measurement is the name of the measurement points are written to.
const Measurement = "stencil"

// A Point is one exported value.
type Point struct {
	Tags  map[string]string
	Value float64
	Time  time.Time
}

// Points returns the points of every finite cell of t. kind names the
// table, such as "Time" or "Speedup".
func Points(mode, kind string, t *scaling.Table, ts time.Time) []Point {
	var pts []Point
	for _, m := range scaling.Metrics {
		grid := t.Grid(m)
		for i, size := range t.Sizes {
			for k, procs := range t.Procs {
				v := grid[i][k]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}
				pts = append(pts, Point{
					Tags: map[string]string{
						"mode":   mode,
						"kind":   kind,
						"metric": m.String(),
						"size":   strconv.Itoa(size),
						"procs":  strconv.Itoa(procs),
					},
					Value: v,
					Time:  ts,
				})
			}
		}
	}
	return pts
}

// An Exporter writes points to a database.
type Exporter interface {
	Export(ctx context.Context, pts []Point) error
	Close() error
}

// Config describes an InfluxDB server.
type Config struct {
	URL string
	// Token selects the InfluxDB 2 API. Without it, the 1.x API is
	// used with Username and Password.
	Token              string
	Username, Password string
	// Org and Bucket locate the data on InfluxDB 2.
	Org, Bucket string
	// Database is the 1.x database name.
	Database string
}

// NewExporter returns an Exporter for the server described by cfg.
func NewExporter(cfg Config) (Exporter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing InfluxDB URL")
	}
	if cfg.Token != "" {
		if cfg.Org == "" || cfg.Bucket == "" {
			return nil, fmt.Errorf("InfluxDB 2 export needs an org and a bucket")
		}
		return newV2(cfg), nil
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("InfluxDB 1.x export needs a database")
	}
	return newV1(cfg)
}

type v2Exporter struct {
	client influxdb2.Client
	org    string
	bucket string
}

func newV2(cfg Config) *v2Exporter {
	return &v2Exporter{
		client: influxdb2.NewClient(cfg.URL, cfg.Token),
		org:    cfg.Org,
		bucket: cfg.Bucket,
	}
}

func (e *v2Exporter) Export(ctx context.Context, pts []Point) error {
	if len(pts) == 0 {
		return nil
	}
	w := e.client.WriteAPIBlocking(e.org, e.bucket)
	for _, p := range pts {
		fields := map[string]interface{}{"value": p.Value}
		if err := w.WritePoint(ctx, influxdb2.NewPoint(Measurement, p.Tags, fields, p.Time)); err != nil {
			return fmt.Errorf("writing to InfluxDB: %w", err)
		}
	}
	return nil
}

func (e *v2Exporter) Close() error {
	e.client.Close()
	return nil
}

type v1Exporter struct {
	client   influxdb1.Client
	database string
}

func newV1(cfg Config) (*v1Exporter, error) {
	c, err := influxdb1.NewHTTPClient(influxdb1.HTTPConfig{
		Addr:     cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return &v1Exporter{client: c, database: cfg.Database}, nil
}

func (e *v1Exporter) Export(_ context.Context, pts []Point) error {
	if len(pts) == 0 {
		return nil
	}
	bp, err := influxdb1.NewBatchPoints(influxdb1.BatchPointsConfig{
		Database:  e.database,
		Precision: "s",
	})
	if err != nil {
		return err
	}
	for _, p := range pts {
		pt, err := influxdb1.NewPoint(Measurement, p.Tags, map[string]interface{}{"value": p.Value}, p.Time)
		if err != nil {
			return err
		}
		bp.AddPoint(pt)
	}
	if err := e.client.Write(bp); err != nil {
		return fmt.Errorf("writing to InfluxDB: %w", err)
	}
	return nil
}

func (e *v1Exporter) Close() error {
	return e.client.Close()
}
