// Package snapshot materializes trailing-window views of the plays table
// into serving artifacts.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hotspotlabs/hotspot/internal/logging"
	"github.com/hotspotlabs/hotspot/internal/metrics"
	"github.com/hotspotlabs/hotspot/internal/storage"
	"github.com/hotspotlabs/hotspot/internal/tables"
)

// Window is a trailing time range over the plays table. Days == 0 means
// the full history.
type Window struct {
	Name string
	Days int
}

// Serving windows, in the order their artifacts are written.
var Windows = []Window{
	{Name: "past_week", Days: 7},
	{Name: "past_month", Days: 30},
	{Name: "past_year", Days: 365},
}

// Paths names the artifact written per window plus the full-history
// artifact.
type Paths struct {
	PastWeek  string
	PastMonth string
	PastYear  string
	All       string
}

func (p Paths) forWindow(name string) string {
	switch name {
	case "past_week":
		return p.PastWeek
	case "past_month":
		return p.PastMonth
	case "past_year":
		return p.PastYear
	default:
		return ""
	}
}

// Config holds the aggregator's dependencies.
type Config struct {
	Store       storage.ObjectStore
	TablePrefix string
	Paths       Paths
	Principals  []string
	Metrics     *metrics.Metrics
}

// Aggregator reads every partition of the plays table and regenerates all
// snapshot artifacts in one pass.
type Aggregator struct {
	store       storage.ObjectStore
	tablePrefix string
	paths       Paths
	principals  map[string]bool
	metrics     *metrics.Metrics
	logger      *slog.Logger

	now func() time.Time
}

// New creates an Aggregator from the given configuration.
func New(cfg Config) *Aggregator {
	var principals map[string]bool
	if len(cfg.Principals) > 0 {
		principals = make(map[string]bool, len(cfg.Principals))
		for _, p := range cfg.Principals {
			principals[p] = true
		}
	}
	return &Aggregator{
		store:       cfg.Store,
		tablePrefix: cfg.TablePrefix,
		paths:       cfg.Paths,
		principals:  principals,
		metrics:     cfg.Metrics,
		logger:      logging.Component("snapshot"),
		now:         time.Now,
	}
}

// loadTable reads every parquet partition under the table prefix and
// returns the combined rows, filtered to the configured principals.
func (a *Aggregator) loadTable(ctx context.Context) ([]tables.PlayRow, error) {
	keys, err := a.store.List(ctx, a.tablePrefix)
	if err != nil {
		return nil, fmt.Errorf("listing table prefix %s: %w", a.tablePrefix, err)
	}

	var rows []tables.PlayRow
	for _, key := range keys {
		if !strings.HasSuffix(key, ".parquet") {
			continue
		}
		data, err := a.store.Read(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading partition %s: %w", key, err)
		}
		partRows, err := tables.DecodeParquet(data)
		if err != nil {
			return nil, fmt.Errorf("decoding partition %s: %w", key, err)
		}
		for _, row := range partRows {
			if a.principals != nil && !a.principals[row.UserName] {
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// FilterWindow returns the rows played within the trailing window ending
// now. The cutoff is truncated to day granularity, so a 7-day window
// covers today plus the six preceding calendar days in full.
func FilterWindow(rows []tables.PlayRow, days int, now time.Time) []tables.PlayRow {
	if days <= 0 {
		return rows
	}
	today := now.UTC().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, -days)

	var out []tables.PlayRow
	for _, row := range rows {
		if !row.PlayedAt.Before(cutoff) {
			out = append(out, row)
		}
	}
	return out
}

// Run regenerates every snapshot artifact from the current table contents.
// Artifacts are complete replacements; a failed run leaves the previous
// generation in place for whichever artifacts it did not reach.
func (a *Aggregator) Run(ctx context.Context) error {
	start := a.now()

	rows, err := a.loadTable(ctx)
	if err != nil {
		return err
	}
	// Most recent plays first.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PlayedAt.After(rows[j].PlayedAt)
	})

	now := a.now()
	for _, w := range Windows {
		path := a.paths.forWindow(w.Name)
		if path == "" {
			continue
		}
		windowRows := FilterWindow(rows, w.Days, now)
		if err := a.writeArtifact(ctx, path, windowRows); err != nil {
			return fmt.Errorf("window %s: %w", w.Name, err)
		}
		if a.metrics != nil {
			a.metrics.SnapshotRows.WithLabelValues(w.Name).Set(float64(len(windowRows)))
		}
		a.logger.Info("snapshot written", "window", w.Name, "path", path, "rows", len(windowRows))
	}

	if a.paths.All != "" {
		if err := a.writeArtifact(ctx, a.paths.All, rows); err != nil {
			return fmt.Errorf("full history: %w", err)
		}
		if err := a.writeCompressed(ctx, a.paths.All+".zst", rows); err != nil {
			return fmt.Errorf("full history (compressed): %w", err)
		}
		if a.metrics != nil {
			a.metrics.SnapshotRows.WithLabelValues("all").Set(float64(len(rows)))
		}
		a.logger.Info("snapshot written", "window", "all", "path", a.paths.All, "rows", len(rows))
	}

	if a.metrics != nil {
		a.metrics.SnapshotDuration.Observe(a.now().Sub(start).Seconds())
	}
	return nil
}

func (a *Aggregator) writeArtifact(ctx context.Context, path string, rows []tables.PlayRow) error {
	data, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return a.store.Write(ctx, path, data, "application/json")
}

func (a *Aggregator) writeCompressed(ctx context.Context, path string, rows []tables.PlayRow) error {
	data, err := encodeRows(rows)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finishing zstd stream: %w", err)
	}
	return a.store.Write(ctx, path, buf.Bytes(), "application/zstd")
}

// encodeRows projects rows onto the serving column set and marshals them.
// An empty window still encodes as an empty array, not null.
func encodeRows(rows []tables.PlayRow) ([]byte, error) {
	out := make([]tables.SnapshotRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToSnapshotRow())
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot rows: %w", err)
	}
	return data, nil
}
