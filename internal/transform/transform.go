// Package transform converts landing records into columnar partitions of
// the plays table.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hotspotlabs/hotspot/internal/audit"
	"github.com/hotspotlabs/hotspot/internal/catalog"
	"github.com/hotspotlabs/hotspot/internal/ingest"
	"github.com/hotspotlabs/hotspot/internal/logging"
	"github.com/hotspotlabs/hotspot/internal/metrics"
	"github.com/hotspotlabs/hotspot/internal/storage"
	"github.com/hotspotlabs/hotspot/internal/tables"
)

// Config holds the transformer's dependencies.
type Config struct {
	Store         storage.ObjectStore
	LandingPrefix string
	TablePrefix   string
	Parquet       tables.ParquetConfig
	Metrics       *metrics.Metrics

	// Optional lineage sinks. When nil the transform still commits; only
	// the bookkeeping is skipped.
	Catalog catalog.Catalog
	Audit   *audit.Emitter

	ProducerVersion string
}

// Transformer reads landing records and appends their plays to the
// partitioned table as parquet files.
type Transformer struct {
	store         storage.ObjectStore
	landingPrefix string
	tablePrefix   string
	parquet       tables.ParquetConfig
	metrics       *metrics.Metrics
	catalog       catalog.Catalog
	audit         *audit.Emitter
	version       string
	logger        *slog.Logger

	now func() time.Time
}

// New creates a Transformer from the given configuration.
func New(cfg Config) *Transformer {
	return &Transformer{
		store:         cfg.Store,
		landingPrefix: cfg.LandingPrefix,
		tablePrefix:   cfg.TablePrefix,
		parquet:       cfg.Parquet,
		metrics:       cfg.Metrics,
		catalog:       cfg.Catalog,
		audit:         cfg.Audit,
		version:       cfg.ProducerVersion,
		logger:        logging.Component("transform"),
		now:           time.Now,
	}
}

// ProcessObject transforms a single landing object into a new parquet
// partition file and returns the key it was written to. The landing object
// is left in place; callers track completion separately.
func (t *Transformer) ProcessObject(ctx context.Context, key string) (string, error) {
	principal, err := ingest.PrincipalFromKey(key)
	if err != nil {
		return "", fmt.Errorf("resolving principal for %s: %w", key, err)
	}

	data, err := t.store.Read(ctx, key)
	if err != nil {
		t.countFailure(principal)
		return "", fmt.Errorf("reading landing object %s: %w", key, err)
	}

	var rec ingest.LandingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.countFailure(principal)
		return "", fmt.Errorf("parsing landing object %s: %w", key, err)
	}
	if rec.Principal != principal {
		t.countFailure(principal)
		return "", fmt.Errorf("landing object %s claims principal %q, key says %q",
			key, rec.Principal, principal)
	}

	rows, err := tables.ExtractRows(rec.Items, rec.Artists, rec.Principal)
	if err != nil {
		t.countFailure(principal)
		return "", fmt.Errorf("extracting rows from %s: %w", key, err)
	}

	result := tables.ValidateRows(rows, rec.Principal, len(rec.Items))
	for _, w := range result.Warnings {
		t.logger.Warn("validation warning", "key", key, "warning", w)
	}
	if !result.Passed {
		t.countFailure(principal)
		return "", fmt.Errorf("validation failed for %s: %v", key, result.Errors)
	}

	encoded, err := tables.EncodeParquet(rows, t.parquet)
	if err != nil {
		t.countFailure(principal)
		return "", fmt.Errorf("encoding parquet for %s: %w", key, err)
	}
	checksum := tables.ComputeChecksum(encoded)

	ref := tables.PartitionRef{Principal: rec.Principal}
	outKey := ref.NewFilePath(t.tablePrefix, t.now())
	if err := t.store.Write(ctx, outKey, encoded, "application/octet-stream"); err != nil {
		t.countFailure(principal)
		return "", fmt.Errorf("writing partition %s: %w", outKey, err)
	}
	if err := t.store.Write(ctx, outKey+".sha256", []byte(checksum), "text/plain"); err != nil {
		return "", fmt.Errorf("writing checksum for %s: %w", outKey, err)
	}

	// Lineage is best effort: a catalog or audit outage must not block the
	// table from filling in.
	if t.catalog != nil {
		lineage := catalog.Record{
			Principal:       rec.Principal,
			Key:             outKey,
			SourceKey:       key,
			RowCount:        result.RowCount,
			ByteSize:        int64(len(encoded)),
			Checksum:        checksum,
			ProducerVersion: t.version,
		}
		if err := t.catalog.RecordPartition(ctx, lineage); err != nil {
			t.logger.Error("catalog record failed", "partition", outKey, "error", err)
		}
	}
	if t.audit != nil {
		part := audit.PartitionInfo{
			Principal: rec.Principal,
			Key:       outKey,
			SourceKey: key,
			RowCount:  result.RowCount,
			ByteSize:  int64(len(encoded)),
			Checksum:  checksum,
		}
		if err := t.audit.EmitPartition(ctx, part); err != nil {
			t.logger.Error("audit emit failed", "partition", outKey, "error", err)
		}
	}

	if t.metrics != nil {
		t.metrics.ObjectsTransformed.WithLabelValues(principal).Inc()
		t.metrics.RowsAppended.WithLabelValues(principal).Add(float64(len(rows)))
	}
	t.logger.Info("transformed landing object",
		"key", key,
		"partition", outKey,
		"rows", len(rows),
		"checksum", checksum)
	return outKey, nil
}

func (t *Transformer) countFailure(principal string) {
	if t.metrics != nil {
		t.metrics.TransformFailures.WithLabelValues(principal).Inc()
	}
}
