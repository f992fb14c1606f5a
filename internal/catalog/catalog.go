// Package catalog records committed plays-table partitions in a
// PostgreSQL lineage table.
package catalog

import (
	"context"
	"time"
)

// Record is one committed partition of the plays table.
type Record struct {
	Principal       string
	Key             string // object key of the parquet file
	SourceKey       string // landing object the partition came from
	RowCount        int64
	ByteSize        int64
	Checksum        string
	ProducerVersion string
	CreatedAt       time.Time
}

// Catalog persists partition lineage. Implementations must be safe for
// concurrent use.
type Catalog interface {
	// RecordPartition upserts the lineage entry for a partition key.
	RecordPartition(ctx context.Context, rec Record) error

	// PartitionExists reports whether a partition key has been recorded.
	PartitionExists(ctx context.Context, key string) (bool, error)

	// LastPartition returns the most recently created record for a
	// principal, or nil when the principal has no partitions yet.
	LastPartition(ctx context.Context, principal string) (*Record, error)

	// Close releases database connections.
	Close() error
}
