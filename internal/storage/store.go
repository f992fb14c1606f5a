package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore abstracts the bucket holding landing records, table files
// and snapshot artifacts. Every component in the pipeline reads and
// writes through this interface.
type ObjectStore interface {
	// Write stores an object at the given key, overwriting any existing
	// object at the same key.
	Write(ctx context.Context, key string, data []byte, contentType string) error

	// Read returns the full contents of the object at key.
	// Returns ErrNotFound if the object does not exist.
	Read(ctx context.Context, key string) ([]byte, error)

	// Exists checks whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all object keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, GCS: gs://bucket/path, S3: s3://bucket/path
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// StorageConfig configures the storage backend.
type StorageConfig struct {
	Backend string // "local" | "gcs" | "s3"

	// Local filesystem
	LocalDir string

	// GCS
	GCSBucket string

	// S3 (also works for B2, R2, MinIO)
	S3Bucket   string
	S3Endpoint string // custom endpoint for B2/MinIO/R2
	S3Region   string

	// Common path prefix within bucket or local dir
	Prefix string
}

// NewObjectStore creates a storage backend based on configuration.
func NewObjectStore(cfg StorageConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("LocalDir required for local backend")
		}
		return NewLocalStore(cfg.LocalDir, cfg.Prefix)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCSBucket required for gcs backend")
		}
		return NewGCSStore(cfg.GCSBucket, cfg.Prefix)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3Bucket required for s3 backend")
		}
		return NewS3Store(cfg.S3Bucket, cfg.Prefix, cfg.S3Endpoint, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
