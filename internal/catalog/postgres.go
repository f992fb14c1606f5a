package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresCatalog implements Catalog using PostgreSQL.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog connects to the catalog database and ensures the
// schema exists.
func NewPostgresCatalog(dsn string) (*PostgresCatalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	slog.Info("connected to partition catalog", "component", "catalog")
	return &PostgresCatalog{pool: pool}, nil
}

// RecordPartition upserts the lineage entry for a partition key.
func (c *PostgresCatalog) RecordPartition(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO plays_partitions (
			key, principal, source_key, row_count, byte_size,
			checksum, producer_version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key)
		DO UPDATE SET
			row_count = EXCLUDED.row_count,
			byte_size = EXCLUDED.byte_size,
			checksum = EXCLUDED.checksum,
			created_at = NOW()
	`

	_, err := c.pool.Exec(ctx, query,
		rec.Key,
		rec.Principal,
		rec.SourceKey,
		rec.RowCount,
		rec.ByteSize,
		rec.Checksum,
		rec.ProducerVersion,
	)
	if err != nil {
		return fmt.Errorf("record partition: %w", err)
	}
	return nil
}

// PartitionExists reports whether a partition key has been recorded.
func (c *PostgresCatalog) PartitionExists(ctx context.Context, key string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM plays_partitions WHERE key = $1)`

	var exists bool
	if err := c.pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check partition exists: %w", err)
	}
	return exists, nil
}

// LastPartition returns the most recently created record for a principal.
func (c *PostgresCatalog) LastPartition(ctx context.Context, principal string) (*Record, error) {
	query := `
		SELECT key, principal, source_key, row_count, byte_size,
		       checksum, producer_version, created_at
		FROM plays_partitions
		WHERE principal = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var rec Record
	err := c.pool.QueryRow(ctx, query, principal).Scan(
		&rec.Key, &rec.Principal, &rec.SourceKey, &rec.RowCount,
		&rec.ByteSize, &rec.Checksum, &rec.ProducerVersion, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last partition: %w", err)
	}
	return &rec, nil
}

// Close releases database connections.
func (c *PostgresCatalog) Close() error {
	c.pool.Close()
	return nil
}
