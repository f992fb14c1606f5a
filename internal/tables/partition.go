package tables

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// PartitionRef describes one principal's partition of the plays table.
// The layout is hive-style so SQL-on-object-storage engines can prune
// partitions by principal.
type PartitionRef struct {
	Principal string
}

// DirPath returns the partition directory for this principal.
func (r PartitionRef) DirPath(prefix string) string {
	return fmt.Sprintf("%suser_name=%s", prefix, r.Principal)
}

// NewFilePath returns a fresh, collision-free parquet file path inside
// the partition. Appends always create new files; existing files are
// never rewritten.
func (r PartitionRef) NewFilePath(prefix string, now time.Time) string {
	return fmt.Sprintf("%s/part-%d-%s.parquet",
		r.DirPath(prefix), now.UTC().UnixMilli(), uuid.NewString()[:8])
}

// EncodeParquet serializes rows into a parquet file payload.
func EncodeParquet(rows []PlayRow, cfg ParquetConfig) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("encode parquet: no rows")
	}

	var opts []parquet.WriterOption
	switch cfg.Compression {
	case "", "snappy":
		opts = append(opts, parquet.Compression(&parquet.Snappy))
	case "zstd":
		opts = append(opts, parquet.Compression(&parquet.Zstd))
	case "none":
		opts = append(opts, parquet.Compression(&parquet.Uncompressed))
	default:
		return nil, fmt.Errorf("encode parquet: unknown compression %q", cfg.Compression)
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[PlayRow](&buf, opts...)

	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeParquet reads all rows from a parquet file payload.
func DecodeParquet(data []byte) ([]PlayRow, error) {
	rows, err := parquet.Read[PlayRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	return rows, nil
}
