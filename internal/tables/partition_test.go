package tables

import (
	"strings"
	"testing"
	"time"
)

func TestPartitionPaths(t *testing.T) {
	ref := PartitionRef{Principal: "Dan"}

	if got := ref.DirPath("table/"); got != "table/user_name=Dan" {
		t.Errorf("DirPath = %q", got)
	}

	now := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	p1 := ref.NewFilePath("table/", now)
	p2 := ref.NewFilePath("table/", now)

	if !strings.HasPrefix(p1, "table/user_name=Dan/part-") || !strings.HasSuffix(p1, ".parquet") {
		t.Errorf("file path = %q", p1)
	}
	if p1 == p2 {
		t.Error("two appends at the same instant must not collide")
	}
}

func TestPartitionIsolation(t *testing.T) {
	a := PartitionRef{Principal: "Dan"}
	b := PartitionRef{Principal: "Fred"}

	now := time.Now()
	pa := a.NewFilePath("table/", now)
	pb := b.NewFilePath("table/", now)

	if strings.HasPrefix(pa, b.DirPath("table/")+"/") {
		t.Errorf("Dan's file %q is under Fred's partition", pa)
	}
	if strings.HasPrefix(pb, a.DirPath("table/")+"/") {
		t.Errorf("Fred's file %q is under Dan's partition", pb)
	}
}

func TestParquetRoundTrip(t *testing.T) {
	rows, err := ExtractRows(fixtureItems(), fixtureArtists(), "Dan")
	if err != nil {
		t.Fatalf("ExtractRows failed: %v", err)
	}

	data, err := EncodeParquet(rows, DefaultParquetConfig())
	if err != nil {
		t.Fatalf("EncodeParquet failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty parquet payload")
	}

	decoded, err := DecodeParquet(data)
	if err != nil {
		t.Fatalf("DecodeParquet failed: %v", err)
	}
	if len(decoded) != len(rows) {
		t.Fatalf("decoded %d rows, want %d", len(decoded), len(rows))
	}

	if decoded[0].Name != rows[0].Name || decoded[0].UserName != rows[0].UserName {
		t.Errorf("decoded row = %+v", decoded[0])
	}
	if !decoded[0].PlayedAt.Equal(rows[0].PlayedAt) {
		t.Errorf("played_at = %v, want %v", decoded[0].PlayedAt, rows[0].PlayedAt)
	}
}

func TestEncodeParquetRejectsEmpty(t *testing.T) {
	if _, err := EncodeParquet(nil, DefaultParquetConfig()); err == nil {
		t.Fatal("expected error for empty row set")
	}
}

func TestEncodeParquetRejectsUnknownCompression(t *testing.T) {
	rows, _ := ExtractRows(fixtureItems(), nil, "Dan")
	if _, err := EncodeParquet(rows, ParquetConfig{Compression: "lzma"}); err == nil {
		t.Fatal("expected error for unknown compression")
	}
}
