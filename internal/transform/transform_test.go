package transform

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/hotspotlabs/hotspot/internal/audit"
	"github.com/hotspotlabs/hotspot/internal/catalog"
	"github.com/hotspotlabs/hotspot/internal/ingest"
	"github.com/hotspotlabs/hotspot/internal/spotify"
	"github.com/hotspotlabs/hotspot/internal/storage"
	"github.com/hotspotlabs/hotspot/internal/tables"
)

// memCatalog collects lineage records in memory.
type memCatalog struct {
	records []catalog.Record
}

func (m *memCatalog) RecordPartition(_ context.Context, rec catalog.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memCatalog) PartitionExists(_ context.Context, key string) (bool, error) {
	for _, rec := range m.records {
		if rec.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCatalog) LastPartition(_ context.Context, principal string) (*catalog.Record, error) {
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].Principal == principal {
			return &m.records[i], nil
		}
	}
	return nil, nil
}

func (m *memCatalog) Close() error { return nil }

func testStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return store
}

func landingFixture(t *testing.T, principal string) []byte {
	t.Helper()
	rec := ingest.LandingRecord{
		Principal: principal,
		FetchedAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Items: []spotify.PlayItem{
			{
				Track: spotify.Track{
					ID:         "t1",
					Name:       "Lazarus",
					DurationMS: 382000,
					Album: spotify.Album{
						Name: "Blackstar",
						Images: []spotify.Image{
							{URL: "https://img/large.jpg"},
							{URL: "https://img/medium.jpg"},
						},
					},
					Artists: []spotify.ArtistRef{{ID: "a1", Name: "David Bowie"}},
				},
				PlayedAt: time.Date(2026, 8, 24, 9, 15, 0, 0, time.UTC),
			},
		},
		Cursors: &spotify.Cursors{After: "1756027500000"},
		Artists: []*spotify.Artist{
			{
				SimpleArtist: spotifyapi.SimpleArtist{ID: "a1", Name: "David Bowie"},
				Genres:       []string{"art rock", "glam rock"},
			},
		},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal landing record: %v", err)
	}
	return data
}

func TestProcessObjectWritesPartition(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	key := "landing/Dan/2026/08/29/10-00.json"
	if err := store.Write(ctx, key, landingFixture(t, "Dan"), "application/json"); err != nil {
		t.Fatalf("seed landing object: %v", err)
	}

	tr := New(Config{
		Store:       store,
		TablePrefix: "table/",
		Parquet:     tables.DefaultParquetConfig(),
	})
	tr.now = func() time.Time { return time.Date(2026, 8, 29, 10, 5, 0, 0, time.UTC) }

	outKey, err := tr.ProcessObject(ctx, key)
	if err != nil {
		t.Fatalf("ProcessObject failed: %v", err)
	}
	if !strings.HasPrefix(outKey, "table/user_name=Dan/") || !strings.HasSuffix(outKey, ".parquet") {
		t.Errorf("partition key = %q", outKey)
	}

	encoded, err := store.Read(ctx, outKey)
	if err != nil {
		t.Fatalf("partition not written: %v", err)
	}
	rows, err := tables.DecodeParquet(encoded)
	if err != nil {
		t.Fatalf("decoding partition: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.Name != "Lazarus" || row.ArtistName != "David Bowie" || row.UserName != "Dan" {
		t.Errorf("row = %+v", row)
	}
	if row.Genres != "art rock;glam rock" {
		t.Errorf("genres = %q", row.Genres)
	}
	if row.AlbumImage != "https://img/medium.jpg" {
		t.Errorf("album image = %q", row.AlbumImage)
	}
	if row.Date != "2026-08-24" || row.DayOfWeek != 0 {
		t.Errorf("calendar fields = date %q dayofweek %d", row.Date, row.DayOfWeek)
	}

	sum, err := store.Read(ctx, outKey+".sha256")
	if err != nil {
		t.Fatalf("checksum sidecar not written: %v", err)
	}
	if !tables.VerifyChecksum(encoded, string(sum)) {
		t.Error("checksum sidecar does not match partition bytes")
	}

	// The landing object stays put; the watcher owns completion markers.
	if ok, _ := store.Exists(ctx, key); !ok {
		t.Error("transform must not remove the landing object")
	}
}

func TestProcessObjectRecordsLineage(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	key := "landing/Dan/2026/08/29/10-00.json"
	if err := store.Write(ctx, key, landingFixture(t, "Dan"), "application/json"); err != nil {
		t.Fatalf("seed landing object: %v", err)
	}

	mc := &memCatalog{}
	tr := New(Config{
		Store:           store,
		TablePrefix:     "table/",
		Parquet:         tables.DefaultParquetConfig(),
		Catalog:         mc,
		Audit:           audit.NewEmitter(store, "audit/", audit.ProducerInfo{Name: "hotspot"}),
		ProducerVersion: "test",
	})

	outKey, err := tr.ProcessObject(ctx, key)
	if err != nil {
		t.Fatalf("ProcessObject failed: %v", err)
	}

	if len(mc.records) != 1 {
		t.Fatalf("catalog records = %d, want 1", len(mc.records))
	}
	rec := mc.records[0]
	if rec.Key != outKey || rec.Principal != "Dan" || rec.SourceKey != key || rec.RowCount != 1 {
		t.Errorf("lineage record = %+v", rec)
	}
	sum, err := store.Read(ctx, outKey+".sha256")
	if err != nil {
		t.Fatalf("checksum sidecar: %v", err)
	}
	if rec.Checksum != string(sum) {
		t.Errorf("catalog checksum %q != sidecar %q", rec.Checksum, sum)
	}

	events, err := store.List(ctx, "audit/Dan/")
	if err != nil || len(events) != 1 {
		t.Errorf("audit events = %v (err %v), want one", events, err)
	}
}

func TestProcessObjectMissingLandingObject(t *testing.T) {
	tr := New(Config{Store: testStore(t), TablePrefix: "table/", Parquet: tables.DefaultParquetConfig()})
	if _, err := tr.ProcessObject(context.Background(), "landing/Dan/2026/08/29/10-00.json"); err == nil {
		t.Fatal("expected error for missing landing object")
	}
}

func TestProcessObjectRejectsMalformedJSON(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	key := "landing/Dan/2026/08/29/10-00.json"
	if err := store.Write(ctx, key, []byte("{not json"), "application/json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tr := New(Config{Store: store, TablePrefix: "table/", Parquet: tables.DefaultParquetConfig()})
	if _, err := tr.ProcessObject(ctx, key); err == nil {
		t.Fatal("expected error for malformed landing object")
	}
}

func TestProcessObjectRejectsPrincipalMismatch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// Record claims Fred but lives under Dan's landing path.
	key := "landing/Dan/2026/08/29/10-00.json"
	if err := store.Write(ctx, key, landingFixture(t, "Fred"), "application/json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tr := New(Config{Store: store, TablePrefix: "table/", Parquet: tables.DefaultParquetConfig()})
	if _, err := tr.ProcessObject(ctx, key); err == nil {
		t.Fatal("expected error for principal mismatch")
	}
	keys, _ := store.List(ctx, "table/")
	if len(keys) != 0 {
		t.Errorf("mismatched record produced partitions: %v", keys)
	}
}
