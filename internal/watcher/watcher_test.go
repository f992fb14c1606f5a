package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hotspotlabs/hotspot/internal/ingest"
	"github.com/hotspotlabs/hotspot/internal/spotify"
	"github.com/hotspotlabs/hotspot/internal/storage"
	"github.com/hotspotlabs/hotspot/internal/tables"
	"github.com/hotspotlabs/hotspot/internal/transform"
)

func seedLanding(t *testing.T, store storage.ObjectStore, key, principal string) {
	t.Helper()
	rec := ingest.LandingRecord{
		Principal: principal,
		FetchedAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Items: []spotify.PlayItem{
			{
				Track: spotify.Track{
					ID:      "t1",
					Name:    "Kiss",
					Artists: []spotify.ArtistRef{{ID: "a2", Name: "Prince"}},
				},
				PlayedAt: time.Date(2026, 8, 23, 21, 0, 0, 0, time.UTC),
			},
		},
		Cursors: &spotify.Cursors{After: "1755982800000"},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.Write(context.Background(), key, data, "application/json"); err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

func newWatcher(t *testing.T) (*Watcher, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	tr := transform.New(transform.Config{
		Store:       store,
		TablePrefix: "table/",
		Parquet:     tables.DefaultParquetConfig(),
	})
	w := New(Config{
		Store:         store,
		Transformer:   tr,
		LandingPrefix: "landing/",
		MarkerPrefix:  "markers/",
	})
	return w, store
}

func TestRunOnceTransformsAndMarks(t *testing.T) {
	w, store := newWatcher(t)
	ctx := context.Background()

	key := "landing/Dan/2026/08/29/10-00.json"
	seedLanding(t, store, key, "Dan")

	n, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}

	partitions, _ := store.List(ctx, "table/user_name=Dan/")
	var parquetKeys []string
	for _, k := range partitions {
		if strings.HasSuffix(k, ".parquet") {
			parquetKeys = append(parquetKeys, k)
		}
	}
	if len(parquetKeys) != 1 {
		t.Fatalf("partitions = %v, want one parquet file", partitions)
	}

	marker := "markers/Dan/2026/08/29/10-00.json.done"
	if ok, _ := store.Exists(ctx, marker); !ok {
		t.Errorf("marker %s not written", marker)
	}
}

func TestRunOnceSkipsMarkedObjects(t *testing.T) {
	w, store := newWatcher(t)
	ctx := context.Background()

	key := "landing/Dan/2026/08/29/10-00.json"
	seedLanding(t, store, key, "Dan")

	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	n, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second scan processed %d objects, want 0", n)
	}
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	w, store := newWatcher(t)
	ctx := context.Background()

	bad := "landing/Dan/2026/08/29/10-00.json"
	good := "landing/Fred/2026/08/29/10-00.json"
	if err := store.Write(ctx, bad, []byte("{broken"), "application/json"); err != nil {
		t.Fatalf("seed bad object: %v", err)
	}
	seedLanding(t, store, good, "Fred")

	n, err := w.RunOnce(ctx)
	if err == nil {
		t.Fatal("expected error from the malformed object")
	}
	if n != 1 {
		t.Errorf("processed = %d, want the healthy object transformed", n)
	}

	// The failing object stays unmarked so the next scan retries it.
	if ok, _ := store.Exists(ctx, "markers/Dan/2026/08/29/10-00.json.done"); ok {
		t.Error("failed object must not get a completion marker")
	}
	if ok, _ := store.Exists(ctx, "markers/Fred/2026/08/29/10-00.json.done"); !ok {
		t.Error("healthy object should be marked done")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w, _ := newWatcher(t)
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
