// Package watcher polls the landing area and drives the transformer over
// any landing objects that have not been processed yet.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hotspotlabs/hotspot/internal/logging"
	"github.com/hotspotlabs/hotspot/internal/storage"
	"github.com/hotspotlabs/hotspot/internal/transform"
)

// Config holds the watcher's dependencies.
type Config struct {
	Store         storage.ObjectStore
	Transformer   *transform.Transformer
	LandingPrefix string
	MarkerPrefix  string
	Interval      time.Duration
}

// Watcher scans the landing prefix for objects without a completion marker
// and hands them to the transformer. Markers are written only after a
// successful transform, so a crash mid-batch re-processes the object on the
// next scan (at-least-once).
type Watcher struct {
	store         storage.ObjectStore
	transformer   *transform.Transformer
	landingPrefix string
	markerPrefix  string
	interval      time.Duration
	logger        *slog.Logger

	now func() time.Time
}

// New creates a Watcher from the given configuration.
func New(cfg Config) *Watcher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		store:         cfg.Store,
		transformer:   cfg.Transformer,
		landingPrefix: cfg.LandingPrefix,
		markerPrefix:  cfg.MarkerPrefix,
		interval:      interval,
		logger:        logging.Component("watcher"),
		now:           time.Now,
	}
}

// markerKey maps a landing key to its completion marker key.
func (w *Watcher) markerKey(landingKey string) string {
	rel := strings.TrimPrefix(landingKey, w.landingPrefix)
	return w.markerPrefix + rel + ".done"
}

// RunOnce performs a single scan and returns the number of landing objects
// transformed. A failing object does not stop the scan; its error is joined
// into the return value and the object stays unmarked for the next pass.
func (w *Watcher) RunOnce(ctx context.Context) (int, error) {
	keys, err := w.store.List(ctx, w.landingPrefix)
	if err != nil {
		return 0, fmt.Errorf("listing landing prefix %s: %w", w.landingPrefix, err)
	}

	var (
		processed int
		errs      []error
	)
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		done, err := w.store.Exists(ctx, w.markerKey(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("checking marker for %s: %w", key, err))
			continue
		}
		if done {
			continue
		}

		outKey, err := w.transformer.ProcessObject(ctx, key)
		if err != nil {
			w.logger.Error("transform failed", "key", key, "error", err)
			errs = append(errs, err)
			continue
		}

		marker := []byte(fmt.Sprintf("%s %s\n", w.now().UTC().Format(time.RFC3339), outKey))
		if err := w.store.Write(ctx, w.markerKey(key), marker, "text/plain"); err != nil {
			// The partition is already written; the next pass will redo the
			// object and append a duplicate partition. Acceptable for an
			// append-only table read in aggregate.
			errs = append(errs, fmt.Errorf("writing marker for %s: %w", key, err))
			continue
		}
		processed++
	}

	return processed, errors.Join(errs...)
}

// Run scans immediately and then on every tick until the context is
// cancelled. Scan errors are logged, not fatal.
func (w *Watcher) Run(ctx context.Context) error {
	scan := func() {
		n, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("scan finished with errors", "processed", n, "error", err)
			return
		}
		if n > 0 {
			w.logger.Info("scan complete", "processed", n)
		}
	}

	scan()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			scan()
		}
	}
}
