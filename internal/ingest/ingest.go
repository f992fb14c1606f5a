// Package ingest advances each principal from its last watermark to the
// newest upstream cursor, landing raw batches in the object store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hotspotlabs/hotspot/internal/logging"
	"github.com/hotspotlabs/hotspot/internal/metrics"
	"github.com/hotspotlabs/hotspot/internal/spotify"
	"github.com/hotspotlabs/hotspot/internal/state"
	"github.com/hotspotlabs/hotspot/internal/storage"
)

// Config wires an Ingestor's collaborators.
type Config struct {
	Tokens        *state.TokenCache
	Marks         *state.WatermarkStore
	Store         storage.ObjectStore
	Factory       spotify.Factory
	Principals    []string
	LandingPrefix string
	MaxConcurrent int
	Metrics       *metrics.Metrics
}

// Ingestor runs the per-principal watermark protocol.
type Ingestor struct {
	tokens        *state.TokenCache
	marks         *state.WatermarkStore
	store         storage.ObjectStore
	factory       spotify.Factory
	principals    []string
	landingPrefix string
	maxConcurrent int
	metrics       *metrics.Metrics
	log           *slog.Logger
	now           func() time.Time
}

// New creates an Ingestor.
func New(cfg Config) *Ingestor {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Ingestor{
		tokens:        cfg.Tokens,
		marks:         cfg.Marks,
		store:         cfg.Store,
		factory:       cfg.Factory,
		principals:    cfg.Principals,
		landingPrefix: cfg.LandingPrefix,
		maxConcurrent: maxConcurrent,
		metrics:       cfg.Metrics,
		log:           logging.Component("ingest"),
		now:           time.Now,
	}
}

// Run executes one ingest pass over all configured principals. Failure
// of one principal never aborts the others; per-principal errors are
// collected and returned joined after every principal has been tried.
func (ing *Ingestor) Run(ctx context.Context) error {
	runID := logging.GenerateRunID()
	ctx = logging.WithRunID(ctx, runID)

	ing.log.Info("starting ingest run",
		"run_id", runID,
		"principals", len(ing.principals),
		"max_concurrent", ing.maxConcurrent,
	)

	sem := make(chan struct{}, ing.maxConcurrent)
	errs := make([]error, len(ing.principals))
	var wg sync.WaitGroup

	for i, principal := range ing.principals {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		wg.Add(1)
		go func(i int, principal string) {
			defer wg.Done()
			defer func() { <-sem }()

			start := ing.now()
			err := ing.RunPrincipal(ctx, principal)
			if err != nil {
				errs[i] = fmt.Errorf("principal %s: %w", principal, err)
				if ing.metrics != nil {
					ing.metrics.PrincipalsFailed.WithLabelValues(principal).Inc()
				}
				logging.PrincipalLogger(runID, principal).Error("ingest failed", "error", err)
				return
			}
			if ing.metrics != nil {
				ing.metrics.PrincipalsProcessed.WithLabelValues(principal).Inc()
				ing.metrics.IngestDuration.WithLabelValues(principal).
					Observe(ing.now().Sub(start).Seconds())
			}
		}(i, principal)
	}

	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("ingest run %s: %w", runID, err)
	}

	ing.log.Info("ingest run complete", "run_id", runID)
	return nil
}

// RunPrincipal advances one principal. A principal with no stored token
// is skipped silently: it has not completed authorization out-of-band.
// An up-to-date watermark is an idempotent no-op. The landing write must
// succeed before the watermark advances, so a crash in between leaves
// the watermark unchanged and the batch is re-fetched next run.
func (ing *Ingestor) RunPrincipal(ctx context.Context, principal string) error {
	log := logging.PrincipalLogger(logging.RunID(ctx), principal)

	token, err := ing.tokens.Get(ctx, principal)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			log.Info("no credential configured, skipping")
			if ing.metrics != nil {
				ing.metrics.PrincipalsSkipped.WithLabelValues(principal).Inc()
			}
			return nil
		}
		return fmt.Errorf("load token: %w", err)
	}

	watermark, err := ing.marks.Get(ctx, principal)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("load watermark: %w", err)
	}

	client, err := ing.factory(ctx, token)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	rp, err := client.RecentlyPlayedAfter(ctx, watermark)
	if err != nil {
		if ing.metrics != nil {
			ing.metrics.UpstreamErrors.WithLabelValues(principal).Inc()
		}
		return fmt.Errorf("fetch recently played: %w", err)
	}

	if rp.Cursors == nil || len(rp.Items) == 0 {
		log.Info("no new tracks")
		return nil
	}

	log.Info("found new tracks", "count", len(rp.Items))

	artistIDs := spotify.PrimaryArtistIDs(rp.Items)
	var artists []*spotify.Artist
	if len(artistIDs) > 0 {
		artists, err = client.Artists(ctx, artistIDs)
		if err != nil {
			if ing.metrics != nil {
				ing.metrics.UpstreamErrors.WithLabelValues(principal).Inc()
			}
			return fmt.Errorf("fetch artist metadata: %w", err)
		}
	}

	rec := LandingRecord{
		Principal: principal,
		FetchedAt: ing.now().UTC(),
		Items:     rp.Items,
		Cursors:   rp.Cursors,
		Artists:   artists,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal landing record: %w", err)
	}

	key := LandingKey(ing.landingPrefix, principal, rec.FetchedAt)
	if err := ing.store.Write(ctx, key, payload, "application/json"); err != nil {
		if ing.metrics != nil {
			ing.metrics.StoreErrors.WithLabelValues("landing_write").Inc()
		}
		return fmt.Errorf("write landing record %s: %w", key, err)
	}
	log.Info("landed batch", "key", key, "items", len(rp.Items))
	if ing.metrics != nil {
		ing.metrics.LandingWrites.WithLabelValues(principal).Inc()
		ing.metrics.EventsIngested.WithLabelValues(principal).Add(float64(len(rp.Items)))
	}

	if rp.Cursors.After != watermark {
		if err := ing.marks.Put(ctx, principal, rp.Cursors.After); err != nil {
			return fmt.Errorf("advance watermark: %w", err)
		}
		log.Info("advanced watermark", "cursor", rp.Cursors.After)
	}

	newToken, err := client.Token()
	if err != nil {
		log.Warn("could not read current token", "error", err)
		return nil
	}
	if newToken != nil && newToken.AccessToken != token.AccessToken {
		if err := ing.tokens.Put(ctx, principal, newToken); err != nil {
			return fmt.Errorf("store rotated token: %w", err)
		}
		log.Info("stored rotated token")
	}

	return nil
}
