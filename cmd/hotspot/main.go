package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hotspotlabs/hotspot/internal/audit"
	"github.com/hotspotlabs/hotspot/internal/catalog"
	"github.com/hotspotlabs/hotspot/internal/config"
	"github.com/hotspotlabs/hotspot/internal/ingest"
	"github.com/hotspotlabs/hotspot/internal/logging"
	"github.com/hotspotlabs/hotspot/internal/metrics"
	"github.com/hotspotlabs/hotspot/internal/server"
	"github.com/hotspotlabs/hotspot/internal/snapshot"
	"github.com/hotspotlabs/hotspot/internal/spotify"
	"github.com/hotspotlabs/hotspot/internal/state"
	"github.com/hotspotlabs/hotspot/internal/storage"
	"github.com/hotspotlabs/hotspot/internal/tables"
	"github.com/hotspotlabs/hotspot/internal/transform"
	"github.com/hotspotlabs/hotspot/internal/watcher"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	GitSHA  = "unknown"
)

const usage = `usage: hotspot <mode>

modes:
  ingest     fetch each principal's new plays and land them
  transform  process every unmarked landing object once and exit
  watch      poll the landing area and transform continuously
  aggregate  regenerate all snapshot artifacts from the table
  serve      serve the snapshot artifacts over HTTP
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	mode := os.Args[1]

	cfg := config.MustLoad()
	logging.Setup(logging.Config{Format: cfg.Logging.Format, Level: cfg.Logging.Level})
	m := metrics.Init("hotspot")

	slog.Info("hotspot starting", "version", Version, "sha", GitSHA, "mode", mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal", "signal", sig.String())
		cancel()
	}()

	store, err := storage.NewObjectStore(storage.StorageConfig{
		Backend:    cfg.Storage.Backend,
		LocalDir:   cfg.Storage.LocalDir,
		GCSBucket:  cfg.Storage.Bucket,
		S3Bucket:   cfg.Storage.Bucket,
		S3Endpoint: cfg.Storage.S3Endpoint,
		S3Region:   cfg.Storage.S3Region,
		Prefix:     cfg.Storage.Prefix,
	})
	if err != nil {
		slog.Error("failed to create storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	paths := snapshot.Paths{
		PastWeek:  cfg.Paths.PastWeek,
		PastMonth: cfg.Paths.PastMonth,
		PastYear:  cfg.Paths.PastYear,
		All:       cfg.Paths.All,
	}

	switch mode {
	case "ingest":
		err = runIngest(ctx, cfg, store, m)
	case "transform":
		_, err = newWatcher(cfg, store, m).RunOnce(ctx)
	case "watch":
		err = newWatcher(cfg, store, m).Run(ctx)
	case "aggregate":
		err = snapshot.New(snapshot.Config{
			Store:       store,
			TablePrefix: cfg.Paths.TablePrefix,
			Paths:       paths,
			Principals:  cfg.PrincipalNames(),
			Metrics:     m,
		}).Run(ctx)
	case "serve":
		err = server.New(server.Config{
			Addr:  cfg.Server.Addr,
			Store: store,
			Paths: paths,
		}).ListenAndServe(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil && ctx.Err() == nil {
		slog.Error("run failed", "mode", mode, "error", err)
		os.Exit(1)
	}
	slog.Info("stopped cleanly", "mode", mode)
	time.Sleep(100 * time.Millisecond)
}

func runIngest(ctx context.Context, cfg config.Config, store storage.ObjectStore, m *metrics.Metrics) error {
	stateStore, err := state.NewStore(state.Config{
		Backend:     cfg.State.Backend,
		Dir:         cfg.State.Dir,
		PostgresDSN: cfg.State.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("creating state store: %w", err)
	}
	defer stateStore.Close()

	ing := ingest.New(ingest.Config{
		Tokens: state.NewTokenCache(stateStore),
		Marks:  state.NewWatermarkStore(stateStore),
		Store:  store,
		Factory: spotify.NewFactory(spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			APIBaseURL:   cfg.Spotify.APIBaseURL,
		}),
		Principals:    cfg.PrincipalNames(),
		LandingPrefix: cfg.Paths.LandingPrefix,
		MaxConcurrent: cfg.Ingest.MaxConcurrentPrincipals,
		Metrics:       m,
	})
	return ing.Run(ctx)
}

func newWatcher(cfg config.Config, store storage.ObjectStore, m *metrics.Metrics) *watcher.Watcher {
	// Lineage sinks are optional; a missing catalog degrades to logging.
	var cat catalog.Catalog
	if cfg.Lineage.CatalogDSN != "" {
		pgCat, err := catalog.NewPostgresCatalog(cfg.Lineage.CatalogDSN)
		if err != nil {
			slog.Error("partition catalog unavailable, continuing without", "error", err)
		} else {
			cat = pgCat
		}
	}
	var emitter *audit.Emitter
	if cfg.Lineage.AuditEnabled {
		emitter = audit.NewEmitter(store, cfg.Lineage.AuditPrefix, audit.ProducerInfo{
			Name:    "hotspot",
			Version: Version,
			GitSHA:  GitSHA,
		})
	}

	tr := transform.New(transform.Config{
		Store:           store,
		LandingPrefix:   cfg.Paths.LandingPrefix,
		TablePrefix:     cfg.Paths.TablePrefix,
		Parquet:         tables.DefaultParquetConfig(),
		Metrics:         m,
		Catalog:         cat,
		Audit:           emitter,
		ProducerVersion: Version,
	})
	return watcher.New(watcher.Config{
		Store:         store,
		Transformer:   tr,
		LandingPrefix: cfg.Paths.LandingPrefix,
		MarkerPrefix:  cfg.Paths.MarkerPrefix,
		Interval:      time.Duration(cfg.Watcher.PollIntervalSeconds) * time.Second,
	})
}
