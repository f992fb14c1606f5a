package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging   LoggingConfig
	Storage   StorageConfig
	State     StateConfig
	Spotify   SpotifyConfig
	Paths     PathsConfig
	Server    ServerConfig
	Watcher   WatcherConfig
	Ingest    IngestConfig
	Lineage   LineageConfig
	Principals []Principal
}

type LoggingConfig struct {
	Format string
	Level  string
}

type StorageConfig struct {
	Backend    string // "local" | "gcs" | "s3"
	Bucket     string
	Prefix     string
	LocalDir   string
	S3Endpoint string
	S3Region   string
}

type StateConfig struct {
	Backend     string // "file" | "postgres"
	Dir         string
	PostgresDSN string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
}

// PathsConfig holds the logical object paths used by the pipeline.
type PathsConfig struct {
	LandingPrefix string
	TablePrefix   string
	MarkerPrefix  string
	PastWeek      string
	PastMonth     string
	PastYear      string
	All           string
}

type ServerConfig struct {
	Addr string
}

type WatcherConfig struct {
	PollIntervalSeconds int
}

type IngestConfig struct {
	MaxConcurrentPrincipals int
}

// LineageConfig controls the optional partition bookkeeping sinks.
type LineageConfig struct {
	CatalogDSN   string
	AuditEnabled bool
	AuditPrefix  string
}

// Principal is a configured user identity tracked through the pipeline.
type Principal struct {
	Name   string `yaml:"name"`
	Colour string `yaml:"colour,omitempty"`
}

// PrincipalNames returns the configured principal names in order.
func (c Config) PrincipalNames() []string {
	names := make([]string, len(c.Principals))
	for i, p := range c.Principals {
		names[i] = p.Name
	}
	return names
}

// MustLoad reads configuration from the environment, falling back to
// defaults suitable for local development. The principals list comes from
// a YAML file named by PRINCIPALS_FILE.
func MustLoad() Config {
	maxConcurrent := 1
	if v := os.Getenv("MAX_CONCURRENT_PRINCIPALS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxConcurrent = parsed
		}
	}

	pollInterval := 60
	if v := os.Getenv("WATCH_POLL_INTERVAL_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			pollInterval = parsed
		}
	}

	cfg := Config{
		Logging: LoggingConfig{
			Format: getenvDefault("LOG_FORMAT", "text"),
			Level:  getenvDefault("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Backend:    getenvDefault("STORAGE_BACKEND", "local"),
			Bucket:     os.Getenv("STORAGE_BUCKET"),
			Prefix:     os.Getenv("STORAGE_PREFIX"),
			LocalDir:   getenvDefault("LOCAL_DIR", "./data"),
			S3Endpoint: os.Getenv("S3_ENDPOINT"),
			S3Region:   os.Getenv("S3_REGION"),
		},
		State: StateConfig{
			Backend:     getenvDefault("STATE_BACKEND", "file"),
			Dir:         getenvDefault("STATE_DIR", "./state"),
			PostgresDSN: os.Getenv("STATE_DSN"),
		},
		Spotify: SpotifyConfig{
			ClientID:     os.Getenv("SPOTIFY_ID"),
			ClientSecret: os.Getenv("SPOTIFY_SECRET"),
			APIBaseURL:   getenvDefault("SPOTIFY_API_URL", "https://api.spotify.com/v1"),
		},
		Paths: PathsConfig{
			LandingPrefix: getenvDefault("LANDING_PREFIX", "landing/"),
			TablePrefix:   getenvDefault("TABLE_PREFIX", "table/"),
			MarkerPrefix:  getenvDefault("MARKER_PREFIX", "markers/"),
			PastWeek:      getenvDefault("PAST_WEEK_PATH", "fresh/past_week.json"),
			PastMonth:     getenvDefault("PAST_MONTH_PATH", "fresh/past_month.json"),
			PastYear:      getenvDefault("PAST_YEAR_PATH", "fresh/past_year.json"),
			All:           getenvDefault("FULL_DF_PATH", "fresh/all.json"),
		},
		Server: ServerConfig{
			Addr: getenvDefault("LISTEN_ADDR", ":8080"),
		},
		Watcher: WatcherConfig{
			PollIntervalSeconds: pollInterval,
		},
		Ingest: IngestConfig{
			MaxConcurrentPrincipals: maxConcurrent,
		},
		Lineage: LineageConfig{
			CatalogDSN:   os.Getenv("CATALOG_DSN"),
			AuditEnabled: os.Getenv("AUDIT_ENABLED") == "true",
			AuditPrefix:  getenvDefault("AUDIT_PREFIX", "audit/"),
		},
	}

	if path := os.Getenv("PRINCIPALS_FILE"); path != "" {
		principals, err := LoadPrincipals(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg.Principals = principals
	}

	return cfg
}

// principalsFile is the YAML shape of the principals config file.
type principalsFile struct {
	Principals []Principal `yaml:"principals"`
}

// LoadPrincipals reads the principals list from a YAML file.
func LoadPrincipals(path string) ([]Principal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read principals file %s: %w", path, err)
	}

	var f principalsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse principals file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Principals))
	for _, p := range f.Principals {
		if p.Name == "" {
			return nil, fmt.Errorf("principals file %s: principal with empty name", path)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("principals file %s: duplicate principal %q", path, p.Name)
		}
		seen[p.Name] = true
	}

	return f.Principals, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
