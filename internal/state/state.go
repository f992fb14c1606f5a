// Package state provides the per-principal keyed stores backing the
// token cache and the ingest watermarks.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ErrNotFound is returned when no value exists for a key.
var ErrNotFound = errors.New("no state entry found")

// Store is a simple keyed store. Each principal's ingestion run touches
// only its own keys, so no cross-key guarantee is needed.
type Store interface {
	// Get reads the value for a key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put persists the value for a key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases any resources.
	Close() error
}

// Config configures the state backend.
type Config struct {
	Backend     string // "file" | "postgres"
	Dir         string // directory for the file backend
	PostgresDSN string
}

// NewStore creates a state store based on configuration.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("Dir required for file backend")
		}
		return NewFileStore(cfg.Dir)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("PostgresDSN required for postgres backend")
		}
		return NewPostgresStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown state backend: %s", cfg.Backend)
	}
}

// TokenRecord is one principal's current OAuth credential plus when the
// pipeline last stored it.
type TokenRecord struct {
	Token     oauth2.Token `json:"token"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TokenCache stores the latest OAuth token pair per principal.
type TokenCache struct {
	store Store
}

// NewTokenCache creates a TokenCache over the given store.
func NewTokenCache(store Store) *TokenCache {
	return &TokenCache{store: store}
}

func tokenKey(principal string) string {
	return "token/" + principal
}

// Get returns the stored token for a principal.
// Returns ErrNotFound if the principal has never authorized.
func (c *TokenCache) Get(ctx context.Context, principal string) (*oauth2.Token, error) {
	data, err := c.store.Get(ctx, tokenKey(principal))
	if err != nil {
		return nil, err
	}

	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse token record for %s: %w", principal, err)
	}

	return &rec.Token, nil
}

// Put stores the token for a principal.
func (c *TokenCache) Put(ctx context.Context, principal string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("cannot store nil token")
	}

	rec := TokenRecord{
		Token:     *token,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token record for %s: %w", principal, err)
	}

	return c.store.Put(ctx, tokenKey(principal), data)
}

// watermarkRecord is the stored watermark shape.
type watermarkRecord struct {
	Principal string    `json:"principal"`
	Cursor    string    `json:"cursor"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatermarkStore stores the last successfully ingested cursor per
// principal. The cursor is an opaque value supplied by the upstream API,
// never generated locally.
type WatermarkStore struct {
	store Store
}

// NewWatermarkStore creates a WatermarkStore over the given store.
func NewWatermarkStore(store Store) *WatermarkStore {
	return &WatermarkStore{store: store}
}

func watermarkKey(principal string) string {
	return "watermark/" + principal
}

// Get returns the stored cursor for a principal.
// Returns ErrNotFound if no ingest has completed yet.
func (s *WatermarkStore) Get(ctx context.Context, principal string) (string, error) {
	data, err := s.store.Get(ctx, watermarkKey(principal))
	if err != nil {
		return "", err
	}

	var rec watermarkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("parse watermark record for %s: %w", principal, err)
	}

	return rec.Cursor, nil
}

// Put stores the cursor for a principal.
func (s *WatermarkStore) Put(ctx context.Context, principal, cursor string) error {
	rec := watermarkRecord{
		Principal: principal,
		Cursor:    cursor,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal watermark record for %s: %w", principal, err)
	}

	return s.store.Put(ctx, watermarkKey(principal), data)
}
