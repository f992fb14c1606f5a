// Package spotify wraps the upstream listening-history API: the
// recently-played fetch with its cursor, and the batched artist lookup.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	// DefaultAPIBaseURL is the upstream Web API root.
	DefaultAPIBaseURL = "https://api.spotify.com/v1"

	// maxRecentlyPlayed is the upstream page limit for one fetch.
	maxRecentlyPlayed = 50
)

// ErrNoToken is returned when a client is requested without a credential.
var ErrNoToken = errors.New("no token for principal")

// Client is one principal's authenticated view of the upstream API.
type Client interface {
	// RecentlyPlayedAfter fetches all play events strictly after the
	// given cursor. An empty cursor means beginning of time.
	RecentlyPlayedAfter(ctx context.Context, after string) (*RecentlyPlayed, error)

	// Artists resolves full artist records for the given IDs in a single
	// batched call.
	Artists(ctx context.Context, ids []string) ([]*Artist, error)

	// Token returns the credential currently held by the transport,
	// reflecting any rotation performed during prior calls.
	Token() (*oauth2.Token, error)
}

// Factory builds an authenticated Client for a principal's token.
type Factory func(ctx context.Context, token *oauth2.Token) (Client, error)

// Config holds the application credential and API location.
type Config struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string // defaults to DefaultAPIBaseURL
}

// NewFactory returns a Factory whose clients auto-refresh expired access
// tokens through the oauth2 transport.
func NewFactory(cfg Config) Factory {
	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(spotifyauth.ScopeUserReadRecentlyPlayed),
	)

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}

	return func(ctx context.Context, token *oauth2.Token) (Client, error) {
		if token == nil {
			return nil, ErrNoToken
		}

		httpClient := auth.Client(ctx, token)
		return &client{
			http:    httpClient,
			api:     spotifyapi.New(httpClient, spotifyapi.WithRetry(true)),
			baseURL: baseURL,
		}, nil
	}
}

type client struct {
	http    *http.Client
	api     *spotifyapi.Client
	baseURL string
}

// RecentlyPlayedAfter calls the recently-played endpoint directly so the
// response's cursors stay observable; the typed library drops them.
func (c *client) RecentlyPlayedAfter(ctx context.Context, after string) (*RecentlyPlayed, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(maxRecentlyPlayed))
	if after != "" {
		q.Set("after", after)
	}
	reqURL := fmt.Sprintf("%s/me/player/recently-played?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build recently-played request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recently-played request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("recently-played request: status %d: %s", resp.StatusCode, body)
	}

	var rp RecentlyPlayed
	if err := json.NewDecoder(resp.Body).Decode(&rp); err != nil {
		return nil, fmt.Errorf("decode recently-played response: %w", err)
	}

	return &rp, nil
}

// Artists resolves artist metadata through the typed API client.
func (c *client) Artists(ctx context.Context, ids []string) ([]*Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	apiIDs := make([]spotifyapi.ID, len(ids))
	for i, id := range ids {
		apiIDs[i] = spotifyapi.ID(id)
	}

	artists, err := c.api.GetArtists(ctx, apiIDs...)
	if err != nil {
		return nil, fmt.Errorf("fetch %d artists: %w", len(ids), err)
	}

	return artists, nil
}

// Token extracts the current token from the oauth2 transport.
func (c *client) Token() (*oauth2.Token, error) {
	return c.api.Token()
}
