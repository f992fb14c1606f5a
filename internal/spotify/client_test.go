package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const recentlyPlayedFixture = `{
  "items": [
    {
      "track": {
        "id": "t1",
        "name": "Lazarus",
        "duration_ms": 383293,
        "explicit": false,
        "popularity": 55,
        "album": {
          "name": "Blackstar",
          "release_date": "2016-01-08",
          "release_date_precision": "day",
          "images": [
            {"height": 640, "width": 640, "url": "https://img/640"},
            {"height": 300, "width": 300, "url": "https://img/300"},
            {"height": 64, "width": 64, "url": "https://img/64"}
          ]
        },
        "artists": [{"id": "a1", "name": "David Bowie"}]
      },
      "played_at": "2026-08-29T09:15:00.123Z"
    }
  ],
  "limit": 50,
  "cursors": {"after": "1756458900123", "before": "1756458900123"}
}`

func TestRecentlyPlayedAfter(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(recentlyPlayedFixture))
	}))
	defer srv.Close()

	c := &client{http: srv.Client(), baseURL: srv.URL}

	rp, err := c.RecentlyPlayedAfter(context.Background(), "1756455300000")
	if err != nil {
		t.Fatalf("RecentlyPlayedAfter failed: %v", err)
	}

	if gotPath != "/me/player/recently-played" {
		t.Errorf("path = %s", gotPath)
	}
	if gotQuery != "after=1756455300000&limit=50" {
		t.Errorf("query = %s", gotQuery)
	}

	if len(rp.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(rp.Items))
	}
	item := rp.Items[0]
	if item.Track.Name != "Lazarus" || item.Track.DurationMS != 383293 {
		t.Errorf("track = %+v", item.Track)
	}
	if item.Track.Album.Images[1].URL != "https://img/300" {
		t.Errorf("album image[1] = %q", item.Track.Album.Images[1].URL)
	}
	if rp.Cursors == nil || rp.Cursors.After != "1756458900123" {
		t.Errorf("cursors = %+v", rp.Cursors)
	}
}

func TestRecentlyPlayedAfterOmitsEmptyCursor(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"items": [], "cursors": null}`))
	}))
	defer srv.Close()

	c := &client{http: srv.Client(), baseURL: srv.URL}

	rp, err := c.RecentlyPlayedAfter(context.Background(), "")
	if err != nil {
		t.Fatalf("RecentlyPlayedAfter failed: %v", err)
	}

	if gotQuery != "limit=50" {
		t.Errorf("query = %s, want limit only", gotQuery)
	}
	if rp.Cursors != nil {
		t.Errorf("cursors should be nil for empty history, got %+v", rp.Cursors)
	}
	if len(rp.Items) != 0 {
		t.Errorf("items = %d, want 0", len(rp.Items))
	}
}

func TestRecentlyPlayedAfterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":401,"message":"The access token expired"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &client{http: srv.Client(), baseURL: srv.URL}

	if _, err := c.RecentlyPlayedAfter(context.Background(), ""); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestPrimaryArtistIDs(t *testing.T) {
	items := []PlayItem{
		{Track: Track{Artists: []ArtistRef{{ID: "a1", Name: "Bowie"}, {ID: "a9", Name: "Eno"}}}},
		{Track: Track{Artists: []ArtistRef{{ID: "a2", Name: "Prince"}}}},
		{Track: Track{Artists: []ArtistRef{{ID: "a1", Name: "Bowie"}}}},
		{Track: Track{}},
	}

	ids := PrimaryArtistIDs(items)
	if len(ids) != 2 || ids[0] != "a1" || ids[1] != "a2" {
		t.Errorf("PrimaryArtistIDs = %v, want [a1 a2]", ids)
	}
}
