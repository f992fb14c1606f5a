package spotify

import (
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
)

// Artist is a full artist record from the batched lookup, carrying the
// genre tags and the image list (ordered by descending resolution) that
// the transform joins onto play rows.
type Artist = spotifyapi.FullArtist

// Image is an image descriptor as returned by the upstream API.
type Image = spotifyapi.Image

// RecentlyPlayed is the upstream response for a recently-played fetch.
// Cursors is nil when there is nothing newer than the requested cursor.
type RecentlyPlayed struct {
	Items   []PlayItem `json:"items"`
	Next    string     `json:"next,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	Cursors *Cursors   `json:"cursors"`
}

// Cursors carries the pagination cursors from the upstream response.
// After is the watermark candidate for the next fetch.
type Cursors struct {
	After  string `json:"after"`
	Before string `json:"before,omitempty"`
}

// PlayItem is one play event.
type PlayItem struct {
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}

// Track is the nested track structure of a play event.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	DurationMS int64       `json:"duration_ms"`
	Explicit   bool        `json:"explicit"`
	Popularity int         `json:"popularity"`
	Album      Album       `json:"album"`
	Artists    []ArtistRef `json:"artists"`
}

// Album is the nested album structure of a track. Images are ordered by
// descending resolution, as delivered upstream.
type Album struct {
	Name                 string  `json:"name"`
	ReleaseDate          string  `json:"release_date,omitempty"`
	ReleaseDatePrecision string  `json:"release_date_precision,omitempty"`
	Images               []Image `json:"images"`
}

// ArtistRef is the short artist reference embedded in a track. The
// primary artist is listed first; order is preserved from the source.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PrimaryArtistIDs returns the distinct primary-artist IDs across items,
// in first-seen order, for the batched metadata lookup.
func PrimaryArtistIDs(items []PlayItem) []string {
	seen := make(map[string]bool, len(items))
	var ids []string
	for _, item := range items {
		if len(item.Track.Artists) == 0 {
			continue
		}
		id := item.Track.Artists[0].ID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
