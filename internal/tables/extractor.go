package tables

import (
	"fmt"
	"strings"

	"github.com/hotspotlabs/hotspot/internal/spotify"
)

// albumImageIndex selects the representative image from the upstream's
// size-descending image list. Index 1 balances thumbnail size against
// quality.
const albumImageIndex = 1

// ExtractRows flattens a landing batch into plays-table rows. The
// artist slice comes from the batched lookup carried alongside the
// items; rows whose primary artist is missing from it keep empty genre
// and artist-image columns so downstream type inference stays stable.
func ExtractRows(items []spotify.PlayItem, artists []*spotify.Artist, principal string) ([]PlayRow, error) {
	if principal == "" {
		return nil, fmt.Errorf("extract rows: empty principal")
	}

	byID := make(map[string]*spotify.Artist, len(artists))
	for _, a := range artists {
		if a != nil {
			byID[string(a.ID)] = a
		}
	}

	rows := make([]PlayRow, 0, len(items))
	for i, item := range items {
		if item.PlayedAt.IsZero() {
			return nil, fmt.Errorf("extract rows: item %d has no played_at", i)
		}

		row := PlayRow{
			TrackID:                   item.Track.ID,
			Name:                      item.Track.Name,
			DurationMS:                item.Track.DurationMS,
			Explicit:                  item.Track.Explicit,
			Popularity:                int32(item.Track.Popularity),
			AlbumName:                 item.Track.Album.Name,
			AlbumImage:                pickImage(item.Track.Album.Images),
			AlbumReleaseDate:          item.Track.Album.ReleaseDate,
			AlbumReleaseDatePrecision: item.Track.Album.ReleaseDatePrecision,
			UserName:                  principal,
		}

		if len(item.Track.Artists) > 0 {
			primary := item.Track.Artists[0]
			row.ArtistName = primary.Name
			if a, ok := byID[primary.ID]; ok {
				row.Genres = strings.Join(a.Genres, ";")
				row.ArtistImage = pickImage(a.Images)
			}
		}

		setCalendarFields(&row, item)
		rows = append(rows, row)
	}

	return rows, nil
}

// pickImage applies the fixed representative-image policy, degrading to
// whatever is available when the list is short.
func pickImage(images []spotify.Image) string {
	switch {
	case len(images) > albumImageIndex:
		return images[albumImageIndex].URL
	case len(images) > 0:
		return images[len(images)-1].URL
	default:
		return ""
	}
}

func setCalendarFields(row *PlayRow, item spotify.PlayItem) {
	playedAt := item.PlayedAt.UTC()
	row.PlayedAt = playedAt
	row.Year = int32(playedAt.Year())
	row.Month = int32(playedAt.Month())
	row.Day = int32(playedAt.Day())
	row.Hour = int32(playedAt.Hour())
	row.Date = playedAt.Format("2006-01-02")
	// Monday=0, locale-independent
	row.DayOfWeek = int32((int(playedAt.Weekday()) + 6) % 7)
}
