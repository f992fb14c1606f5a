package snapshot

import (
	"sort"
	"strings"
	"time"

	"github.com/hotspotlabs/hotspot/internal/tables"
)

// FilterRows is the one query shape every aggregation builds on: restrict
// rows to a principal set and a trailing window. An empty principal set
// means all principals; days <= 0 means all time.
func FilterRows(rows []tables.SnapshotRow, principals []string, days int, now time.Time) []tables.SnapshotRow {
	var members map[string]bool
	if len(principals) > 0 {
		members = make(map[string]bool, len(principals))
		for _, p := range principals {
			members[p] = true
		}
	}

	var cutoff time.Time
	if days > 0 {
		cutoff = now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)
	}

	var out []tables.SnapshotRow
	for _, row := range rows {
		if members != nil && !members[row.UserName] {
			continue
		}
		if days > 0 && row.PlayedAt.Before(cutoff) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// RankedCount is one entry in a most-played ranking.
type RankedCount struct {
	Key   string `json:"key"`
	Plays int    `json:"plays"`
}

// DayCount is the number of plays on one calendar day.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Plays int    `json:"plays"`
}

func rank(counts map[string]int, limit int) []RankedCount {
	out := make([]RankedCount, 0, len(counts))
	for key, plays := range counts {
		out = append(out, RankedCount{Key: key, Plays: plays})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plays != out[j].Plays {
			return out[i].Plays > out[j].Plays
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopArtists ranks artists by play count. Play counts are raw: repeated
// listens of the same track all count.
func TopArtists(rows []tables.SnapshotRow, limit int) []RankedCount {
	counts := make(map[string]int)
	for _, row := range rows {
		if row.ArtistName == "" {
			continue
		}
		counts[row.ArtistName]++
	}
	return rank(counts, limit)
}

// TopTracks ranks tracks by play count, keyed as "track — artist" so that
// identically named tracks by different artists stay distinct.
func TopTracks(rows []tables.SnapshotRow, limit int) []RankedCount {
	counts := make(map[string]int)
	for _, row := range rows {
		key := row.Name
		if row.ArtistName != "" {
			key = row.Name + " - " + row.ArtistName
		}
		counts[key]++
	}
	return rank(counts, limit)
}

// TopAlbums ranks albums by play count.
func TopAlbums(rows []tables.SnapshotRow, limit int) []RankedCount {
	counts := make(map[string]int)
	for _, row := range rows {
		if row.AlbumName == "" {
			continue
		}
		key := row.AlbumName
		if row.ArtistName != "" {
			key = row.AlbumName + " - " + row.ArtistName
		}
		counts[key]++
	}
	return rank(counts, limit)
}

// TopGenres ranks genre tags by play count, splitting each row's joined
// tag list.
func TopGenres(rows []tables.SnapshotRow, limit int) []RankedCount {
	counts := make(map[string]int)
	for _, row := range rows {
		if row.Genres == "" {
			continue
		}
		for _, genre := range strings.Split(row.Genres, ";") {
			if genre == "" {
				continue
			}
			counts[genre]++
		}
	}
	return rank(counts, limit)
}

// ListensPerDay counts plays per calendar day, ordered by date.
func ListensPerDay(rows []tables.SnapshotRow) []DayCount {
	counts := make(map[string]int)
	for _, row := range rows {
		if row.Date == "" {
			continue
		}
		counts[row.Date]++
	}

	out := make([]DayCount, 0, len(counts))
	for date, plays := range counts {
		out = append(out, DayCount{Date: date, Plays: plays})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
