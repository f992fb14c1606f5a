package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/hotspotlabs/hotspot/internal/spotify"
)

// LandingRecord is one raw fetch result: the upstream batch plus the
// batched artist enrichment, exactly as fetched. Immutable once written.
type LandingRecord struct {
	Principal string            `json:"principal"`
	FetchedAt time.Time         `json:"fetched_at"`
	Items     []spotify.PlayItem `json:"items"`
	Cursors   *spotify.Cursors  `json:"cursors,omitempty"`
	Artists   []*spotify.Artist `json:"artists,omitempty"`
}

// LandingKey builds the landing object key for a fetch:
// {prefix}{principal}/{year}/{month}/{day}/{hour}-{minute}.json
// Hour-minute granularity keeps keys collision-free across runs.
func LandingKey(prefix, principal string, now time.Time) string {
	return fmt.Sprintf("%s%s/%s.json", prefix, principal, now.UTC().Format("2006/01/02/15-04"))
}

// PrincipalFromKey extracts the principal from a landing key. The
// principal is the path segment after the landing prefix.
func PrincipalFromKey(key string) (string, error) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("malformed landing key %q", key)
	}
	return parts[1], nil
}
