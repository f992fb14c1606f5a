package tables

import (
	"time"
)

// PlayRow represents a single row in the partitioned plays table: one
// played track, flattened from the nested upstream payload.
type PlayRow struct {
	// Track identity and display fields
	TrackID    string `parquet:"id" json:"id"`
	Name       string `parquet:"name" json:"name"`
	DurationMS int64  `parquet:"duration_ms" json:"duration_ms"`
	Explicit   bool   `parquet:"explicit" json:"explicit"`
	Popularity int32  `parquet:"popularity" json:"popularity"`

	// Album fields promoted from the nested structure
	AlbumName                 string `parquet:"album_name" json:"album_name"`
	AlbumImage                string `parquet:"album_image" json:"album_image"`
	AlbumReleaseDate          string `parquet:"album_release_date" json:"album_release_date"`
	AlbumReleaseDatePrecision string `parquet:"album_release_date_precision" json:"album_release_date_precision"`

	// Primary artist plus batched-lookup enrichment
	ArtistName  string `parquet:"artist_name" json:"artist_name"`
	ArtistImage string `parquet:"artist_image" json:"artist_image"`
	Genres      string `parquet:"genres" json:"genres"` // ";"-joined tags

	// Temporal fields
	PlayedAt  time.Time `parquet:"played_at,timestamp(millisecond)" json:"played_at"`
	Year      int32     `parquet:"year" json:"year"`
	Month     int32     `parquet:"month" json:"month"`
	Day       int32     `parquet:"day" json:"day"`
	Hour      int32     `parquet:"hour" json:"hour"`
	Date      string    `parquet:"date" json:"date"` // YYYY-MM-DD
	DayOfWeek int32     `parquet:"dayofweek" json:"dayofweek"` // Monday=0

	// Owning principal (also the partition column)
	UserName string `parquet:"user_name" json:"user_name"`
}

// TableName returns the canonical table name.
func (PlayRow) TableName() string {
	return "plays"
}

// SnapshotRow is the serving column subset materialized into snapshot
// artifacts.
type SnapshotRow struct {
	Name       string    `json:"name"`
	ArtistName string    `json:"artist_name"`
	AlbumName  string    `json:"album_name"`
	AlbumImage string    `json:"album_image"`
	Genres     string    `json:"genres"`
	DurationMS int64     `json:"duration_ms"`
	PlayedAt   time.Time `json:"played_at"`
	Date       string    `json:"date"`
	Hour       int32     `json:"hour"`
	UserName   string    `json:"user_name"`
}

// ToSnapshotRow projects a PlayRow onto the serving column set.
func (r PlayRow) ToSnapshotRow() SnapshotRow {
	return SnapshotRow{
		Name:       r.Name,
		ArtistName: r.ArtistName,
		AlbumName:  r.AlbumName,
		AlbumImage: r.AlbumImage,
		Genres:     r.Genres,
		DurationMS: r.DurationMS,
		PlayedAt:   r.PlayedAt,
		Date:       r.Date,
		Hour:       r.Hour,
		UserName:   r.UserName,
	}
}

// ParquetConfig configures parquet output generation.
type ParquetConfig struct {
	Compression string // "snappy" | "zstd" | "none"
}

// DefaultParquetConfig returns sensible defaults.
func DefaultParquetConfig() ParquetConfig {
	return ParquetConfig{
		Compression: "snappy",
	}
}

// SchemaVersion is the version of the plays table schema.
// Increment this when making breaking changes.
const SchemaVersion = "1.0.0"
