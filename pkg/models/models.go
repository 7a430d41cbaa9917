package models

import (
	"time"
)

// CoordinateProjection is the minimal per-place payload used to draw map pins.
type CoordinateProjection struct {
	ID         int64   `db:"id" json:"id"`
	Latitude   float64 `db:"latitude" json:"latitude"`
	Longitude  float64 `db:"longitude" json:"longitude"`
	IsFeatured bool    `db:"is_featured" json:"isFeatured"`
}

// Translation is the published content of a place in one locale.
type Translation struct {
	Locale      string `json:"locale"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// Photo is the main photo of a place.
type Photo struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}

// Tag is a tag projected in the request locale. Name and Slug are empty
// when the tag has no published translation in that locale.
type Tag struct {
	ID    int64  `db:"id" json:"id"`
	Color string `db:"color" json:"color"`
	Name  string `db:"name" json:"name"`
	Slug  string `db:"slug" json:"slug"`
}

// DetailProjection is the full per-place payload used by list views.
type DetailProjection struct {
	ID          int64       `json:"id"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Address     string      `json:"address"`
	IsFeatured  bool        `json:"isFeatured"`
	CreatedAt   time.Time   `json:"createdAt"`
	Translation Translation `json:"translation"`
	Tags        []Tag       `json:"tags"`

	// Distance is the great-circle distance in meters from the search center.
	// Only set in proximity mode.
	Distance  *float64 `json:"distance,omitempty"`
	MainPhoto *Photo   `json:"mainPhoto,omitempty"`
}

// SearchResultPage is one page of a cursor-paginated listing.
type SearchResultPage struct {
	Items      []DetailProjection `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
	HasMore    bool               `json:"hasMore"`
}

// EmptyPage returns a well-formed page with no rows.
func EmptyPage() SearchResultPage {
	return SearchResultPage{Items: []DetailProjection{}}
}
