// Package models defines the value objects flowing through the sync engine.
package models

import "time"

// RawItemRecord is everything the extraction layer could pull from a single
// listing entry. Optional fields stay at their zero value when the source
// omits them; a rating of 0 legitimately means "unrated".
type RawItemRecord struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Seller        string   `json:"seller"`
	Category      string   `json:"category"`
	URL           string   `json:"url"`
	ImageURL      string   `json:"image_url"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"original_price,omitempty"`
	RatingStars   float64  `json:"rating_stars"`
	RatingCount   int      `json:"rating_count"`
	SalesCount    int      `json:"sales_count"`
	Tags          []string `json:"tags,omitempty"`
	SampleImages  []string `json:"sample_images,omitempty"`
}

// DetailRecord holds the independently extractable facets of a detail page.
// Each facet may be empty when its extraction missed; one facet failing never
// clears the others.
type DetailRecord struct {
	ID          string            `json:"id"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	FileInfo    FileInfo          `json:"file_info"`
	Credits     []Credit          `json:"credits,omitempty"`
	BonusNotes  []string          `json:"bonus_notes,omitempty"`
	Description string            `json:"description,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	RatingStars float64           `json:"rating_stars"`
	HasRating   bool              `json:"has_rating"`
}

// FileInfo describes the technical facet of a detail page.
type FileInfo struct {
	SizeBytes       int64  `json:"size_bytes,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Format          string `json:"format,omitempty"`
}

// Credit is one contributor line from the detail page credits facet.
type Credit struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// Price is the currency-typed price pair of a canonical record. Original is
// nil when the item is not discounted.
type Price struct {
	Current  int64  `json:"current"`
	Original *int64 `json:"original,omitempty"`
	Currency string `json:"currency"`
}

// Rating is the refined rating facet. Nil on a canonical record means the
// source exposed no rating at all.
type Rating struct {
	Stars float64 `json:"stars"`
	Count int     `json:"count"`
}

// CanonicalRecord is the validated, URL-normalized domain representation of
// one catalog item, keyed by its stable external identifier.
type CanonicalRecord struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Seller       string   `json:"seller"`
	Category     string   `json:"category"`
	URL          string   `json:"url"`
	ImageURL     string   `json:"image_url"`
	Price        Price    `json:"price"`
	Rating       *Rating  `json:"rating,omitempty"`
	SalesCount   int      `json:"sales_count"`
	Tags         []string `json:"tags,omitempty"`
	SampleImages []string `json:"sample_images,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// StoredRecord is a CanonicalRecord plus the store-side timestamps. CreatedAt
// is immutable once set.
type StoredRecord struct {
	CanonicalRecord
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastFetchedAt time.Time `json:"last_fetched_at"`
}
