// Package mapper converts raw extracted records into canonical records,
// checks data quality, and classifies records against their stored
// counterparts.
package mapper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// MappingError is a hard, per-record schema violation. The offending record
// is skipped; the batch continues.
type MappingError struct {
	ID    string
	Field string
	Err   error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map record %s: field %s: %v", e.ID, e.Field, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

func mapErr(id, field, format string, args ...any) error {
	return &MappingError{ID: id, Field: field, Err: fmt.Errorf(format, args...)}
}

// ToCanonical validates and normalizes a raw record. It fails closed: any
// schema violation after normalization is an error for this record alone.
func ToCanonical(raw models.RawItemRecord) (models.CanonicalRecord, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return models.CanonicalRecord{}, mapErr("?", "id", "missing external id")
	}
	if raw.Price < 0 {
		return models.CanonicalRecord{}, mapErr(raw.ID, "price", "negative price %d", raw.Price)
	}
	if raw.RatingStars < 0 || raw.RatingStars > 5 {
		return models.CanonicalRecord{}, mapErr(raw.ID, "rating", "stars %v out of [0,5]", raw.RatingStars)
	}

	pageURL, err := normalizeURL(raw.URL)
	if err != nil {
		return models.CanonicalRecord{}, mapErr(raw.ID, "url", "bad url %q: %v", raw.URL, err)
	}

	rec := models.CanonicalRecord{
		ID:           raw.ID,
		Title:        strings.TrimSpace(raw.Title),
		Seller:       strings.TrimSpace(raw.Seller),
		Category:     strings.TrimSpace(raw.Category),
		URL:          pageURL,
		SalesCount:   raw.SalesCount,
		Tags:         raw.Tags,
		SampleImages: raw.SampleImages,
		Price: models.Price{
			Current:  raw.Price,
			Currency: "JPY",
		},
	}

	if raw.ImageURL != "" {
		imageURL, err := normalizeURL(raw.ImageURL)
		if err != nil {
			return models.CanonicalRecord{}, mapErr(raw.ID, "image_url", "bad url %q: %v", raw.ImageURL, err)
		}
		rec.ImageURL = imageURL
	}

	if raw.OriginalPrice > 0 {
		original := raw.OriginalPrice
		rec.Price.Original = &original
	}

	// A zero rating with zero votes means "unrated": leave Rating nil rather
	// than fabricating a zero-star rating.
	if raw.RatingCount > 0 || raw.RatingStars > 0 {
		rec.Rating = &models.Rating{Stars: raw.RatingStars, Count: raw.RatingCount}
	}
	return rec, nil
}

// MergeDetail folds detail-page facets into a canonical record, filling only
// what the listing did not already provide.
func MergeDetail(rec models.CanonicalRecord, det models.DetailRecord) models.CanonicalRecord {
	if det.Description != "" {
		rec.Description = det.Description
	}
	if det.ImageURL != "" {
		rec.ImageURL = det.ImageURL
	}
	if det.HasRating {
		count := 0
		if rec.Rating != nil {
			count = rec.Rating.Count
		}
		rec.Rating = &models.Rating{Stars: det.RatingStars, Count: count}
	}
	return rec
}

func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	u.Fragment = ""
	return u.String(), nil
}
