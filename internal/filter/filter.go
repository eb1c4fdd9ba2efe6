// Package filter narrows scanned listings: per-destination attribute
// predicates evaluated as a conjunction, and the incremental "new since
// checkpoint" cut.
package filter

import (
	"strconv"
	"strings"
	"time"

	"vintedwatch/internal/domain"
)

// Apply keeps only the listings satisfying every filter. An empty filter set
// returns the input unchanged; unknown filter kinds never exclude anything.
func Apply(listings []domain.Listing, filters []domain.AttributeFilter) []domain.Listing {
	if len(filters) == 0 {
		return listings
	}

	kept := make([]domain.Listing, 0, len(listings))
	for _, listing := range listings {
		if matches(listing, filters) {
			kept = append(kept, listing)
		}
	}
	return kept
}

func matches(listing domain.Listing, filters []domain.AttributeFilter) bool {
	for _, f := range filters {
		switch f.Kind {
		case domain.FilterPriceMin:
			if limit, err := strconv.ParseFloat(f.Value, 64); err == nil && listing.Price < limit {
				return false
			}
		case domain.FilterPriceMax:
			if limit, err := strconv.ParseFloat(f.Value, 64); err == nil && listing.Price > limit {
				return false
			}
		case domain.FilterBrand:
			if !strings.Contains(strings.ToLower(listing.Brand), strings.ToLower(f.Value)) {
				return false
			}
		case domain.FilterSize:
			if !strings.EqualFold(listing.Size, f.Value) {
				return false
			}
		case domain.FilterCondition:
			if !strings.Contains(strings.ToLower(listing.Condition), strings.ToLower(f.Value)) {
				return false
			}
		}
	}
	return true
}

// NewSince keeps listings published strictly after checkpoint. A listing
// published exactly at the checkpoint is not new.
func NewSince(listings []domain.Listing, checkpoint time.Time) []domain.Listing {
	if checkpoint.IsZero() {
		return listings
	}

	kept := make([]domain.Listing, 0, len(listings))
	for _, listing := range listings {
		if listing.PublishedAt.After(checkpoint) {
			kept = append(kept, listing)
		}
	}
	return kept
}
