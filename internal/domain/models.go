package domain

import "time"

// Listing is one normalized marketplace item, produced fresh on every scan
// and never mutated afterwards. Identity is the source-assigned ID; it is
// not guaranteed unique across locales, so dedup keys pair it with a
// destination.
type Listing struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	Brand        string    `json:"brand"`
	Size         string    `json:"size"`
	Condition    string    `json:"condition"`
	Seller       string    `json:"seller"`
	SellerID     string    `json:"seller_id"`
	URL          string    `json:"url"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Images       []string  `json:"images"`
	ReviewsCount int       `json:"reviews_count"`
	Locale       string    `json:"locale"`
}

// Subscription is a standing request to scan one search URL on behalf of
// one destination. LastCheck is the checkpoint: only listings published
// strictly after it count as new.
type Subscription struct {
	ID            int64
	DestinationID string
	SearchURL     string
	Domain        string
	Locale        string
	LastCheck     time.Time
	Active        bool
}

// Filter kinds understood by the attribute filter engine. Unknown kinds are
// ignored rather than excluding listings.
const (
	FilterPriceMin  = "price_min"
	FilterPriceMax  = "price_max"
	FilterBrand     = "brand"
	FilterSize      = "size"
	FilterCondition = "condition"
)

// AttributeFilter narrows which listings get notified for a destination.
// A destination's filters are evaluated as an AND of all entries.
type AttributeFilter struct {
	DestinationID string
	Kind          string
	Value         string
}
