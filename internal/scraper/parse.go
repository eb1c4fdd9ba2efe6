package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"vintedwatch/internal/domain"
)

// appStateRe locates the embedded window.App global-state payload.
var appStateRe = regexp.MustCompile(`(?s)window\.App\s*=\s*(\{.*?\});`)

// conditionTexts translates the marketplace's status codes into readable
// condition text.
var conditionTexts = map[string]string{
	"very_good":        "Very Good",
	"good":             "Good",
	"satisfactory":     "Satisfactory",
	"new_with_tags":    "New with Tags",
	"new_without_tags": "New without Tags",
}

// localeSuffixes maps a domain suffix to the listing locale. Unrecognized
// suffixes fall back to "com".
var localeSuffixes = map[string]string{
	".de": "de", ".fr": "fr", ".es": "es", ".it": "it", ".be": "be",
	".nl": "nl", ".at": "at", ".cz": "cz", ".pl": "pl",
}

// The raw catalog shapes are decoded defensively: the source payload is
// loosely typed, so ill-typed fields degrade to zero values instead of
// failing the whole parse.

type rawState struct {
	Catalog *rawCatalog `json:"catalog"`
}

type rawCatalog struct {
	Items []rawItem `json:"items"`
}

type rawItem struct {
	ID    flexString `json:"id"`
	Title string     `json:"title"`
	Price struct {
		Amount       flexFloat `json:"amount"`
		CurrencyCode string    `json:"currency_code"`
	} `json:"price"`
	BrandTitle string `json:"brand_title"`
	SizeTitle  string `json:"size_title"`
	Status     string `json:"status"`
	User       struct {
		ID                    flexString `json:"id"`
		Login                 string     `json:"login"`
		PositiveFeedbackCount int        `json:"positive_feedback_count"`
	} `json:"user"`
	Photos []struct {
		FullSizeURL string `json:"full_size_url"`
		URL         string `json:"url"`
	} `json:"photos"`
	CreatedAtTS flexTime `json:"created_at_ts"`
	UpdatedAtTS flexTime `json:"updated_at_ts"`
}

// parsePrimary extracts listings from the embedded global-state JSON. ok is
// false when the marker is absent, the JSON fails to decode or it carries no
// catalog; only then may the markup-scan fallback run.
func (s *Scraper) parsePrimary(body []byte, searchURL string) ([]domain.Listing, bool) {
	match := appStateRe.FindSubmatch(body)
	if match == nil {
		return nil, false
	}

	var state rawState
	if err := json.Unmarshal(match[1], &state); err != nil {
		s.log.Debug().Err(err).Msg("Embedded state payload failed to decode, falling back to markup scan.")
		return nil, false
	}
	if state.Catalog == nil {
		return nil, false
	}

	host := hostOf(searchURL)
	locale := localeForHost(host)

	listings := make([]domain.Listing, 0, len(state.Catalog.Items))
	for _, item := range state.Catalog.Items {
		listing := domain.Listing{
			ID:           string(item.ID),
			Title:        item.Title,
			Price:        float64(item.Price.Amount),
			Currency:     item.Price.CurrencyCode,
			Brand:        item.BrandTitle,
			Size:         item.SizeTitle,
			Condition:    conditionText(item.Status),
			Seller:       item.User.Login,
			SellerID:     string(item.User.ID),
			URL:          itemURL(host, string(item.ID)),
			PublishedAt:  item.CreatedAtTS.orNow(),
			UpdatedAt:    item.UpdatedAtTS.orNow(),
			ReviewsCount: item.User.PositiveFeedbackCount,
			Locale:       locale,
		}
		if listing.Currency == "" {
			listing.Currency = "EUR"
		}
		for _, photo := range item.Photos {
			if len(listing.Images) >= s.cfg.MaxImages {
				break
			}
			switch {
			case photo.FullSizeURL != "":
				listing.Images = append(listing.Images, photo.FullSizeURL)
			case photo.URL != "":
				listing.Images = append(listing.Images, photo.URL)
			}
		}
		listings = append(listings, listing)
	}

	return listings, true
}

func conditionText(status string) string {
	if text, ok := conditionTexts[status]; ok {
		return text
	}
	return titleCase(strings.ReplaceAll(status, "_", " "))
}

func localeForHost(host string) string {
	for suffix, locale := range localeSuffixes {
		if strings.HasSuffix(host, suffix) {
			return locale
		}
	}
	return "com"
}

func itemURL(host, id string) string {
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://%s/items/%s", host, id)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// flexString decodes a JSON string or number into a string; anything else
// degrades to empty.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err == nil {
			*f = flexString(v)
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
	}
	return nil
}

// flexFloat decodes a JSON number or a numeric string ("15.0", "15,0") into
// a float; anything else degrades to zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", ".")
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexFloat(v)
	}
	return nil
}

// flexTime decodes epoch seconds (integer or fractional) or an ISO-8601
// string; anything else degrades to the zero time.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return nil
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Time = t
		}
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		sec, frac := int64(v), v-float64(int64(v))
		f.Time = time.Unix(sec, int64(frac*float64(time.Second)))
	}
	return nil
}

// orNow substitutes the current time for missing timestamps, matching the
// behavior of treating a listing without one as just published.
func (f flexTime) orNow() time.Time {
	if f.IsZero() {
		return time.Now().UTC()
	}
	return f.Time
}
