package scraper

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"vintedwatch/internal/domain"
)

// maxFallbackCandidates caps how many markup candidates the heuristic scan
// inspects per page.
const maxFallbackCandidates = 20

var (
	itemClassRe = regexp.MustCompile(`(?i)item|product|listing`)
	priceRe     = regexp.MustCompile(`(\d+\.\d+|\d+)`)
	itemPathRe  = regexp.MustCompile(`/items/(\d+)`)
)

var (
	titleSelectors     = []string{"h3", "h2", ".title"}
	brandSelectors     = []string{".brand", ".brand-title"}
	sizeSelectors      = []string{".size", ".size-title"}
	conditionSelectors = []string{".condition", ".status"}
	sellerSelectors    = []string{".seller", ".user", ".username"}
	priceSelectors     = []string{".price", ".amount", "[data-price]"}
)

// parseFallback heuristically scans document elements whose class attributes
// look like item containers. It only runs when the structured payload is
// absent or undecodable. A candidate is kept only with a non-empty id and
// title.
func (s *Scraper) parseFallback(body []byte, searchURL string) []domain.Listing {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.log.Debug().Err(err).Msg("Failed to parse HTML document for fallback scan.")
		return nil
	}

	host := hostOf(searchURL)
	locale := localeForHost(host)

	var listings []domain.Listing
	seen := 0
	doc.Find("div, article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		if !itemClassRe.MatchString(class) {
			return true
		}
		seen++
		if seen > maxFallbackCandidates {
			return false
		}

		listing := domain.Listing{
			ID:          extractID(sel),
			Title:       firstText(sel, titleSelectors),
			Price:       extractPrice(sel),
			Currency:    "EUR",
			Brand:       firstText(sel, brandSelectors),
			Size:        firstText(sel, sizeSelectors),
			Condition:   firstText(sel, conditionSelectors),
			Seller:      firstText(sel, sellerSelectors),
			URL:         extractItemURL(sel, host),
			PublishedAt: time.Now().UTC(),
			Images:      extractImages(sel, s.cfg.MaxImages),
			Locale:      locale,
		}

		if listing.ID != "" && listing.Title != "" {
			listings = append(listings, listing)
		}
		return true
	})

	return listings
}

// firstText returns the text of the first selector that matches anything.
func firstText(sel *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if found := sel.Find(selector).First(); found.Length() > 0 {
			return strings.TrimSpace(found.Text())
		}
	}
	return ""
}

func extractPrice(sel *goquery.Selection) float64 {
	for _, selector := range priceSelectors {
		found := sel.Find(selector).First()
		if found.Length() == 0 {
			continue
		}
		text := strings.ReplaceAll(strings.TrimSpace(found.Text()), ",", ".")
		if match := priceRe.FindString(text); match != "" {
			if v, err := strconv.ParseFloat(match, 64); err == nil {
				return v
			}
		}
	}
	return 0
}

func extractID(sel *goquery.Selection) string {
	for _, attr := range []string{"data-id", "data-item-id", "id"} {
		if v, ok := sel.Attr(attr); ok && v != "" {
			return v
		}
	}

	if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
		if match := itemPathRe.FindStringSubmatch(href); match != nil {
			return match[1]
		}
	}

	// No stable id anywhere in the markup; synthesize one so the listing
	// still flows through the pipeline.
	return "html_" + uuid.NewString()[:8]
}

func extractItemURL(sel *goquery.Selection, host string) string {
	href, ok := sel.Find("a[href]").First().Attr("href")
	if !ok {
		return ""
	}
	switch {
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return "https://" + host + href
	}
	return ""
}

func extractImages(sel *goquery.Selection, max int) []string {
	var images []string
	sel.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if len(images) >= max {
			return false
		}
		src, _ := img.Attr("src")
		if strings.Contains(src, "http") && strings.Contains(src, "vinted") {
			images = append(images, src)
		}
		return true
	})
	return images
}
