package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"vintedwatch/internal/domain"
	"vintedwatch/internal/filter"
	"vintedwatch/internal/shared/logger"
	"vintedwatch/proxypool"
)

// browserHeaders mimics a realistic desktop browser; search pages served to
// obvious bots are empty or blocked.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

// ProxySource is the slice of the proxy pool the engine needs.
type ProxySource interface {
	Select(ctx context.Context) (string, bool)
	ReportResult(url string, success bool, responseTime time.Duration)
}

// Config holds the fetch engine tunables.
type Config struct {
	MinDelay       time.Duration
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	InsecureTLS    bool
	MaxImages      int
}

// Scraper fetches marketplace search pages through the rate limiter and
// proxy pool and converts response bodies into normalized listings.
type Scraper struct {
	cfg     Config
	proxies ProxySource
	limiter *HostLimiter
	log     zerolog.Logger
}

// New creates a Scraper. Zero config values fall back to the defaults
// (2s per-host delay, 30s request / 10s connect timeout, 4 images).
func New(cfg Config, proxies ProxySource) *Scraper {
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 2 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 4
	}
	return &Scraper{
		cfg:     cfg,
		proxies: proxies,
		limiter: NewHostLimiter(cfg.MinDelay),
		log:     logger.WithComponent("Scraper"),
	}
}

// Scan fetches a search URL and returns the normalized listings published
// strictly after checkpoint (pass the zero time to skip the incremental
// filter). Fetch and parse failures degrade to an empty result; a scan is
// never an error to its caller.
func (s *Scraper) Scan(ctx context.Context, searchURL string, checkpoint time.Time) []domain.Listing {
	host := hostOf(searchURL)
	if err := s.limiter.Wait(ctx, host); err != nil {
		return nil
	}

	// Proxy use is optional: with no healthy proxy the request goes direct.
	proxyURL, _ := s.proxies.Select(ctx)

	body, ok := s.fetch(ctx, searchURL, proxyURL)
	if !ok {
		return nil
	}

	listings := s.parse(body, searchURL)
	if !checkpoint.IsZero() {
		listings = filter.NewSince(listings, checkpoint)
	}

	s.log.Info().Str("host", host).Int("listings", len(listings)).Msg("Scan finished.")
	return listings
}

func (s *Scraper) fetch(ctx context.Context, searchURL, proxyURL string) ([]byte, bool) {
	transport, err := proxypool.NewTransport(proxyURL, s.cfg.ConnectTimeout, s.cfg.InsecureTLS)
	if err != nil {
		s.log.Warn().Err(err).Str("proxy", proxyURL).Msg("Failed to build proxy transport, going direct.")
		proxyURL = ""
		transport, _ = proxypool.NewTransport("", s.cfg.ConnectTimeout, s.cfg.InsecureTLS)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   s.cfg.RequestTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("url", searchURL).Msg("Failed to create request.")
		return nil, false
	}
	for name, value := range browserHeaders {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		if proxyURL != "" {
			s.proxies.ReportResult(proxyURL, false, 0)
		}
		s.log.Warn().Err(err).Str("url", searchURL).Msg("Fetch failed.")
		return nil, false
	}
	defer resp.Body.Close()

	if proxyURL != "" {
		s.proxies.ReportResult(proxyURL, true, elapsed)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.log.Warn().Int("status_code", resp.StatusCode).Str("url", searchURL).Msg("Received non-2xx status.")
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.log.Warn().Err(err).Str("url", searchURL).Msg("Failed to read response body.")
		return nil, false
	}
	return body, true
}

// parse runs the two-path strategy: the embedded global-state payload when
// present and decodable, the heuristic markup scan otherwise.
func (s *Scraper) parse(body []byte, searchURL string) []domain.Listing {
	if listings, ok := s.parsePrimary(body, searchURL); ok {
		return listings
	}
	return s.parseFallback(body, searchURL)
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "www.vinted.com"
	}
	return parsed.Host
}
