package checker

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"vintedwatch/internal/shared/logger"
	"vintedwatch/proxypool"
	"vintedwatch/proxypool/model"
)

// Config holds the health probe tunables.
type Config struct {
	ProbeURL       string
	ConnectTimeout time.Duration
	Timeout        time.Duration
	Concurrency    int
}

// Checker probes every tracked proxy against a lightweight external endpoint
// and feeds the results back into the pool entries.
type Checker struct {
	pool *proxypool.Pool
	cfg  Config
}

// New creates a Checker. Zero config values fall back to the defaults
// (httpbin probe, 5s connect / 10s total timeout, 5 concurrent probes).
func New(pool *proxypool.Pool, cfg Config) *Checker {
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = "http://httpbin.org/ip"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &Checker{pool: pool, cfg: cfg}
}

// Sweep fans out one probe per tracked proxy, bounded by the configured
// concurrency. Each probe updates its own entry independently, so a sweep
// never blocks selections or result reports for other entries.
func (c *Checker) Sweep(ctx context.Context) {
	entries := c.pool.Entries()
	if len(entries) == 0 {
		return
	}

	l := logger.WithComponent("ProxyPool/Checker")
	l.Info().Int("count", len(entries)).Int("concurrency", c.cfg.Concurrency).Msg("Starting health sweep...")

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.cfg.Concurrency)

	for _, e := range entries {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(entry *model.ProxyEntry) {
			defer wg.Done()
			defer func() { <-semaphore }()
			c.probe(ctx, entry)
		}(e)
	}

	wg.Wait()

	l.Info().
		Int("healthy", c.pool.HealthyCount()).
		Int("total", len(entries)).
		Msg("Health sweep finished.")
}

func (c *Checker) probe(ctx context.Context, entry *model.ProxyEntry) {
	l := logger.WithComponent("ProxyPool/Checker")

	// Skip verification here: the probe measures reachability, and many
	// paid proxies intercept TLS.
	transport, err := proxypool.NewTransport(entry.URL, c.cfg.ConnectTimeout, true)
	if err != nil {
		entry.RecordProbe(false, 0)
		l.Warn().Err(err).Str("proxy", entry.URL).Msg("Failed to build probe transport.")
		return
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   c.cfg.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ProbeURL, nil)
	if err != nil {
		entry.RecordProbe(false, 0)
		return
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		entry.RecordProbe(false, 0)
		l.Debug().Err(err).Str("proxy", entry.URL).Msg("Probe failed.")
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		entry.RecordProbe(false, 0)
		l.Debug().Int("status_code", resp.StatusCode).Str("proxy", entry.URL).Msg("Probe returned non-200 status.")
		return
	}

	elapsed := time.Since(start)
	entry.RecordProbe(true, elapsed)
	l.Debug().Dur("response_time", elapsed).Str("proxy", entry.URL).Msg("Probe succeeded.")
}
