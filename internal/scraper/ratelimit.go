package scraper

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a minimum spacing between requests per destination
// host. Hosts are independent: a burst of requests to different hosts
// proceeds in parallel, only same-host requests are spaced out.
type HostLimiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter enforcing minDelay between requests to
// the same host.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		minDelay: minDelay,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait suspends the caller until the host's next request slot is available
// or the context is cancelled.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.minDelay), 1)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}
