package proxypool

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"vintedwatch/internal/shared/logger"
	"vintedwatch/proxypool/model"
)

// ErrInvalidProxyURL is returned when a proxy URL does not carry one of the
// recognized transport prefixes.
var ErrInvalidProxyURL = errors.New("proxy url must start with http://, https://, socks4:// or socks5://")

var validPrefixes = []string{"http://", "https://", "socks4://", "socks5://"}

// Config holds the pool tunables.
type Config struct {
	// SweepCooldown is the minimum time between two health sweeps,
	// checked at selection time.
	SweepCooldown time.Duration
	// BreakerMargin is how far failures may exceed successes before an
	// entry is marked unhealthy without waiting for the next sweep.
	BreakerMargin int
}

// Pool tracks proxy health and performance and hands out a proxy per
// outgoing request. Selection biases toward the best performers while still
// exploring: candidates are ranked by score and the top three are drawn from
// with weights 3:2:1.
type Pool struct {
	cfg Config

	mu        sync.RWMutex
	entries   map[string]*model.ProxyEntry
	lastSweep time.Time
	sweep     func(context.Context)

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates an empty pool. Zero config values fall back to the defaults
// (10 minute sweep cooldown, breaker margin of 3).
func New(cfg Config) *Pool {
	if cfg.SweepCooldown <= 0 {
		cfg.SweepCooldown = 10 * time.Minute
	}
	if cfg.BreakerMargin <= 0 {
		cfg.BreakerMargin = 3
	}
	return &Pool{
		cfg:     cfg,
		entries: make(map[string]*model.ProxyEntry),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSweeper installs the health sweep the pool triggers once the cooldown
// has elapsed. Without a sweeper the pool relies on result reports alone.
func (p *Pool) SetSweeper(sweep func(context.Context)) {
	p.mu.Lock()
	p.sweep = sweep
	p.mu.Unlock()
}

// Add registers a proxy URL. Adding an already known URL is a no-op.
func (p *Pool) Add(rawURL string) error {
	kind, ok := transportKind(rawURL)
	if !ok {
		return ErrInvalidProxyURL
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[rawURL]; exists {
		return nil
	}
	p.entries[rawURL] = model.NewEntry(rawURL, kind)

	log := logger.WithComponent("ProxyPool")
	log.Info().Str("proxy", rawURL).Str("kind", kind).Msg("Proxy added to pool.")
	return nil
}

// Remove drops a proxy on explicit operator action.
func (p *Pool) Remove(rawURL string) {
	p.mu.Lock()
	delete(p.entries, rawURL)
	p.mu.Unlock()
}

// Len returns the number of tracked proxies.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Entries returns a snapshot slice of all tracked entries. The entries
// themselves are shared; callers update them through their own locks.
func (p *Pool) Entries() []*model.ProxyEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*model.ProxyEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out
}

// Select returns the proxy URL to use for the next request, or false when no
// healthy proxy is available. Callers must tolerate proceeding without a
// proxy; an empty pool is never fatal. Selection also triggers a background
// health sweep when the cooldown has elapsed.
func (p *Pool) Select(ctx context.Context) (string, bool) {
	p.maybeSweep(ctx)

	type scored struct {
		entry *model.ProxyEntry
		score float64
	}

	var candidates []scored
	for _, e := range p.Entries() {
		if e.Healthy() {
			candidates = append(candidates, scored{entry: e, score: e.Score()})
		}
	}

	if len(candidates) == 0 {
		log := logger.WithComponent("ProxyPool")
		log.Debug().Msg("No healthy proxies available, proceeding without proxy.")
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	top := len(candidates)
	if top > 3 {
		top = 3
	}
	weights := []int{3, 2, 1}[:top]

	total := 0
	for _, w := range weights {
		total += w
	}

	p.rngMu.Lock()
	r := p.rng.Intn(total)
	p.rngMu.Unlock()

	idx := 0
	for i, w := range weights {
		if r < w {
			idx = i
			break
		}
		r -= w
	}

	chosen := candidates[idx].entry
	chosen.MarkUsed()
	return chosen.URL, true
}

// ReportResult feeds a caller's own observed outcome back into the pool,
// independent of the periodic sweep. Unknown URLs are ignored.
func (p *Pool) ReportResult(rawURL string, success bool, responseTime time.Duration) {
	p.mu.RLock()
	entry, ok := p.entries[rawURL]
	p.mu.RUnlock()
	if !ok {
		return
	}
	entry.RecordOutcome(success, responseTime, p.cfg.BreakerMargin)
}

// HealthyCount reports how many tracked proxies currently pass the health
// filter.
func (p *Pool) HealthyCount() int {
	n := 0
	for _, e := range p.Entries() {
		if e.Healthy() {
			n++
		}
	}
	return n
}

// maybeSweep kicks off the installed sweeper in the background when the
// cooldown has elapsed. The timestamp is advanced under the lock, so two
// rapid selections cannot start overlapping sweeps.
func (p *Pool) maybeSweep(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sweep == nil {
		return
	}
	if !p.lastSweep.IsZero() && time.Since(p.lastSweep) < p.cfg.SweepCooldown {
		return
	}
	p.lastSweep = time.Now()

	go p.sweep(ctx)
}

// LastSweep reports when the most recent health sweep was triggered.
func (p *Pool) LastSweep() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSweep
}

func transportKind(rawURL string) (string, bool) {
	lower := strings.ToLower(rawURL)
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSuffix(prefix, "://"), true
		}
	}
	return "", false
}
