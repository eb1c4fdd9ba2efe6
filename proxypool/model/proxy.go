package model

import (
	"sync"
	"time"
)

// ProxyEntry holds the health and performance signal for a single proxy.
// Every entry carries its own lock: sweep probes and fetch reports for
// different proxies never contend with each other.
type ProxyEntry struct {
	URL  string
	Kind string // "http", "https", "socks4" or "socks5"

	mu           sync.Mutex
	successCount int
	failureCount int
	lastUsed     time.Time
	lastSuccess  time.Time
	responseTime time.Duration // rolling estimate, 0 means no sample yet
	healthy      bool
}

// Stats is an immutable snapshot of an entry's counters.
type Stats struct {
	SuccessCount int
	FailureCount int
	LastUsed     time.Time
	LastSuccess  time.Time
	ResponseTime time.Duration
	Healthy      bool
}

// NewEntry returns an entry that is optimistically healthy: a proxy with no
// recorded attempts gets the benefit of the doubt.
func NewEntry(url, kind string) *ProxyEntry {
	return &ProxyEntry{
		URL:     url,
		Kind:    kind,
		healthy: true,
	}
}

// RecordOutcome applies a caller-observed fetch result. The rolling response
// time halves toward each new sample. Once failures exceed successes by more
// than breakerMargin the entry is marked unhealthy immediately, without
// waiting for the next sweep.
func (p *ProxyEntry) RecordOutcome(success bool, responseTime time.Duration, breakerMargin int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if success {
		p.successCount++
		p.lastSuccess = time.Now()
		p.healthy = true
		if responseTime > 0 {
			if p.responseTime > 0 {
				p.responseTime = (p.responseTime + responseTime) / 2
			} else {
				p.responseTime = responseTime
			}
		}
		return
	}

	p.failureCount++
	if p.failureCount > p.successCount+breakerMargin {
		p.healthy = false
	}
}

// RecordProbe applies a health-sweep probe result. A probe measurement
// replaces the rolling response time outright.
func (p *ProxyEntry) RecordProbe(success bool, responseTime time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if success {
		p.successCount++
		p.lastSuccess = time.Now()
		p.responseTime = responseTime
		p.healthy = true
		return
	}

	p.failureCount++
	p.healthy = false
}

// MarkUsed records that the entry was just handed out to a caller.
func (p *ProxyEntry) MarkUsed() {
	p.mu.Lock()
	p.lastUsed = time.Now()
	p.mu.Unlock()
}

// Score rates the entry for selection: successRate * responseTimeFactor.
// No recorded attempts scores 1.0 on both factors so new proxies get tried.
func (p *ProxyEntry) Score() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.successCount + p.failureCount
	successRate := 1.0
	if total > 0 {
		successRate = float64(p.successCount) / float64(total)
	}

	responseTimeFactor := 1.0
	if p.responseTime > 0 {
		responseTimeFactor = 1.0 / (1.0 + p.responseTime.Seconds())
		if responseTimeFactor < 0.1 {
			responseTimeFactor = 0.1
		}
	}

	return successRate * responseTimeFactor
}

// Healthy reports the derived, eventually-consistent health flag.
func (p *ProxyEntry) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy
}

// Snapshot returns a copy of the entry's counters.
func (p *ProxyEntry) Snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		SuccessCount: p.successCount,
		FailureCount: p.failureCount,
		LastUsed:     p.lastUsed,
		LastSuccess:  p.lastSuccess,
		ResponseTime: p.responseTime,
		Healthy:      p.healthy,
	}
}
