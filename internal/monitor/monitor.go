// Package monitor drives the polling pipeline: a tick-based scheduler that
// scans every active subscription, filters the results and forwards new
// matches to the notification sink.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vintedwatch/internal/domain"
	"vintedwatch/internal/filter"
	"vintedwatch/internal/notify"
	"vintedwatch/internal/shared/logger"
)

// Scanner is the fetch-and-parse slice the scheduler drives.
type Scanner interface {
	Scan(ctx context.Context, searchURL string, checkpoint time.Time) []domain.Listing
}

// Store is the subscription read/advance-checkpoint capability plus the
// filter set and the delivery dedup gate.
type Store interface {
	ListActive() ([]domain.Subscription, error)
	AdvanceCheckpoint(id int64, t time.Time) error
	ListFilters(destinationID string) ([]domain.AttributeFilter, error)
	MarkNotified(listingID, destinationID string, at time.Time) (bool, error)
	PruneNotified(before time.Time) (int64, error)
}

// Config holds the scheduler tunables.
type Config struct {
	Interval          time.Duration
	NotifiedRetention time.Duration
}

// Monitor runs one cycle immediately on start and then once per tick.
// Within a cycle subscriptions are processed sequentially: that keeps the
// load on the rate limiter and proxy pool predictable and makes failure
// isolation trivial.
type Monitor struct {
	cfg      Config
	store    Store
	scanner  Scanner
	notifier notify.Notifier
	log      zerolog.Logger

	runMu sync.Mutex
}

// New creates a Monitor. Zero config values fall back to the defaults
// (30s interval, 7 day dedup retention).
func New(cfg Config, store Store, scanner Scanner, notifier notify.Notifier) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.NotifiedRetention <= 0 {
		cfg.NotifiedRetention = 7 * 24 * time.Hour
	}
	return &Monitor{
		cfg:      cfg,
		store:    store,
		scanner:  scanner,
		notifier: notifier,
		log:      logger.WithComponent("Monitor"),
	}
}

// Start blocks until ctx is cancelled. Cancellation is observed between
// subscriptions, so the subscription being processed always finishes before
// the loop stops.
func (m *Monitor) Start(ctx context.Context) {
	m.log.Info().Dur("interval", m.cfg.Interval).Msg("Monitor started.")

	m.RunCycle(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Monitor stopped.")
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// RunCycle processes every active subscription once, oldest checkpoint
// first. A failure in one subscription is logged and never stalls the rest
// of the tick.
func (m *Monitor) RunCycle(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	subscriptions, err := m.store.ListActive()
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to load active subscriptions.")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	m.log.Debug().Int("subscriptions", len(subscriptions)).Msg("Cycle starting.")

	for _, sub := range subscriptions {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.process(ctx, sub); err != nil {
			m.log.Error().Err(err).Int64("subscription_id", sub.ID).Msg("Subscription processing failed.")
			continue
		}
	}

	cutoff := time.Now().Add(-m.cfg.NotifiedRetention)
	if pruned, err := m.store.PruneNotified(cutoff); err != nil {
		m.log.Warn().Err(err).Msg("Failed to prune notified records.")
	} else if pruned > 0 {
		m.log.Debug().Int64("pruned", pruned).Msg("Old notified records dropped.")
	}
}

func (m *Monitor) process(ctx context.Context, sub domain.Subscription) error {
	listings := m.scanner.Scan(ctx, sub.SearchURL, sub.LastCheck)

	filters, err := m.store.ListFilters(sub.DestinationID)
	if err != nil {
		return err
	}
	matched := filter.Apply(listings, filters)

	now := time.Now().UTC()
	for _, listing := range matched {
		first, err := m.store.MarkNotified(listing.ID, sub.DestinationID, now)
		if err != nil {
			m.log.Warn().Err(err).Str("listing", listing.ID).Msg("Dedup check failed, skipping delivery.")
			continue
		}
		if !first {
			// Already forwarded within the retention window.
			continue
		}
		if err := m.notifier.Deliver(ctx, sub.DestinationID, listing); err != nil {
			// Fire and forget: a delivery failure never rolls back
			// the checkpoint.
			m.log.Warn().Err(err).Str("listing", listing.ID).Str("destination", sub.DestinationID).Msg("Delivery failed.")
		}
	}

	// The checkpoint advances whether or not anything was found or
	// delivered; an outage window's listings are not retried.
	return m.store.AdvanceCheckpoint(sub.ID, now)
}
