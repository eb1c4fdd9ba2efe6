// Package store persists subscriptions, attribute filters and the bounded
// notified-listing dedup set in sqlite.
package store

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"vintedwatch/internal/domain"
)

// ErrInvalidSearchURL is returned when a subscription target is not an
// absolute http(s) URL.
var ErrInvalidSearchURL = errors.New("search url must be an absolute http(s) url")

var validFilterKinds = map[string]bool{
	domain.FilterPriceMin:  true,
	domain.FilterPriceMax:  true,
	domain.FilterBrand:     true,
	domain.FilterSize:      true,
	domain.FilterCondition: true,
}

// ErrInvalidFilterKind is returned when a filter kind is not one of the
// recognized attribute kinds.
var ErrInvalidFilterKind = errors.New("unknown filter kind")

type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the sqlite database at dsn and ensures
// the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS subscriptions(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  destination_id TEXT NOT NULL,
  search_url TEXT NOT NULL,
  domain TEXT NOT NULL,
  locale TEXT NOT NULL,
  last_check INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_active ON subscriptions(active, last_check);

CREATE TABLE IF NOT EXISTS filters(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  destination_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  value TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_filters_destination ON filters(destination_id);

CREATE TABLE IF NOT EXISTS notified(
  listing_id TEXT NOT NULL,
  destination_id TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  PRIMARY KEY(listing_id, destination_id)
);
CREATE INDEX IF NOT EXISTS idx_notified_created ON notified(created_at);
`
	_, err := db.Exec(schema)
	return err
}

type subscriptionRow struct {
	ID            int64  `db:"id"`
	DestinationID string `db:"destination_id"`
	SearchURL     string `db:"search_url"`
	Domain        string `db:"domain"`
	Locale        string `db:"locale"`
	LastCheck     int64  `db:"last_check"`
	Active        int    `db:"active"`
}

func (r subscriptionRow) toDomain() domain.Subscription {
	sub := domain.Subscription{
		ID:            r.ID,
		DestinationID: r.DestinationID,
		SearchURL:     r.SearchURL,
		Domain:        r.Domain,
		Locale:        r.Locale,
		Active:        r.Active == 1,
	}
	if r.LastCheck > 0 {
		sub.LastCheck = time.Unix(r.LastCheck, 0).UTC()
	}
	return sub
}

// AddSubscription registers a search URL for a destination. The URL is
// validated here; malformed targets are never silently accepted.
func (s *Store) AddSubscription(destinationID, searchURL string) (domain.Subscription, error) {
	parsed, err := url.Parse(searchURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return domain.Subscription{}, ErrInvalidSearchURL
	}

	host := parsed.Host
	parts := strings.Split(host, ".")
	locale := parts[len(parts)-1]

	res, err := s.db.Exec(
		`INSERT INTO subscriptions (destination_id, search_url, domain, locale) VALUES (?, ?, ?, ?)`,
		destinationID, searchURL, host, locale,
	)
	if err != nil {
		return domain.Subscription{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Subscription{}, err
	}

	return domain.Subscription{
		ID:            id,
		DestinationID: destinationID,
		SearchURL:     searchURL,
		Domain:        host,
		Locale:        locale,
		Active:        true,
	}, nil
}

// Deactivate removes a subscription from monitoring. Reports whether a row
// was affected.
func (s *Store) Deactivate(id int64) (bool, error) {
	res, err := s.db.Exec(`UPDATE subscriptions SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListActive returns all active subscriptions, oldest checkpoint first, so
// starved subscriptions get processed before fresh ones.
func (s *Store) ListActive() ([]domain.Subscription, error) {
	var rows []subscriptionRow
	err := s.db.Select(&rows,
		`SELECT id, destination_id, search_url, domain, locale, last_check, active
		 FROM subscriptions WHERE active = 1 ORDER BY last_check ASC`)
	if err != nil {
		return nil, err
	}

	subs := make([]domain.Subscription, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toDomain())
	}
	return subs, nil
}

// AdvanceCheckpoint moves a subscription's checkpoint forward. Monotonicity
// is enforced in SQL: the checkpoint can never move backward, whatever the
// caller passes.
func (s *Store) AdvanceCheckpoint(id int64, t time.Time) error {
	_, err := s.db.Exec(
		`UPDATE subscriptions SET last_check = MAX(last_check, ?) WHERE id = ?`,
		t.Unix(), id,
	)
	return err
}

// AddFilter attaches an attribute filter to a destination. Filters are
// immutable once created.
func (s *Store) AddFilter(destinationID, kind, value string) error {
	if !validFilterKinds[kind] {
		return ErrInvalidFilterKind
	}
	_, err := s.db.Exec(
		`INSERT INTO filters (destination_id, kind, value) VALUES (?, ?, ?)`,
		destinationID, kind, value,
	)
	return err
}

// ListFilters returns a destination's filter set.
func (s *Store) ListFilters(destinationID string) ([]domain.AttributeFilter, error) {
	var rows []struct {
		Kind  string `db:"kind"`
		Value string `db:"value"`
	}
	err := s.db.Select(&rows,
		`SELECT kind, value FROM filters WHERE destination_id = ?`, destinationID)
	if err != nil {
		return nil, err
	}

	filters := make([]domain.AttributeFilter, 0, len(rows))
	for _, r := range rows {
		filters = append(filters, domain.AttributeFilter{
			DestinationID: destinationID,
			Kind:          r.Kind,
			Value:         r.Value,
		})
	}
	return filters, nil
}

// MarkNotified records that a listing was forwarded to a destination and
// reports whether this is the first time. The insert doubles as the dedup
// gate: callers deliver only when it returns true.
func (s *Store) MarkNotified(listingID, destinationID string, at time.Time) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO notified (listing_id, destination_id, created_at) VALUES (?, ?, ?)`,
		listingID, destinationID, at.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// PruneNotified drops dedup records older than the cutoff, bounding the
// retention of the seen-id set.
func (s *Store) PruneNotified(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM notified WHERE created_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
