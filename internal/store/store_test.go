package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"vintedwatch/internal/domain"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "watcher.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAddSubscriptionValidation(t *testing.T) {
	st := openTest(t)

	for _, raw := range []string{
		"not a url",
		"/catalog?search_text=coat",
		"ftp://www.vinted.de/catalog",
	} {
		if _, err := st.AddSubscription("chan-1", raw); !errors.Is(err, ErrInvalidSearchURL) {
			t.Fatalf("expected ErrInvalidSearchURL for %q, got %v", raw, err)
		}
	}

	sub, err := st.AddSubscription("chan-1", "https://www.vinted.de/catalog?search_text=coat")
	if err != nil {
		t.Fatal(err)
	}
	if sub.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if sub.Domain != "www.vinted.de" || sub.Locale != "de" {
		t.Fatalf("domain/locale not derived from the URL: %+v", sub)
	}
	if !sub.Active {
		t.Fatal("new subscriptions must start active")
	}
	if !sub.LastCheck.IsZero() {
		t.Fatal("new subscriptions must start with an unset checkpoint")
	}
}

func TestListActiveOrdering(t *testing.T) {
	st := openTest(t)

	first, _ := st.AddSubscription("chan-1", "https://www.vinted.de/catalog?search_text=a")
	second, _ := st.AddSubscription("chan-2", "https://www.vinted.fr/catalog?search_text=b")
	third, _ := st.AddSubscription("chan-3", "https://www.vinted.pl/catalog?search_text=c")

	now := time.Now().UTC()
	if err := st.AdvanceCheckpoint(second.ID, now); err != nil {
		t.Fatal(err)
	}
	if err := st.AdvanceCheckpoint(third.ID, now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	subs, err := st.ListActive()
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 active subscriptions, got %d", len(subs))
	}

	// Never-checked first, then oldest checkpoint.
	wantOrder := []int64{first.ID, third.ID, second.ID}
	for i, want := range wantOrder {
		if subs[i].ID != want {
			t.Fatalf("position %d: got id %d, want %d", i, subs[i].ID, want)
		}
	}
}

func TestDeactivate(t *testing.T) {
	st := openTest(t)

	sub, _ := st.AddSubscription("chan-1", "https://www.vinted.de/catalog")

	ok, err := st.Deactivate(sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected deactivation to report an affected row")
	}

	subs, err := st.ListActive()
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 0 {
		t.Fatalf("deactivated subscriptions must not be listed, got %d", len(subs))
	}

	ok, err = st.Deactivate(9999)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("deactivating a missing subscription must report no affected row")
	}
}

func TestAdvanceCheckpointMonotonic(t *testing.T) {
	st := openTest(t)

	sub, _ := st.AddSubscription("chan-1", "https://www.vinted.de/catalog")

	later := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	if err := st.AdvanceCheckpoint(sub.ID, later); err != nil {
		t.Fatal(err)
	}
	// An earlier timestamp must not move the checkpoint backward.
	if err := st.AdvanceCheckpoint(sub.ID, later.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	subs, err := st.ListActive()
	if err != nil {
		t.Fatal(err)
	}
	if got := subs[0].LastCheck; !got.Equal(later) {
		t.Fatalf("checkpoint regressed: got %v, want %v", got, later)
	}
}

func TestFilterRoundTrip(t *testing.T) {
	st := openTest(t)

	if err := st.AddFilter("chan-1", "color", "red"); !errors.Is(err, ErrInvalidFilterKind) {
		t.Fatalf("expected ErrInvalidFilterKind, got %v", err)
	}

	if err := st.AddFilter("chan-1", domain.FilterPriceMax, "50"); err != nil {
		t.Fatal(err)
	}
	if err := st.AddFilter("chan-1", domain.FilterBrand, "nike"); err != nil {
		t.Fatal(err)
	}
	if err := st.AddFilter("chan-2", domain.FilterSize, "M"); err != nil {
		t.Fatal(err)
	}

	filters, err := st.ListFilters("chan-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters for chan-1, got %d", len(filters))
	}
	for _, f := range filters {
		if f.DestinationID != "chan-1" {
			t.Fatalf("filter leaked across destinations: %+v", f)
		}
	}
}

func TestMarkNotifiedDedup(t *testing.T) {
	st := openTest(t)
	now := time.Now().UTC()

	first, err := st.MarkNotified("101", "chan-1", now)
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Fatal("first mark must report true")
	}

	again, err := st.MarkNotified("101", "chan-1", now)
	if err != nil {
		t.Fatal(err)
	}
	if again {
		t.Fatal("repeated mark for the same listing and destination must report false")
	}

	// The same listing is still new to a different destination.
	other, err := st.MarkNotified("101", "chan-2", now)
	if err != nil {
		t.Fatal(err)
	}
	if !other {
		t.Fatal("dedup must be scoped per destination")
	}
}

func TestPruneNotified(t *testing.T) {
	st := openTest(t)
	now := time.Now().UTC()

	if _, err := st.MarkNotified("old", "chan-1", now.Add(-8*24*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := st.MarkNotified("recent", "chan-1", now); err != nil {
		t.Fatal(err)
	}

	pruned, err := st.PruneNotified(now.Add(-7 * 24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned record, got %d", pruned)
	}

	// The pruned listing may be notified again; the recent one may not.
	if first, _ := st.MarkNotified("old", "chan-1", now); !first {
		t.Fatal("a pruned record must no longer suppress delivery")
	}
	if first, _ := st.MarkNotified("recent", "chan-1", now); first {
		t.Fatal("a retained record must keep suppressing delivery")
	}
}
