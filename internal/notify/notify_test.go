package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vintedwatch/internal/domain"
)

func TestNewWebhookRequiresURL(t *testing.T) {
	if _, err := NewWebhook("", time.Second); !errors.Is(err, ErrNoWebhookURL) {
		t.Fatalf("expected ErrNoWebhookURL, got %v", err)
	}
}

func TestWebhookDeliver(t *testing.T) {
	var received webhookPayload
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("payload failed to decode: %v", err)
		}
	}))
	defer server.Close()

	sink, err := NewWebhook(server.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	listing := domain.Listing{ID: "101", Title: "Wool coat", Price: 45, Currency: "EUR"}
	if err := sink.Deliver(context.Background(), "chan-1", listing); err != nil {
		t.Fatal(err)
	}

	if contentType != "application/json" {
		t.Fatalf("expected application/json, got %q", contentType)
	}
	if received.DestinationID != "chan-1" {
		t.Fatalf("destination id must travel in the payload, got %q", received.DestinationID)
	}
	if received.Listing.ID != "101" || received.Listing.Price != 45 {
		t.Fatalf("unexpected listing payload: %+v", received.Listing)
	}
}

func TestWebhookDeliverNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink, err := NewWebhook(server.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.Deliver(context.Background(), "chan-1", domain.Listing{ID: "101"}); err == nil {
		t.Fatal("a non-2xx webhook answer must surface as an error")
	}
}
