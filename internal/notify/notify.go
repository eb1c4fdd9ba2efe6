// Package notify carries surviving listings out of the pipeline. Delivery is
// fire-and-forget from the pipeline's perspective: failures are the sink's
// problem and never roll back a checkpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"vintedwatch/internal/domain"
	"vintedwatch/internal/shared/logger"
)

// Notifier is the sink the scheduler hands new listings to.
type Notifier interface {
	Deliver(ctx context.Context, destinationID string, listing domain.Listing) error
}

// Func adapts a plain function to the Notifier interface.
type Func func(ctx context.Context, destinationID string, listing domain.Listing) error

func (f Func) Deliver(ctx context.Context, destinationID string, listing domain.Listing) error {
	return f(ctx, destinationID, listing)
}

// ErrNoWebhookURL aborts startup when no sink endpoint is configured; a
// watcher with nowhere to deliver is a configuration problem, not something
// to degrade around.
var ErrNoWebhookURL = errors.New("webhook url not configured")

// Webhook posts each listing as a JSON payload to a configured endpoint.
// The destination id travels in the payload so one endpoint can fan out to
// many channels.
type Webhook struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

type webhookPayload struct {
	DestinationID string         `json:"destination_id"`
	Listing       domain.Listing `json:"listing"`
}

// NewWebhook creates the webhook sink.
func NewWebhook(url string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, ErrNoWebhookURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    logger.WithComponent("Notify"),
	}, nil
}

func (w *Webhook) Deliver(ctx context.Context, destinationID string, listing domain.Listing) error {
	body, err := json.Marshal(webhookPayload{DestinationID: destinationID, Listing: listing})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.log.Debug().Str("destination", destinationID).Str("listing", listing.ID).Msg("Listing delivered.")
	return nil
}
