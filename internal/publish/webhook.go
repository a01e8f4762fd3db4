package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook POSTs each event as a JSON Message to a fixed URL.
type Webhook struct {
	client    *http.Client
	url       string
	userAgent string
}

func NewWebhook(url, userAgent string) *Webhook {
	return &Webhook{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		url:       url,
		userAgent: userAgent,
	}
}

func (w *Webhook) Publish(ctx context.Context, channel, event string, payload any) error {
	body, err := encode(channel, event, payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook responded with status: %d", resp.StatusCode)
	}
	return nil
}
