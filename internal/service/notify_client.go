package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/logging"
)

// NotifyClient delivers payment notifications to the counterpart-facing
// notification endpoint.
type NotifyClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewNotifyClient(baseURL string, timeout time.Duration) *NotifyClient {
	return &NotifyClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Deliver posts the event payload and treats any 2xx response as delivered.
func (c *NotifyClient) Deliver(ctx context.Context, event domain.OutboxEvent) error {
	log := logging.FromContext(ctx)

	url := c.baseURL + "/notify"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(event.Payload))
	if err != nil {
		return fmt.Errorf("Deliver: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Event-ID", event.ID.String())

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("Deliver: send: %w", err)
	}
	defer resp.Body.Close()

	log.Info("notification response received",
		"event_id", event.ID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Deliver: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
