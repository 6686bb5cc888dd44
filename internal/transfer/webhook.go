package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/qualivoice/qualivoice/internal/models"
)

const webhookTimeout = 10 * time.Second

// WebhookNotifier posts the handoff request as JSON to the dialer
// integration endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given endpoint.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// NotifyHandoff posts the handoff payload. Any non-2xx answer is a failure.
func (w *WebhookNotifier) NotifyHandoff(ctx context.Context, req models.HandoffRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode handoff payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("handoff webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("handoff webhook returned %d", resp.StatusCode)
	}
	slog.Debug("WebhookNotifier.NotifyHandoff: delivered", "callID", req.CallID)
	return nil
}
