package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"pointstrade/internal/domain"
)

// Compile-time interface checks.
var _ MerchantNotifier = (*WebhookNotifier)(nil)
var _ BrokerNotifier = (*WebhookNotifier)(nil)

// WebhookNotifier delivers events as JSON POSTs to the configured merchant
// and broker endpoints.
type WebhookNotifier struct {
	merchantURL string
	brokerURL   string
	httpClient  *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given endpoints.
func NewWebhookNotifier(merchantURL, brokerURL string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		merchantURL: merchantURL,
		brokerURL:   brokerURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Name returns "webhook".
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// NotifyMerchant posts the event to the merchant endpoint.
func (n *WebhookNotifier) NotifyMerchant(ctx context.Context, event MerchantEvent) error {
	return n.post(ctx, n.merchantURL, event)
}

// NotifyBroker posts the event to the broker endpoint.
func (n *WebhookNotifier) NotifyBroker(ctx context.Context, event BrokerEvent, _ domain.ProcessingStage) error {
	return n.post(ctx, n.brokerURL, event)
}

func (n *WebhookNotifier) post(ctx context.Context, url string, payload any) error {
	if url == "" {
		return fmt.Errorf("no endpoint configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("endpoint %s returned %d: %s", url, resp.StatusCode, msg)
	}
	return nil
}
