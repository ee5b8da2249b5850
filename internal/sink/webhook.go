package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/driftwatch/driftwatch/internal/drift"
)

// Webhook posts Slack-compatible alert payloads for drifting results.
// Results below the minimum severity are ignored. Delivery failures are
// returned to the emitter, which logs and isolates them.
type Webhook struct {
	url       string
	minStatus drift.Status
	client    *http.Client
}

// NewWebhook creates a webhook sink posting to url. minStatus is the lowest
// severity that triggers an alert.
func NewWebhook(url string, minStatus drift.Status) *Webhook {
	return &Webhook{
		url:       url,
		minStatus: minStatus,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements drift.Sink.
func (s *Webhook) Name() string { return "webhook" }

// Consume implements drift.Sink.
func (s *Webhook) Consume(result drift.Result) error {
	if result.Status < s.minStatus {
		return nil
	}

	payload := map[string]string{
		"text": fmt.Sprintf(":rotating_light: *%s* on feature %q — PSI %.4f (n=%d)",
			result.Status, result.Feature, result.PSI, result.SampleSize),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
