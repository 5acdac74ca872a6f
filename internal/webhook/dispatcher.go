package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

const (
	// SignatureHeader carries "sha256=<64 hex chars>" over the exact body.
	SignatureHeader = "X-Webhook-Signature"

	userAgent      = "outreach-engine-webhooks/1.0"
	requestTimeout = 10 * time.Second
)

// Dispatcher POSTs signed payloads to subscription endpoints. It performs a
// single attempt per call; retry pacing belongs to the delivery worker.
type Dispatcher struct {
	client *http.Client
}

// NewDispatcher builds a Dispatcher. A nil client gets the default with the
// fixed 10s timeout.
func NewDispatcher(client *http.Client) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Dispatcher{client: client}
}

// Deliver sends one payload to one subscription. It returns nil only on a
// 2xx response; event filtering gives (false, nil) without a network call.
func (d *Dispatcher) Deliver(ctx context.Context, sub *domain.WebhookSubscription, event domain.WebhookEvent, body []byte) (delivered bool, err error) {
	if !sub.WantsEvent(event) {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(SignatureHeader, "sha256="+Sign(body, sub.Secret))

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("webhook POST %s: %w", sub.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("webhook POST %s: status %d", sub.URL, resp.StatusCode)
	}
	return true, nil
}
