// Package mailer implements the outbound mail transport against the
// Mailgun messages API.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/outreach-engine/internal/pkg/httpretry"
	"github.com/ignite/outreach-engine/internal/worker"
)

const defaultBaseURL = "https://api.mailgun.net"

// Mailgun sends messages through the Mailgun HTTP API. The sending
// domain is taken from each message's from address, so one client
// serves every inbox.
type Mailgun struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.Doer
}

// NewMailgun builds a client. An empty baseURL selects the production
// API endpoint.
func NewMailgun(baseURL, apiKey string) *Mailgun {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Mailgun{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: httpretry.New(&http.Client{
			Timeout: 30 * time.Second,
		}, 2),
	}
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send submits one message. Failures come back classified so the send
// worker can pick the right recovery path: 401/403 pauses the inbox,
// an invalid recipient is a hard bounce, everything else retries.
func (m *Mailgun) Send(ctx context.Context, msg *worker.OutboundMessage) (*worker.SendReceipt, error) {
	domain, err := sendingDomain(msg.FromEmail)
	if err != nil {
		return nil, worker.NewSendError(worker.ErrClassHardBounce, err)
	}

	form := url.Values{}
	form.Set("from", fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail))
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("html", msg.Body)
	for k, v := range msg.Headers {
		form.Set("h:"+k, v)
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", m.baseURL, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, worker.NewSendError(worker.ErrClassTransient, err)
	}
	req.SetBasicAuth("api", m.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, worker.NewSendError(worker.ErrClassTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, worker.NewSendError(worker.ErrClassTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, worker.NewSendError(worker.ErrClassTransient,
			fmt.Errorf("decoding response: %w", err))
	}

	return &worker.SendReceipt{
		MessageID: strings.Trim(parsed.ID, "<>"),
		SentAt:    time.Now().UTC(),
	}, nil
}

func classifyStatus(code int, body []byte) *worker.SendError {
	apiErr := fmt.Errorf("mailgun status %d: %s", code, strings.TrimSpace(string(body)))
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return worker.NewSendError(worker.ErrClassAuth, apiErr)
	case code == http.StatusBadRequest && strings.Contains(string(body), "address"):
		return worker.NewSendError(worker.ErrClassHardBounce, apiErr)
	default:
		return worker.NewSendError(worker.ErrClassTransient, apiErr)
	}
}

func sendingDomain(fromEmail string) (string, error) {
	_, domain, ok := strings.Cut(fromEmail, "@")
	if !ok || domain == "" {
		return "", fmt.Errorf("malformed from address %q", fromEmail)
	}
	return domain, nil
}
