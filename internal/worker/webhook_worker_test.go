package worker

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/retry"
	"github.com/ignite/outreach-engine/internal/webhook"
)

func seedWebhook(url string) (*memStore, *domain.WebhookDelivery) {
	st := newMemStore()
	st.subs["sub-1"] = &domain.WebhookSubscription{
		ID: "sub-1", URL: url, Secret: "0123456789abcdef", Active: true,
	}
	payload, _ := webhook.BuildPayload(domain.WebhookEmailSent, map[string]any{"lead_id": "lead-1"})
	d := &domain.WebhookDelivery{
		ID: "whd-1", SubscriptionID: "sub-1",
		Event: domain.WebhookEmailSent, Payload: payload,
		Status: domain.DeliveryPending,
	}
	st.deliveries["whd-1"] = d
	return st, d
}

func TestProcessDeliverySuccess(t *testing.T) {
	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(webhook.SignatureHeader)
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st, d := seedWebhook(srv.URL)
	w := NewWebhookWorker(st, nil, 2)

	w.ProcessDelivery(context.Background(), d)

	assert.Equal(t, domain.DeliveryDelivered, st.deliveries["whd-1"].Status)
	require.NotEmpty(t, gotSig)
	assert.True(t, webhook.Verify(gotBody, "0123456789abcdef", gotSig[len("sha256="):]))
}

func TestProcessDeliveryFailureSchedulesRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	st, d := seedWebhook(srv.URL)
	w := NewWebhookWorker(st, nil, 2)

	w.ProcessDelivery(context.Background(), d)

	got := st.deliveries["whd-1"]
	assert.Equal(t, domain.DeliveryPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	// First retry after 2^1 seconds.
	assert.WithinDuration(t, time.Now().Add(2*time.Second), got.NextAttemptAt, time.Second)
	assert.Contains(t, got.LastError, "502")
}

func TestProcessDeliveryExhaustionIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	st, d := seedWebhook(srv.URL)
	d.Attempts = retry.WebhookMaxAttempts - 1
	w := NewWebhookWorker(st, nil, 2)

	w.ProcessDelivery(context.Background(), d)

	got := st.deliveries["whd-1"]
	assert.Equal(t, domain.DeliveryFailed, got.Status)
	assert.Equal(t, retry.WebhookMaxAttempts, got.Attempts)
}

func TestProcessDeliveryMissingSubscriptionIsTerminal(t *testing.T) {
	st, d := seedWebhook("https://hooks.example.com/x")
	delete(st.subs, "sub-1")
	w := NewWebhookWorker(st, nil, 2)

	w.ProcessDelivery(context.Background(), d)

	assert.Equal(t, domain.DeliveryFailed, st.deliveries["whd-1"].Status)
}
