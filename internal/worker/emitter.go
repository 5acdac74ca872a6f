package worker

import (
	"context"
	"log"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/store"
	"github.com/ignite/outreach-engine/internal/webhook"
)

// WebhookEmitter turns an engine event into queued deliveries for every
// matching subscription. Shared by the send pool, the reply processor, the
// scheduler, and the maintenance sweep; delivery itself is the dispatch
// worker's job.
type WebhookEmitter struct {
	store store.WebhookStore
	tag   string
}

// NewWebhookEmitter builds an emitter. The tag prefixes its log lines so
// failures are attributable to the component that emitted.
func NewWebhookEmitter(st store.WebhookStore, tag string) *WebhookEmitter {
	if tag == "" {
		tag = "[Webhooks]"
	}
	return &WebhookEmitter{store: st, tag: tag}
}

// Emit serializes the payload once and enqueues a pending delivery per
// matching subscription. Failures are logged and swallowed; emission is
// best-effort.
func (e *WebhookEmitter) Emit(ctx context.Context, event domain.WebhookEvent, data map[string]any) {
	body, err := webhook.BuildPayload(event, data)
	if err != nil {
		log.Printf("%s Error building payload for %s: %v", e.tag, event, err)
		return
	}
	subs, err := e.store.ActiveSubscriptions(ctx, event)
	if err != nil {
		log.Printf("%s Error loading subscriptions for %s: %v", e.tag, event, err)
		return
	}
	for _, sub := range subs {
		d := &domain.WebhookDelivery{
			SubscriptionID: sub.ID,
			Event:          event,
			Payload:        body,
		}
		if err := e.store.EnqueueDelivery(ctx, d); err != nil {
			log.Printf("%s Error enqueuing delivery to %s: %v", e.tag, sub.URL, err)
		}
	}
}
