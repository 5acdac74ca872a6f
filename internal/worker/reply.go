package worker

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/lifecycle"
	"github.com/ignite/outreach-engine/internal/store"
	"github.com/ignite/outreach-engine/internal/textgen"
)

// ReplyProcessor classifies inbound reply text and applies the matching
// lifecycle event. Intent classification is advisory: a manual override on
// the lead freezes both the status and the stored intent.
type ReplyProcessor struct {
	store      store.Store
	classifier textgen.Service
	notifier   *lifecycle.Notifier // optional observer fan-out
	emitter    *WebhookEmitter

	processed int64
}

// NewReplyProcessor builds a processor. A nil classifier gets the
// deterministic rule-based fallback.
func NewReplyProcessor(st store.Store, classifier textgen.Service) *ReplyProcessor {
	if classifier == nil {
		classifier = textgen.NewRuleBased()
	}
	return &ReplyProcessor{
		store:      st,
		classifier: classifier,
		emitter:    NewWebhookEmitter(st, "[ReplyProcessor]"),
	}
}

// SetNotifier fans committed lead transitions out to the given observers.
func (r *ReplyProcessor) SetNotifier(n *lifecycle.Notifier) {
	r.notifier = n
}

// intentEvents maps a classified intent to the lifecycle event it triggers.
// Intents with no entry (question, neutral) record the plain reply.
var intentEvents = map[domain.ReplyIntent]domain.LeadEvent{
	domain.IntentInterested:     domain.EventReplyInterested,
	domain.IntentMeetingRequest: domain.EventMeetingBooked,
	domain.IntentNotInterested:  domain.EventReplyNotInterested,
	domain.IntentUnsubscribe:    domain.EventUnsubscribe,
}

// intentWebhooks maps intents to their notification events.
var intentWebhooks = map[domain.ReplyIntent]domain.WebhookEvent{
	domain.IntentInterested:    domain.WebhookReplyInterested,
	domain.IntentNotInterested: domain.WebhookReplyNotInterested,
	domain.IntentUnsubscribe:   domain.WebhookLeadUnsubscribed,
}

// ProcessReply handles one inbound reply for a lead. Returns the
// classification that was applied.
func (r *ReplyProcessor) ProcessReply(ctx context.Context, leadID, text string) (textgen.Classification, error) {
	c, err := r.classifier.Classify(ctx, text)
	if err != nil {
		return textgen.Classification{}, err
	}

	lead, err := r.store.GetLead(ctx, leadID)
	if err != nil {
		return c, err
	}

	// Auto-replies and out-of-office messages are not real replies; they
	// neither move the state machine nor update the stored intent.
	if c.Intent == domain.IntentAutoReply || c.Intent == domain.IntentOutOfOffice {
		return c, nil
	}

	if applied, err := r.store.SetReplyIntent(ctx, leadID, c.Intent); err != nil {
		log.Printf("[ReplyProcessor] Error storing intent for lead %s: %v", leadID, err)
	} else if !applied {
		// Manual override freezes the lead entirely.
		return c, nil
	}

	// A bounce notification is not a human reply; it goes straight to the
	// bounce transition instead of through reply_received.
	if c.Intent == domain.IntentBounce {
		r.apply(ctx, lead, domain.EventHardBounce)
		r.stopCampaigns(ctx, lead, true)
	} else {
		r.apply(ctx, lead, domain.EventReplyReceived)
		if event, ok := intentEvents[c.Intent]; ok {
			r.apply(ctx, lead, event)
		}
		r.stopCampaigns(ctx, lead, false)
	}

	r.emit(ctx, domain.WebhookReplyReceived, map[string]any{
		"lead_id": leadID, "intent": string(c.Intent), "confidence": c.Confidence,
	})
	if whEvent, ok := intentWebhooks[c.Intent]; ok {
		r.emit(ctx, whEvent, map[string]any{"lead_id": leadID})
	}

	atomic.AddInt64(&r.processed, 1)
	return c, nil
}

// Processed reports how many replies have been handled.
func (r *ReplyProcessor) Processed() int64 {
	return atomic.LoadInt64(&r.processed)
}

func (r *ReplyProcessor) apply(ctx context.Context, lead *domain.Lead, event domain.LeadEvent) {
	change, ok := lifecycle.Apply(lead.ID, lead.Status, event)
	if !ok {
		return
	}
	applied, err := r.store.UpdateLeadStatus(ctx, lead.ID, change.From, change.To, false)
	if err != nil || !applied {
		return
	}
	if err := r.store.RecordChange(ctx, *change); err != nil {
		log.Printf("[ReplyProcessor] Error recording change for lead %s: %v", lead.ID, err)
	}
	lead.Status = change.To
	if r.notifier != nil {
		r.notifier.Notify(ctx, *change)
	}
}

// stopCampaigns stops the lead's active campaigns whose stop rules match
// what just happened: a human reply or a bounce notification. The lead
// itself left the sequence already through the state machine.
func (r *ReplyProcessor) stopCampaigns(ctx context.Context, lead *domain.Lead, bounced bool) {
	campaigns, err := r.store.ActiveCampaignsForList(ctx, lead.ListID)
	if err != nil {
		log.Printf("[ReplyProcessor] Error loading campaigns for list %s: %v", lead.ListID, err)
		return
	}
	for i := range campaigns {
		c := &campaigns[i]
		if bounced && !c.Settings.StopOnBounce {
			continue
		}
		if !bounced && !c.Settings.StopOnReply {
			continue
		}
		stopped, err := r.store.StopCampaign(ctx, c.ID)
		if err != nil {
			log.Printf("[ReplyProcessor] Error stopping campaign %s: %v", c.ID, err)
			continue
		}
		if stopped {
			log.Printf("[ReplyProcessor] Campaign %s stopped (lead %s)", c.ID, lead.ID)
		}
	}
}

func (r *ReplyProcessor) emit(ctx context.Context, event domain.WebhookEvent, data map[string]any) {
	r.emitter.Emit(ctx, event, data)
}
