package domain

import "time"

// WebhookEvent is one of the canonical notification event types.
type WebhookEvent string

const (
	WebhookEmailSent          WebhookEvent = "email.sent"
	WebhookEmailDelivered     WebhookEvent = "email.delivered"
	WebhookEmailOpened        WebhookEvent = "email.opened"
	WebhookEmailClicked       WebhookEvent = "email.clicked"
	WebhookEmailBounced       WebhookEvent = "email.bounced"
	WebhookReplyReceived      WebhookEvent = "reply.received"
	WebhookReplyInterested    WebhookEvent = "reply.interested"
	WebhookReplyNotInterested WebhookEvent = "reply.not_interested"
	WebhookLeadBounced        WebhookEvent = "lead.bounced"
	WebhookLeadUnsubscribed   WebhookEvent = "lead.unsubscribed"
	WebhookCampaignStarted    WebhookEvent = "campaign.started"
	WebhookCampaignCompleted  WebhookEvent = "campaign.completed"
	WebhookInboxHealthWarning WebhookEvent = "inbox.health_warning"
	WebhookInboxPaused        WebhookEvent = "inbox.paused"
)

// WebhookEvents lists all canonical event types.
var WebhookEvents = []WebhookEvent{
	WebhookEmailSent, WebhookEmailDelivered, WebhookEmailOpened,
	WebhookEmailClicked, WebhookEmailBounced, WebhookReplyReceived,
	WebhookReplyInterested, WebhookReplyNotInterested, WebhookLeadBounced,
	WebhookLeadUnsubscribed, WebhookCampaignStarted, WebhookCampaignCompleted,
	WebhookInboxHealthWarning, WebhookInboxPaused,
}

// MinWebhookSecretLength is the minimum accepted signing secret length.
const MinWebhookSecretLength = 16

// WebhookSubscription is an operator-configured HTTP callback endpoint.
// An empty Events set subscribes to all event types.
type WebhookSubscription struct {
	ID        string         `json:"id" db:"id"`
	URL       string         `json:"url" db:"url"`
	Events    []WebhookEvent `json:"events" db:"events"`
	Secret    string         `json:"-" db:"secret"`
	Active    bool           `json:"active" db:"active"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// WantsEvent reports whether the subscription should receive the event.
func (s *WebhookSubscription) WantsEvent(event WebhookEvent) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

// DeliveryStatus enumerates the outcome states of a webhook delivery.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// WebhookDelivery tracks retry state for one outbound notification.
// Attempts is monotonic; once it reaches the cap the outcome is terminal.
type WebhookDelivery struct {
	ID             string         `json:"id" db:"id"`
	SubscriptionID string         `json:"subscription_id" db:"subscription_id"`
	Event          WebhookEvent   `json:"event" db:"event"`
	Payload        []byte         `json:"payload" db:"payload"`
	Status         DeliveryStatus `json:"status" db:"status"`
	Attempts       int            `json:"attempts" db:"attempts"`
	LastError      string         `json:"last_error" db:"last_error"`
	NextAttemptAt  time.Time      `json:"next_attempt_at" db:"next_attempt_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}
