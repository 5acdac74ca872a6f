package domain

import "time"

// LeadStatus enumerates the states a lead moves through during a sequence.
type LeadStatus string

const (
	LeadPending          LeadStatus = "pending"
	LeadInSequence       LeadStatus = "in_sequence"
	LeadContacted        LeadStatus = "contacted"
	LeadReplied          LeadStatus = "replied"
	LeadInterested       LeadStatus = "interested"
	LeadNotInterested    LeadStatus = "not_interested"
	LeadMeetingBooked    LeadStatus = "meeting_booked"
	LeadBounced          LeadStatus = "bounced"
	LeadSoftBounced      LeadStatus = "soft_bounced"
	LeadUnsubscribed     LeadStatus = "unsubscribed"
	LeadSpamReported     LeadStatus = "spam_reported"
	LeadSequenceComplete LeadStatus = "sequence_complete"
)

// LeadStatuses lists every valid lead status.
var LeadStatuses = []LeadStatus{
	LeadPending, LeadInSequence, LeadContacted, LeadReplied,
	LeadInterested, LeadNotInterested, LeadMeetingBooked, LeadBounced,
	LeadSoftBounced, LeadUnsubscribed, LeadSpamReported, LeadSequenceComplete,
}

// ReplyIntent is the classified intent of an inbound reply.
type ReplyIntent string

const (
	IntentInterested     ReplyIntent = "interested"
	IntentMeetingRequest ReplyIntent = "meeting_request"
	IntentQuestion       ReplyIntent = "question"
	IntentNotInterested  ReplyIntent = "not_interested"
	IntentUnsubscribe    ReplyIntent = "unsubscribe"
	IntentOutOfOffice    ReplyIntent = "out_of_office"
	IntentAutoReply      ReplyIntent = "auto_reply"
	IntentBounce         ReplyIntent = "bounce"
	IntentNeutral        ReplyIntent = "neutral"
)

// Lead represents a single prospect within a lead list.
type Lead struct {
	ID             string         `json:"id" db:"id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	ListID         string         `json:"list_id" db:"list_id"`
	Email          string         `json:"email" db:"email"`
	FirstName      string         `json:"first_name" db:"first_name"`
	LastName       string         `json:"last_name" db:"last_name"`
	Company        string         `json:"company" db:"company"`
	Title          string         `json:"title" db:"title"`
	City           string         `json:"city" db:"city"`
	State          string         `json:"state" db:"state"`
	Country        string         `json:"country" db:"country"`
	Timezone       string         `json:"timezone" db:"timezone"`
	Status         LeadStatus     `json:"status" db:"status"`
	ReplyIntent    *ReplyIntent   `json:"reply_intent" db:"reply_intent"`
	ManualOverride bool           `json:"manual_override" db:"manual_override"`
	CustomFields   map[string]any `json:"custom_fields" db:"custom_fields"`

	CurrentStep     int        `json:"current_step" db:"current_step"`
	SoftBounceCount int        `json:"soft_bounce_count" db:"soft_bounce_count"`
	LastContactedAt *time.Time `json:"last_contacted_at" db:"last_contacted_at"`
	LastOpenAt      *time.Time `json:"last_open_at" db:"last_open_at"`
	LastReplyAt     *time.Time `json:"last_reply_at" db:"last_reply_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the lead's display name.
func (l *Lead) FullName() string {
	switch {
	case l.FirstName != "" && l.LastName != "":
		return l.FirstName + " " + l.LastName
	case l.FirstName != "":
		return l.FirstName
	default:
		return l.LastName
	}
}

// LeadEvent is a lifecycle event applied to a lead through the state machine.
type LeadEvent string

const (
	EventEmailSent         LeadEvent = "email_sent"
	EventEmailOpened       LeadEvent = "email_opened"
	EventEmailClicked      LeadEvent = "email_clicked"
	EventHardBounce        LeadEvent = "hard_bounce"
	EventSoftBounce        LeadEvent = "soft_bounce"
	EventReplyReceived     LeadEvent = "reply_received"
	EventReplyInterested   LeadEvent = "reply_interested"
	EventReplyNotInterested LeadEvent = "reply_not_interested"
	EventUnsubscribe       LeadEvent = "unsubscribe"
	EventSpamReport        LeadEvent = "spam_report"
	EventMeetingBooked     LeadEvent = "meeting_booked"
	EventSequenceComplete  LeadEvent = "sequence_complete"
	EventManualOverride    LeadEvent = "manual_override"
)

// LeadChange is the immutable record of a single status transition.
type LeadChange struct {
	LeadID     string     `json:"lead_id" db:"lead_id"`
	From       LeadStatus `json:"from" db:"from_status"`
	To         LeadStatus `json:"to" db:"to_status"`
	Event      LeadEvent  `json:"event" db:"event"`
	OccurredAt time.Time  `json:"occurred_at" db:"occurred_at"`
}
