package domain

import "time"

// JobStatus enumerates the lifecycle of a single delivery job in the queue.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobClaimed JobStatus = "claimed"
	JobSent    JobStatus = "sent"
	JobFailed  JobStatus = "failed"
	JobSkipped JobStatus = "skipped"
)

// DeliveryJob is one (lead, campaign, step) send unit. Jobs are claimed and
// retried independently; Attempts is maintained by the queue, not the caller.
type DeliveryJob struct {
	ID         string    `json:"id" db:"id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	LeadID     string    `json:"lead_id" db:"lead_id"`
	InboxID    string    `json:"inbox_id" db:"inbox_id"`
	StepID     string    `json:"step_id" db:"step_id"`
	VariantID  string    `json:"variant_id" db:"variant_id"`
	Subject    string    `json:"subject" db:"subject"`
	Body       string    `json:"body" db:"body"`
	Status     JobStatus `json:"status" db:"status"`
	Attempts   int       `json:"attempts" db:"attempts"`
	LastError  string    `json:"last_error" db:"last_error"`

	ScheduledAt time.Time  `json:"scheduled_at" db:"scheduled_at"`
	ClaimedAt   *time.Time `json:"claimed_at" db:"claimed_at"`
	SentAt      *time.Time `json:"sent_at" db:"sent_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
