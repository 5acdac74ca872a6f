// Package store defines the persistence boundaries consumed by the scheduler
// and workers. All durable state lives behind these interfaces; the Postgres
// implementation under store/postgres is the default. In-process derived
// values (health score, effective limit) are never persisted here.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// LeadStore provides lead CRUD, guarded status updates, and event history.
type LeadStore interface {
	GetLead(ctx context.Context, id string) (*domain.Lead, error)

	// EligibleLeads returns leads ready for the campaign's next step:
	// not in a sequence-blocking status and past the step delay.
	EligibleLeads(ctx context.Context, campaignID string, limit int) ([]domain.Lead, error)

	// UpdateLeadStatus moves a lead from one status to another. The update
	// is guarded: it applies only while the lead is still in the expected
	// source status and, unless override is set, its manual-override flag
	// is clear. Returns false when the guard rejected the write.
	UpdateLeadStatus(ctx context.Context, leadID string, from, to domain.LeadStatus, override bool) (bool, error)

	// SetReplyIntent records a classified intent unless the lead's
	// manual-override flag freezes auto-reclassification.
	SetReplyIntent(ctx context.Context, leadID string, intent domain.ReplyIntent) (bool, error)

	// SetManualOverride sets or clears the freeze flag.
	SetManualOverride(ctx context.Context, leadID string, frozen bool) error

	// RecordChange appends an immutable transition record.
	RecordChange(ctx context.Context, change domain.LeadChange) error

	// MarkContacted records a completed send: the lead's current step
	// becomes the delivered step's order and last_contacted_at is stamped,
	// which starts the next step's delay clock.
	MarkContacted(ctx context.Context, leadID, stepID string) error

	// IncrementSoftBounce atomically bumps and returns the lead's
	// soft-bounce counter.
	IncrementSoftBounce(ctx context.Context, leadID string) (int, error)

	// OpenTimes returns the lead's historical open timestamps,
	// most recent first.
	OpenTimes(ctx context.Context, leadID string, limit int) ([]time.Time, error)
}

// InboxStore provides sending-identity reads and counter maintenance.
type InboxStore interface {
	GetInbox(ctx context.Context, id string) (*domain.Inbox, error)

	// CampaignInboxes returns the campaign's inbox set in a stable order.
	CampaignInboxes(ctx context.Context, campaignID string) ([]domain.Inbox, error)

	// IncrementSentToday atomically bumps both daily and lifetime send
	// counters for the inbox.
	IncrementSentToday(ctx context.Context, inboxID string) error

	// ResetDailyCounters zeroes sent_today across all inboxes.
	ResetDailyCounters(ctx context.Context) (int64, error)

	// AdvanceWarmupDays bumps warmup_day for all warming-enabled inboxes.
	AdvanceWarmupDays(ctx context.Context) (int64, error)

	// PauseInbox marks an inbox paused (reputation or auth trouble).
	PauseInbox(ctx context.Context, inboxID, reason string) error
}

// CampaignStore provides campaign and sequence reads plus status writes.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)

	// DueCampaigns returns active campaigns for the scheduler tick.
	DueCampaigns(ctx context.Context) ([]domain.Campaign, error)

	// Steps returns the campaign's ordered sequence steps with variants.
	Steps(ctx context.Context, campaignID string) ([]domain.SequenceStep, error)

	// ActiveCampaignsForList returns active campaigns drawing from the
	// given lead list.
	ActiveCampaignsForList(ctx context.Context, listID string) ([]domain.Campaign, error)

	// MarkCampaignStarted stamps started_at if unset. Returns true only
	// for the caller that actually set it.
	MarkCampaignStarted(ctx context.Context, id string) (bool, error)

	// StopCampaign marks a campaign stopped if it is still active.
	StopCampaign(ctx context.Context, id string) (bool, error)

	// CompleteCampaign marks a campaign completed if it is still active.
	CompleteCampaign(ctx context.Context, id string) (bool, error)

	// ExhaustedCampaigns returns ids of active campaigns with no
	// progressable leads left and no queued delivery jobs.
	ExhaustedCampaigns(ctx context.Context) ([]string, error)
}

// Broker is the delivery-job queue: at-least-once, attempt count visible.
type Broker interface {
	// Enqueue adds a job; duplicate (campaign, lead, step) submissions
	// are ignored so redundant scheduler ticks stay harmless.
	Enqueue(ctx context.Context, job *domain.DeliveryJob) error

	// Claim atomically claims up to limit due jobs for the worker.
	Claim(ctx context.Context, workerID string, limit int) ([]domain.DeliveryJob, error)

	// MarkSent finalizes a job after a successful send.
	MarkSent(ctx context.Context, jobID string) error

	// Reschedule returns a job to the queue for a later attempt.
	Reschedule(ctx context.Context, jobID string, at time.Time, lastError string) error

	// MarkFailed finalizes a job as permanently failed.
	MarkFailed(ctx context.Context, jobID, lastError string) error
}

// WebhookStore provides subscription reads and delivery retry state.
type WebhookStore interface {
	// ActiveSubscriptions returns subscriptions wanting the event.
	ActiveSubscriptions(ctx context.Context, event domain.WebhookEvent) ([]domain.WebhookSubscription, error)

	// GetSubscription returns one subscription by id.
	GetSubscription(ctx context.Context, id string) (*domain.WebhookSubscription, error)

	// EnqueueDelivery records a pending delivery for the dispatch worker.
	EnqueueDelivery(ctx context.Context, d *domain.WebhookDelivery) error

	// DueDeliveries claims pending deliveries whose next attempt is due.
	DueDeliveries(ctx context.Context, limit int) ([]domain.WebhookDelivery, error)

	// MarkDelivered finalizes a successful delivery.
	MarkDelivered(ctx context.Context, id string) error

	// RecordFailure bumps the attempt count. When another attempt remains
	// it schedules it for nextAt; otherwise the delivery is terminal.
	RecordFailure(ctx context.Context, id string, attempts int, nextAt time.Time, lastError string, terminal bool) error
}

// Store aggregates every persistence boundary the engine consumes.
type Store interface {
	LeadStore
	InboxStore
	CampaignStore
	Broker
	WebhookStore
}
