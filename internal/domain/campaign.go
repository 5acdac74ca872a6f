package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignStopped   CampaignStatus = "stopped"
)

// Weekday mirrors time.Weekday numbering: Sunday == 0.
type Weekday int

// HourRange is an integer-hour window within a single local day.
// Inclusivity of the bounds depends on which predicate consumes it;
// see the schedule package.
type HourRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// CampaignSettings holds the delivery rules for a campaign.
type CampaignSettings struct {
	Timezone       string                  `json:"timezone"`
	AllowedDays    []Weekday               `json:"allowed_days"`
	WindowStart    string                  `json:"window_start"` // "HH:MM"
	WindowEnd      string                  `json:"window_end"`   // "HH:MM"
	PerDaySchedule map[Weekday][]HourRange `json:"per_day_schedule,omitempty"`

	// StopOnReply stops the entire campaign on the first reply from any
	// lead; StopOnBounce does the same on a permanent bounce. The lead
	// that replied or bounced always exits the sequence regardless.
	StopOnReply  bool `json:"stop_on_reply"`
	StopOnBounce bool `json:"stop_on_bounce"`

	HealthFloor int `json:"health_floor"`
}

// Campaign ties a lead list to an inbox set and an ordered message sequence.
type Campaign struct {
	ID             string           `json:"id" db:"id"`
	OrganizationID string           `json:"organization_id" db:"organization_id"`
	Name           string           `json:"name" db:"name"`
	ListID         string           `json:"list_id" db:"list_id"`
	InboxIDs       []string         `json:"inbox_ids" db:"inbox_ids"`
	Status         CampaignStatus   `json:"status" db:"status"`
	Settings       CampaignSettings `json:"settings" db:"settings"`

	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignStopped
}

// SequenceStep is one message in a campaign's send plan.
type SequenceStep struct {
	ID         string        `json:"id" db:"id"`
	CampaignID string        `json:"campaign_id" db:"campaign_id"`
	StepOrder  int           `json:"step_order" db:"step_order"`
	DelayHours int           `json:"delay_hours" db:"delay_hours"`
	Subject    string        `json:"subject" db:"subject"`
	Body       string        `json:"body" db:"body"`
	Variants   []StepVariant `json:"variants,omitempty"`
}

// StepVariant is an optional weighted A/B alternative for a sequence step.
type StepVariant struct {
	ID      string `json:"id" db:"id"`
	StepID  string `json:"step_id" db:"step_id"`
	Subject string `json:"subject" db:"subject"`
	Body    string `json:"body" db:"body"`
	Weight  int    `json:"weight" db:"weight"`
}
