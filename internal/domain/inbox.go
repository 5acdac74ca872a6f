package domain

import "time"

// InboxStatus enumerates the operational states of a sending identity.
type InboxStatus string

const (
	InboxActive  InboxStatus = "active"
	InboxPaused  InboxStatus = "paused"
	InboxWarming InboxStatus = "warming"
	InboxError   InboxStatus = "error"
)

// RampSpeed controls how aggressively a warm-up schedule ramps volume.
type RampSpeed string

const (
	RampSlow   RampSpeed = "slow"
	RampNormal RampSpeed = "normal"
	RampFast   RampSpeed = "fast"
)

// Inbox is a sending identity (mailbox credential) usable for outbound mail.
// HealthScore and the effective limit are derived values recomputed every
// scheduler tick; they are never persisted as authoritative state.
type Inbox struct {
	ID             string      `json:"id" db:"id"`
	OrganizationID string      `json:"organization_id" db:"organization_id"`
	Email          string      `json:"email" db:"email"`
	FromName       string      `json:"from_name" db:"from_name"`
	Provider       string      `json:"provider" db:"provider"`
	Status         InboxStatus `json:"status" db:"status"`

	DailySendLimit     int `json:"daily_send_limit" db:"daily_send_limit"`
	SentToday          int `json:"sent_today" db:"sent_today"`
	ThrottlePercentage int `json:"throttle_percentage" db:"throttle_percentage"`

	WarmupEnabled bool      `json:"warmup_enabled" db:"warmup_enabled"`
	WarmupDay     int       `json:"warmup_day" db:"warmup_day"`
	RampSpeed     RampSpeed `json:"ramp_speed" db:"ramp_speed"`

	TotalSent    int `json:"total_sent" db:"total_sent"`
	TotalReplied int `json:"total_replied" db:"total_replied"`
	TotalBounced int `json:"total_bounced" db:"total_bounced"`
	TotalSpam    int `json:"total_spam" db:"total_spam"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
