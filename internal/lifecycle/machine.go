// Package lifecycle implements the lead status state machine as a flat
// decision table. Transitions are data: a rule list of (from set, event, to),
// scanned in order, first match wins. Terminal states reject every event
// except an explicit manual override.
package lifecycle

import (
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Rule maps a set of source statuses plus an event to a target status.
type Rule struct {
	From  []domain.LeadStatus
	Event domain.LeadEvent
	To    domain.LeadStatus
}

// rules is the static transition table. Order matters: CanTransition returns
// the first matching rule's target.
var rules = []Rule{
	{
		From:  []domain.LeadStatus{domain.LeadPending, domain.LeadSoftBounced},
		Event: domain.EventEmailSent,
		To:    domain.LeadInSequence,
	},
	{
		From:  []domain.LeadStatus{domain.LeadInSequence},
		Event: domain.EventEmailOpened,
		To:    domain.LeadContacted,
	},
	{
		From:  []domain.LeadStatus{domain.LeadInSequence},
		Event: domain.EventEmailClicked,
		To:    domain.LeadContacted,
	},
	{
		From: []domain.LeadStatus{
			domain.LeadPending, domain.LeadInSequence,
			domain.LeadContacted, domain.LeadSoftBounced,
		},
		Event: domain.EventHardBounce,
		To:    domain.LeadBounced,
	},
	{
		From: []domain.LeadStatus{
			domain.LeadPending, domain.LeadInSequence, domain.LeadContacted,
		},
		Event: domain.EventSoftBounce,
		To:    domain.LeadSoftBounced,
	},
	{
		From: []domain.LeadStatus{
			domain.LeadInSequence, domain.LeadContacted,
			domain.LeadSoftBounced, domain.LeadSequenceComplete,
		},
		Event: domain.EventReplyReceived,
		To:    domain.LeadReplied,
	},
	{
		From: []domain.LeadStatus{
			domain.LeadInSequence, domain.LeadContacted,
			domain.LeadReplied, domain.LeadSequenceComplete,
		},
		Event: domain.EventReplyInterested,
		To:    domain.LeadInterested,
	},
	{
		From: []domain.LeadStatus{
			domain.LeadInSequence, domain.LeadContacted,
			domain.LeadReplied, domain.LeadSequenceComplete,
		},
		Event: domain.EventReplyNotInterested,
		To:    domain.LeadNotInterested,
	},
	{
		From: []domain.LeadStatus{
			domain.LeadPending, domain.LeadInSequence, domain.LeadContacted,
			domain.LeadReplied, domain.LeadInterested, domain.LeadNotInterested,
			domain.LeadSoftBounced, domain.LeadSequenceComplete, domain.LeadMeetingBooked,
		},
		Event: domain.EventUnsubscribe,
		To:    domain.LeadUnsubscribed,
	},
	{
		From: []domain.LeadStatus{
			domain.LeadPending, domain.LeadInSequence, domain.LeadContacted,
			domain.LeadReplied, domain.LeadInterested, domain.LeadNotInterested,
			domain.LeadSoftBounced, domain.LeadSequenceComplete,
		},
		Event: domain.EventSpamReport,
		To:    domain.LeadSpamReported,
	},
	{
		From: []domain.LeadStatus{
			domain.LeadInSequence, domain.LeadContacted,
			domain.LeadReplied, domain.LeadInterested,
		},
		Event: domain.EventMeetingBooked,
		To:    domain.LeadMeetingBooked,
	},
	{
		From:  []domain.LeadStatus{domain.LeadInSequence, domain.LeadContacted},
		Event: domain.EventSequenceComplete,
		To:    domain.LeadSequenceComplete,
	},
}

// terminal statuses reject every event except manual override.
var terminal = map[domain.LeadStatus]bool{
	domain.LeadBounced:      true,
	domain.LeadUnsubscribed: true,
	domain.LeadSpamReported: true,
}

// blocking statuses halt further automated sends for the lead.
var blocking = map[domain.LeadStatus]bool{
	domain.LeadBounced:       true,
	domain.LeadUnsubscribed:  true,
	domain.LeadSpamReported:  true,
	domain.LeadReplied:       true,
	domain.LeadInterested:    true,
	domain.LeadNotInterested: true,
	domain.LeadMeetingBooked: true,
}

// resettable statuses are the only valid targets of a manual override.
var resettable = map[domain.LeadStatus]bool{
	domain.LeadPending:          true,
	domain.LeadInSequence:       true,
	domain.LeadContacted:        true,
	domain.LeadReplied:          true,
	domain.LeadInterested:       true,
	domain.LeadNotInterested:    true,
	domain.LeadSequenceComplete: true,
}

// IsTerminal reports whether the status blocks all automated transitions.
func IsTerminal(status domain.LeadStatus) bool {
	return terminal[status]
}

// BlocksSequence reports whether the status halts further sends.
func BlocksSequence(status domain.LeadStatus) bool {
	return blocking[status]
}

// CanTransition returns the target status for (status, event), or false if
// no rule matches. Terminal statuses reject everything; the manual override
// event carries its own target and is resolved by CanOverride instead.
func CanTransition(status domain.LeadStatus, event domain.LeadEvent) (domain.LeadStatus, bool) {
	if event == domain.EventManualOverride {
		return "", false
	}
	if terminal[status] {
		return "", false
	}
	for _, r := range rules {
		if r.Event != event {
			continue
		}
		for _, from := range r.From {
			if from == status {
				return r.To, true
			}
		}
	}
	return "", false
}

// CanOverride reports whether a manual override may set the given target
// status. Overrides may leave any current status, including terminal ones,
// but only into a resettable status.
func CanOverride(to domain.LeadStatus) bool {
	return resettable[to]
}

// Apply evaluates (status, event) against the table and, on success, returns
// the immutable change record. A false result is a rejected transition: the
// caller logs it as a warning and continues; repeated events on a lead
// already in the target status are expected no-ops.
func Apply(leadID string, status domain.LeadStatus, event domain.LeadEvent) (*domain.LeadChange, bool) {
	to, ok := CanTransition(status, event)
	if !ok {
		return nil, false
	}
	return &domain.LeadChange{
		LeadID:     leadID,
		From:       status,
		To:         to,
		Event:      event,
		OccurredAt: time.Now().UTC(),
	}, true
}

// Override applies a manual override of the lead's status. It is the single
// escape hatch out of terminal statuses.
func Override(leadID string, status, to domain.LeadStatus) (*domain.LeadChange, bool) {
	if !CanOverride(to) {
		return nil, false
	}
	return &domain.LeadChange{
		LeadID:     leadID,
		From:       status,
		To:         to,
		Event:      domain.EventManualOverride,
		OccurredAt: time.Now().UTC(),
	}, true
}

// Rules returns a copy of the transition table for introspection.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
