package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
)

func TestCanTransitionMatchesRuleTable(t *testing.T) {
	// Every rule in the table must resolve to exactly its target.
	for _, r := range Rules() {
		for _, from := range r.From {
			to, ok := CanTransition(from, r.Event)
			require.True(t, ok, "rule (%s, %s) should match", from, r.Event)
			assert.Equal(t, r.To, to, "rule (%s, %s)", from, r.Event)
		}
	}
}

func TestCanTransitionRejectsOutsideTable(t *testing.T) {
	events := []domain.LeadEvent{
		domain.EventEmailSent, domain.EventEmailOpened, domain.EventEmailClicked,
		domain.EventHardBounce, domain.EventSoftBounce, domain.EventReplyReceived,
		domain.EventReplyInterested, domain.EventReplyNotInterested,
		domain.EventUnsubscribe, domain.EventSpamReport, domain.EventMeetingBooked,
		domain.EventSequenceComplete,
	}

	inTable := make(map[domain.LeadStatus]map[domain.LeadEvent]bool)
	for _, r := range Rules() {
		for _, from := range r.From {
			if inTable[from] == nil {
				inTable[from] = make(map[domain.LeadEvent]bool)
			}
			inTable[from][r.Event] = true
		}
	}

	for _, status := range domain.LeadStatuses {
		for _, event := range events {
			if inTable[status][event] && !IsTerminal(status) {
				continue
			}
			to, ok := CanTransition(status, event)
			assert.False(t, ok, "(%s, %s) should be rejected", status, event)
			assert.Empty(t, to)
		}
	}
}

func TestTerminalStatesAcceptOnlyOverride(t *testing.T) {
	terminals := []domain.LeadStatus{
		domain.LeadBounced, domain.LeadUnsubscribed, domain.LeadSpamReported,
	}
	events := []domain.LeadEvent{
		domain.EventEmailSent, domain.EventEmailOpened, domain.EventEmailClicked,
		domain.EventHardBounce, domain.EventSoftBounce, domain.EventReplyReceived,
		domain.EventReplyInterested, domain.EventReplyNotInterested,
		domain.EventUnsubscribe, domain.EventSpamReport, domain.EventMeetingBooked,
		domain.EventSequenceComplete,
	}

	for _, status := range terminals {
		assert.True(t, IsTerminal(status))
		for _, event := range events {
			_, ok := CanTransition(status, event)
			assert.False(t, ok, "terminal %s must reject %s", status, event)
		}
		// Override is the single escape hatch.
		change, ok := Override("lead-1", status, domain.LeadPending)
		require.True(t, ok)
		assert.Equal(t, status, change.From)
		assert.Equal(t, domain.LeadPending, change.To)
		assert.Equal(t, domain.EventManualOverride, change.Event)
	}
}

func TestOverrideTargetsAreRestricted(t *testing.T) {
	allowed := []domain.LeadStatus{
		domain.LeadPending, domain.LeadInSequence, domain.LeadContacted,
		domain.LeadReplied, domain.LeadInterested, domain.LeadNotInterested,
		domain.LeadSequenceComplete,
	}
	for _, to := range allowed {
		assert.True(t, CanOverride(to), "override to %s should be allowed", to)
	}

	denied := []domain.LeadStatus{
		domain.LeadBounced, domain.LeadSoftBounced, domain.LeadUnsubscribed,
		domain.LeadSpamReported, domain.LeadMeetingBooked,
	}
	for _, to := range denied {
		assert.False(t, CanOverride(to), "override to %s should be denied", to)
		_, ok := Override("lead-1", domain.LeadContacted, to)
		assert.False(t, ok)
	}
}

func TestBlocksSequence(t *testing.T) {
	blockingStatuses := []domain.LeadStatus{
		domain.LeadBounced, domain.LeadUnsubscribed, domain.LeadSpamReported,
		domain.LeadReplied, domain.LeadInterested, domain.LeadNotInterested,
		domain.LeadMeetingBooked,
	}
	for _, s := range blockingStatuses {
		assert.True(t, BlocksSequence(s), "%s should block the sequence", s)
	}

	nonBlocking := []domain.LeadStatus{
		domain.LeadPending, domain.LeadInSequence, domain.LeadContacted,
		domain.LeadSoftBounced, domain.LeadSequenceComplete,
	}
	for _, s := range nonBlocking {
		assert.False(t, BlocksSequence(s), "%s should not block the sequence", s)
	}
}

func TestInterestedReplyHaltsSequence(t *testing.T) {
	change, ok := Apply("lead-42", domain.LeadInSequence, domain.EventReplyInterested)
	require.True(t, ok)
	assert.Equal(t, domain.LeadInterested, change.To)
	assert.True(t, BlocksSequence(change.To))
}

func TestApplyRejectedReturnsNil(t *testing.T) {
	change, ok := Apply("lead-1", domain.LeadBounced, domain.EventEmailSent)
	assert.False(t, ok)
	assert.Nil(t, change)

	// Repeated event on a lead already past the source state is a no-op.
	change, ok = Apply("lead-1", domain.LeadContacted, domain.EventEmailOpened)
	assert.False(t, ok)
	assert.Nil(t, change)
}

func TestApplyYieldsChangeRecord(t *testing.T) {
	change, ok := Apply("lead-7", domain.LeadPending, domain.EventEmailSent)
	require.True(t, ok)
	assert.Equal(t, "lead-7", change.LeadID)
	assert.Equal(t, domain.LeadPending, change.From)
	assert.Equal(t, domain.LeadInSequence, change.To)
	assert.Equal(t, domain.EventEmailSent, change.Event)
	assert.False(t, change.OccurredAt.IsZero())
}
