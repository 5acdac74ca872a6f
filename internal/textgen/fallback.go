package textgen

import (
	"context"
	"strings"

	"github.com/ignite/outreach-engine/internal/domain"
)

// RuleBased is the deterministic fallback classifier/personalizer. It keeps
// the pipeline running when the model service is unavailable or disabled.
type RuleBased struct{}

// NewRuleBased returns the rule-based fallback service.
func NewRuleBased() *RuleBased { return &RuleBased{} }

// intentRule matches any of its phrases case-insensitively. Rules are
// evaluated in order; the first hit wins, so the most specific signals
// (bounces, auto-replies) come first.
type intentRule struct {
	intent     domain.ReplyIntent
	confidence float64
	phrases    []string
}

var intentRules = []intentRule{
	{domain.IntentBounce, 0.95, []string{
		"delivery failed", "undeliverable", "mailbox unavailable",
		"address not found", "user unknown", "delivery status notification",
	}},
	{domain.IntentOutOfOffice, 0.9, []string{
		"out of office", "on vacation", "annual leave", "parental leave",
		"back in the office", "currently away",
	}},
	{domain.IntentAutoReply, 0.85, []string{
		"automatic reply", "auto-reply", "autoreply", "do not reply to this",
	}},
	{domain.IntentUnsubscribe, 0.9, []string{
		"unsubscribe", "remove me", "take me off", "stop emailing", "opt out",
	}},
	{domain.IntentMeetingRequest, 0.85, []string{
		"schedule a call", "book a meeting", "calendar link", "set up a time",
		"my calendly", "available for a call",
	}},
	{domain.IntentNotInterested, 0.8, []string{
		"not interested", "no thanks", "not a fit", "no budget",
		"we already have", "not right now",
	}},
	{domain.IntentInterested, 0.75, []string{
		"interested", "tell me more", "sounds good", "send more info",
		"more details", "price", "pricing",
	}},
	{domain.IntentQuestion, 0.6, []string{
		"how does", "what is", "can you", "could you", "?",
	}},
}

// Classify scans the reply against the phrase rules; no hit is a neutral
// reply at low confidence. Always succeeds; this is the fallback of last
// resort and must never take the pipeline down.
func (r *RuleBased) Classify(_ context.Context, text string) (Classification, error) {
	lowered := strings.ToLower(text)
	for _, rule := range intentRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lowered, phrase) {
				return Classification{Intent: rule.intent, Confidence: rule.confidence}, nil
			}
		}
	}
	return Classification{Intent: domain.IntentNeutral, Confidence: 0.3}, nil
}

// Personalize substitutes {{field}} merge tags from the context map.
// Unknown tags are left intact so a half-rendered template is visible in
// review rather than silently blanked.
func (r *RuleBased) Personalize(_ context.Context, template string, fields map[string]string) (string, error) {
	out := template
	for key, val := range fields {
		out = strings.ReplaceAll(out, "{{"+key+"}}", val)
	}
	return out, nil
}
