// Package textgen defines the text-generation collaborator consumed by the
// engine: reply-intent classification and template personalization. The
// production implementation wraps an external model service; the rule-based
// implementation in this package is the deterministic fallback and the
// default for tests.
package textgen

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Classification is the outcome of classifying an inbound reply.
type Classification struct {
	Intent     domain.ReplyIntent `json:"intent"`
	Confidence float64            `json:"confidence"`
}

// Service is the swappable text collaborator boundary.
type Service interface {
	// Classify determines the intent of an inbound reply body.
	Classify(ctx context.Context, text string) (Classification, error)

	// Personalize renders a message template against lead context fields.
	Personalize(ctx context.Context, template string, fields map[string]string) (string, error)
}
