// Package webhook builds, signs, and delivers outbound event notifications.
// Signatures are HMAC-SHA256 over the exact serialized payload bytes; the
// receiver must verify against the body it received, byte for byte.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Sign computes the lowercase hex HMAC-SHA256 of the payload under secret.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature in constant time. A signature of the wrong
// length is simply invalid, never an error or a panic in this path.
func Verify(payload []byte, secret, signature string) bool {
	expected := Sign(payload, secret)
	if len(signature) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Payload is the wire format of an outbound notification.
type Payload struct {
	Event     domain.WebhookEvent `json:"event"`
	Timestamp string              `json:"timestamp"`
	Data      any                 `json:"data"`
}

// timestampLayout is ISO-8601 with millisecond precision, always UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// BuildPayload serializes an event envelope. The returned bytes are exactly
// what gets signed and POSTed; callers must not re-serialize.
func BuildPayload(event domain.WebhookEvent, data any) ([]byte, error) {
	return json.Marshal(Payload{
		Event:     event,
		Timestamp: time.Now().UTC().Format(timestampLayout),
		Data:      data,
	})
}
