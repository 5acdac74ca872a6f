package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	cases := []struct {
		payload string
		secret  string
	}{
		{`{"event":"email.sent"}`, "super-secret-key-01"},
		{``, "another-secret-key"},
		{`{"nested":{"a":[1,2,3]}}`, "0123456789abcdef"},
		{"binary\x00\xffbytes", "secret-with-unicode-日本"},
	}
	for _, tc := range cases {
		sig := Sign([]byte(tc.payload), tc.secret)
		assert.Len(t, sig, 64)
		assert.Equal(t, sig, string(bytesToLower([]byte(sig))), "signature must be lowercase hex")
		assert.True(t, Verify([]byte(tc.payload), tc.secret, sig))
	}
}

func bytesToLower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

func TestVerifySingleByteTamper(t *testing.T) {
	payload := []byte(`{"event":"reply.received","data":{"lead_id":"42"}}`)
	secret := "sixteen-char-min"
	sig := Sign(payload, secret)

	for i := range payload {
		tampered := make([]byte, len(payload))
		copy(tampered, payload)
		tampered[i] ^= 0x01
		assert.False(t, Verify(tampered, secret, sig), "tamper at byte %d", i)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	payload := []byte(`{"event":"email.opened"}`)
	sig := Sign(payload, "secret-number-one")
	assert.False(t, Verify(payload, "secret-number-two", sig))
}

func TestVerifyWrongLengthNeverPanics(t *testing.T) {
	payload := []byte(`{"event":"email.sent"}`)
	secret := "super-secret-key-01"

	assert.NotPanics(t, func() {
		assert.False(t, Verify(payload, secret, ""))
		assert.False(t, Verify(payload, secret, "deadbeef"))
		assert.False(t, Verify(payload, secret, Sign(payload, secret)+"00"))
	})
}

func TestBuildPayloadShape(t *testing.T) {
	body, err := BuildPayload(domain.WebhookLeadBounced, map[string]string{"lead_id": "lead-9"})
	require.NoError(t, err)

	var decoded struct {
		Event     string            `json:"event"`
		Timestamp string            `json:"timestamp"`
		Data      map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, "lead.bounced", decoded.Event)
	assert.Equal(t, "lead-9", decoded.Data["lead_id"])

	// UTC millisecond ISO-8601.
	ts, err := time.Parse("2006-01-02T15:04:05.000Z", decoded.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}
