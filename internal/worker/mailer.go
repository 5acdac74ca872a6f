package worker

import (
	"context"
	"errors"
	"time"
)

// OutboundMessage is one email handed to the mail transport.
type OutboundMessage struct {
	JobID     string
	To        string
	FromName  string
	FromEmail string
	Subject   string
	Body      string
	Headers   map[string]string
}

// SendReceipt is the transport's acknowledgment of an accepted message.
type SendReceipt struct {
	MessageID string
	SentAt    time.Time
}

// Mailer is the mail transport boundary (SMTP, provider API, test double).
type Mailer interface {
	Send(ctx context.Context, msg *OutboundMessage) (*SendReceipt, error)
}

// SendErrorClass drives how the send worker reacts to a failed send.
type SendErrorClass string

const (
	// ErrClassAuth means the sending identity's credentials were rejected.
	// Never retried; the inbox is paused.
	ErrClassAuth SendErrorClass = "auth"

	// ErrClassHardBounce means the recipient address is permanently
	// undeliverable. Never retried.
	ErrClassHardBounce SendErrorClass = "hard_bounce"

	// ErrClassSoftBounce means a temporary recipient-side failure
	// (mailbox full, greylisting). Retried on the bounce schedule.
	ErrClassSoftBounce SendErrorClass = "soft_bounce"

	// ErrClassTransient covers everything else (timeouts, 4xx throttling).
	// Retried with exponential backoff.
	ErrClassTransient SendErrorClass = "transient"
)

// SendError wraps a transport failure with its handling class.
type SendError struct {
	Class SendErrorClass
	Err   error
}

func (e *SendError) Error() string {
	return string(e.Class) + ": " + e.Err.Error()
}

func (e *SendError) Unwrap() error { return e.Err }

// NewSendError builds a classified send failure.
func NewSendError(class SendErrorClass, err error) *SendError {
	return &SendError{Class: class, Err: err}
}

// ClassifyError extracts the handling class; unclassified errors are
// treated as transient.
func ClassifyError(err error) SendErrorClass {
	var se *SendError
	if errors.As(err, &se) {
		return se.Class
	}
	return ErrClassTransient
}
