package transport

import "context"

// Payload is the templated content handed to a channel transport.
type Payload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailSender delivers one payload to an email address. The transport is a
// black box: a nil error means the service accepted the send, anything else
// (non-2xx, timeout, connection error) is a failed delivery attempt.
type EmailSender interface {
	SendEmail(ctx context.Context, address string, p Payload) error
}

// MessageSender delivers one payload to a message-channel address.
type MessageSender interface {
	SendMessage(ctx context.Context, address string, p Payload) error
}
