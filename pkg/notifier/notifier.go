// Package notifier abstracts the outbound email transport. The engine only
// ever sees the Notifier interface; the concrete transport is an HTTP email
// API client.
package notifier

import "context"

// Result is the delivery outcome reported by the transport.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Notifier interface {
	// SendEmail delivers a rendered message. A transport-level failure is
	// returned as an error; a rejected message is a Result with
	// Success=false.
	SendEmail(ctx context.Context, to, subject, htmlBody string) (Result, error)
}
