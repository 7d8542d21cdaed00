// Package email is the outbound delivery collaborator. The engine consumes a
// single Sender abstraction; the transport behind it (provider API call or a
// log-only mock for non-production environments) is selected by
// configuration, never by parallel code paths.
package email

import "context"

// Result reports the outcome of one delivery attempt.
type Result struct {
	Success bool
	Message string
}

// Sender delivers a single HTML email. A delivery failure must never roll
// back state the caller has already committed; re-issuing the message is the
// recovery path.
type Sender interface {
	Deliver(ctx context.Context, recipient, subject, htmlBody string) (Result, error)
}
