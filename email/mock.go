package email

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MockSender logs messages instead of delivering them. It exists for
// non-production environments where no provider key is configured.
type MockSender struct {
	log zerolog.Logger
}

// NewMockSender returns a MockSender logging through log.
func NewMockSender(log zerolog.Logger) *MockSender {
	return &MockSender{log: log}
}

// Deliver logs the message and reports success.
func (s *MockSender) Deliver(ctx context.Context, recipient, subject, htmlBody string) (Result, error) {
	s.log.Info().
		Str("message_id", uuid.NewString()).
		Str("recipient", recipient).
		Str("subject", subject).
		Int("body_bytes", len(htmlBody)).
		Msg("mock email delivery")
	return Result{Success: true, Message: "email logged (mock mode)"}, nil
}
