package credkit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/credkit/credkit/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func withSender(s *captureSender) func(*Builder) {
	return func(b *Builder) { b.WithEmailSender(s) }
}

func TestRequestAndVerifyOTP(t *testing.T) {
	sender := &captureSender{}
	engine, accounts := newTestEngine(t, nil, withSender(sender))
	ctx := context.Background()

	require.NoError(t, engine.RequestOTP(ctx, "a@example.com"))
	require.Equal(t, 1, sender.count())

	ch, err := engine.PeekOTP(ctx, "a@example.com")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), ch.Code)
	require.Contains(t, sender.last().Body, ch.Code)

	require.False(t, accounts.get("a@example.com").Verified)
	require.NoError(t, engine.VerifyOTP(ctx, "a@example.com", ch.Code))
	require.True(t, accounts.get("a@example.com").Verified)

	// Single use: the consumed code never matches again.
	err = engine.VerifyOTP(ctx, "a@example.com", ch.Code)
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestVerifyOTPWrongCodeKeepsChallenge(t *testing.T) {
	sender := &captureSender{}
	engine, _ := newTestEngine(t, nil, withSender(sender))
	ctx := context.Background()

	require.NoError(t, engine.RequestOTP(ctx, "a@example.com"))
	ch, err := engine.PeekOTP(ctx, "a@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == ch.Code {
		wrong = "000001"
	}
	err = engine.VerifyOTP(ctx, "a@example.com", wrong)
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// A miss does not burn the outstanding challenge.
	require.NoError(t, engine.VerifyOTP(ctx, "a@example.com", ch.Code))
}

func TestVerifyOTPExpired(t *testing.T) {
	sender := &captureSender{}
	engine, _ := newTestEngine(t, nil, withSender(sender))
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, engine.otps.Save(ctx, store.OTPChallenge{
		ID:        uuid.NewString(),
		Recipient: "a@example.com",
		Code:      "123456",
		CreatedAt: now.Add(-11 * time.Minute),
		ExpiresAt: now.Add(-time.Minute),
	}))

	err := engine.VerifyOTP(ctx, "a@example.com", "123456")
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestVerifyOTPUnknownRecipient(t *testing.T) {
	sender := &captureSender{}
	engine, _ := newTestEngine(t, nil, withSender(sender))

	err := engine.VerifyOTP(context.Background(), "nobody@example.com", "123456")
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestRequestOTPUnknownRecipient(t *testing.T) {
	sender := &captureSender{}
	engine, _ := newTestEngine(t, nil, withSender(sender))

	err := engine.RequestOTP(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, sender.count())
}

func TestRequestOTPWithoutSender(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	err := engine.RequestOTP(context.Background(), "a@example.com")
	require.ErrorIs(t, err, ErrEngineNotReady)
}

func TestRequestOTPDeliveryFailureKeepsChallenge(t *testing.T) {
	sender := &captureSender{fail: true}
	engine, _ := newTestEngine(t, nil, withSender(sender))
	ctx := context.Background()

	err := engine.RequestOTP(ctx, "a@example.com")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	// The persisted challenge stays verifiable even though delivery failed.
	ch, err := engine.PeekOTP(ctx, "a@example.com")
	require.NoError(t, err)
	require.NoError(t, engine.VerifyOTP(ctx, "a@example.com", ch.Code))
}

func TestRequestOTPRateLimited(t *testing.T) {
	sender := &captureSender{}
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.OTP.MaxRequests = 2
	}, withSender(sender))
	ctx := context.Background()

	require.NoError(t, engine.RequestOTP(ctx, "a@example.com"))
	require.NoError(t, engine.RequestOTP(ctx, "a@example.com"))

	err := engine.RequestOTP(ctx, "a@example.com")
	require.ErrorIs(t, err, ErrOTPRateLimited)
	require.Equal(t, 2, sender.count())
}

func TestOutstandingChallengesCoexist(t *testing.T) {
	sender := &captureSender{}
	engine, _ := newTestEngine(t, nil, withSender(sender))
	ctx := context.Background()

	require.NoError(t, engine.RequestOTP(ctx, "a@example.com"))
	first, err := engine.PeekOTP(ctx, "a@example.com")
	require.NoError(t, err)

	require.NoError(t, engine.RequestOTP(ctx, "a@example.com"))
	second, err := engine.PeekOTP(ctx, "a@example.com")
	require.NoError(t, err)

	if first.Code == second.Code {
		t.Skip("codes collided; coexistence is unobservable this run")
	}

	// Issuing a new code does not invalidate the one already in flight.
	require.NoError(t, engine.VerifyOTP(ctx, "a@example.com", first.Code))
	require.NoError(t, engine.VerifyOTP(ctx, "a@example.com", second.Code))
}

func TestPeekOTPRefusedInProduction(t *testing.T) {
	sender := &captureSender{}
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Security.ProductionMode = true
	}, withSender(sender))

	_, err := engine.PeekOTP(context.Background(), "a@example.com")
	require.ErrorIs(t, err, ErrDebugDisabled)
}

func TestPeekOTPNoneOutstanding(t *testing.T) {
	sender := &captureSender{}
	engine, _ := newTestEngine(t, nil, withSender(sender))

	_, err := engine.PeekOTP(context.Background(), "a@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}
