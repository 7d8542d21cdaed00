package credkit

import (
	"context"
	"fmt"
	"time"

	"github.com/credkit/credkit/internal"
	"github.com/credkit/credkit/store"
	"github.com/google/uuid"
)

// RequestOTP issues a one-time passcode for recipient and hands it to the
// delivery collaborator. Outstanding challenges for the same recipient stay
// valid. A delivery failure is surfaced but the persisted challenge is NOT
// rolled back; re-issuing is the recovery path.
func (e *Engine) RequestOTP(ctx context.Context, recipient string) error {
	if e.accounts == nil || e.sender == nil {
		return ErrEngineNotReady
	}
	if recipient == "" {
		return ErrInvalidSubject
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	acct, err := e.accounts.FindBySubject(sctx, recipient)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrNotFound
	}

	if e.otpLimiter != nil {
		if err := e.otpLimiter.CheckRequest(sctx, recipient); err != nil {
			return err
		}
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	ch := store.OTPChallenge{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.OTP.TTL),
	}
	if err := e.otps.Save(sctx, ch); err != nil {
		return err
	}

	res, err := e.sender.Deliver(ctx, recipient, e.config.Email.OTPSubject, otpEmailBody(code, e.config.OTP.TTL))
	if err != nil || !res.Success {
		e.log.Warn().
			Str("recipient", recipient).
			Str("result", res.Message).
			Err(err).
			Msg("credkit: otp delivery failed, challenge remains outstanding")
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, res.Message)
	}
	return nil
}

// VerifyOTP consumes the challenge matching recipient and code, then flips
// the account's verified flag. Every verification miss — wrong code, expired
// code, unknown recipient — collapses into ErrInvalidOrExpiredCode so the
// failure mode cannot be probed. The code is single-use: a store failure
// after consumption is surfaced but the challenge is already gone.
func (e *Engine) VerifyOTP(ctx context.Context, recipient, code string) error {
	if e.accounts == nil {
		return ErrEngineNotReady
	}
	if recipient == "" || code == "" {
		return ErrInvalidOrExpiredCode
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	matched, err := e.otps.Consume(sctx, recipient, code, time.Now())
	if err != nil {
		return err
	}
	if !matched {
		return ErrInvalidOrExpiredCode
	}

	updated, err := e.accounts.UpdateVerified(sctx, recipient, true)
	if err != nil {
		e.log.Warn().
			Str("recipient", recipient).
			Err(err).
			Msg("credkit: otp consumed but verified flag not persisted")
		return err
	}
	if updated == 0 {
		return ErrInvalidOrExpiredCode
	}
	return nil
}

// PeekOTP returns the most recent outstanding challenge for recipient.
// Refused in production mode; it exists so non-production environments can
// complete the flow without a real mailbox.
func (e *Engine) PeekOTP(ctx context.Context, recipient string) (*store.OTPChallenge, error) {
	if e.config.Security.ProductionMode {
		return nil, ErrDebugDisabled
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	ch, err := e.otps.Latest(sctx, recipient)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNotFound
	}
	return ch, nil
}

func otpEmailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		`<html><body><h1>Verification code</h1><p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p></body></html>`,
		code, int(ttl.Minutes()),
	)
}
