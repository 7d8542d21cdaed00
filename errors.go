package credkit

import (
	"errors"

	"github.com/credkit/credkit/store"
	"github.com/credkit/credkit/token"
)

var (
	// ErrMalformedToken is returned for structurally invalid tokens.
	ErrMalformedToken = token.ErrMalformed
	// ErrInvalidSignature is returned when a token signature does not verify.
	ErrInvalidSignature = token.ErrInvalidSignature
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = token.ErrExpired
	// ErrWrongTokenType is returned when a token's declared type does not
	// match the type expected by the operation.
	ErrWrongTokenType = token.ErrWrongType
	// ErrTokenRevoked is returned when a refresh token's id is blacklisted,
	// including the replay of an already-rotated token.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrInvalidOrExpiredCode is the single client-visible OTP verification
	// failure. Wrong code, expired code, and unknown recipient all collapse
	// into it so the failure mode is not leaked.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	// ErrInvalidCredentials is returned by Login without distinguishing an
	// unknown subject from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSubject is returned when an operation receives an empty
	// subject.
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrNotFound is returned when a subject or recipient does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOTPRateLimited is returned when OTP issuance for a recipient
	// exceeds its fixed window.
	ErrOTPRateLimited = errors.New("otp requests rate limited")
	// ErrDeliveryFailed is returned when the email collaborator rejects a
	// message. The durable state the message refers to is NOT rolled back.
	ErrDeliveryFailed = errors.New("email delivery failed")
	// ErrStoreUnavailable wraps durable-store connectivity and timeout
	// failures. Retryable; never an ambiguous success.
	ErrStoreUnavailable = store.ErrUnavailable
	// ErrEngineNotReady is returned when an operation needs a collaborator
	// the engine was built without.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrDebugDisabled is returned by debug-only operations in production
	// mode.
	ErrDebugDisabled = errors.New("debug access disabled in production")
)
