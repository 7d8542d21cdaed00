package credkit

import (
	"context"
	"time"

	"github.com/credkit/credkit/token"
)

// TokenType declares what a token may be used for.
type TokenType = token.Type

const (
	// TypeAccess marks short-lived tokens presented on ordinary requests.
	TypeAccess = token.TypeAccess
	// TypeRefresh marks long-lived tokens exchanged during rotation.
	TypeRefresh = token.TypeRefresh
)

// Claims is the verified claim set of a token.
type Claims = token.Claims

// TokenPair is returned by IssuePair, Login, and Rotate.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Account is the engine's view of a user record held by the host
// application.
type Account struct {
	ID             string
	Email          string
	DisplayName    string
	PasswordDigest string
	Verified       bool
	CreatedAt      time.Time
}

// AccountStore is the external account collaborator. The engine never owns
// account persistence; it only reads records and flips the two fields it is
// responsible for.
type AccountStore interface {
	// FindBySubject returns the account for subject, or (nil, nil) when no
	// such account exists.
	FindBySubject(ctx context.Context, subject string) (*Account, error)

	// UpdateVerified sets the account's verified flag and returns the
	// number of matched records.
	UpdateVerified(ctx context.Context, subject string, verified bool) (int64, error)

	// UpdatePasswordDigest replaces the account's password digest and
	// returns the number of matched records.
	UpdatePasswordDigest(ctx context.Context, subject, digest string) (int64, error)
}

// PasswordHasher is the opaque password-hashing capability. The default is
// bcrypt (package password); the engine never inspects digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}
