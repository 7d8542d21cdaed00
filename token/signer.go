// Package token mints and verifies the signed credentials issued by the
// engine. Tokens are symmetric-key JWTs carrying a subject, a declared type
// (access or refresh), and a random 128-bit jti that is the unit of
// revocation.
package token

import (
	"errors"
	"time"

	"github.com/credkit/credkit/internal"
	"github.com/golang-jwt/jwt/v5"
)

// Type declares what a token may be used for. Verification fails with
// ErrWrongType when the declared type does not match the expected one.
type Type string

const (
	// TypeAccess marks short-lived tokens presented on ordinary requests.
	TypeAccess Type = "access"
	// TypeRefresh marks long-lived tokens exchanged during rotation.
	TypeRefresh Type = "refresh"
)

// SigningMethod selects the symmetric JWT algorithm.
type SigningMethod string

const (
	// MethodHS256 selects HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS512 selects HMAC-SHA512, the default.
	MethodHS512 SigningMethod = "hs512"
)

var (
	// ErrMalformed is returned for structurally invalid tokens.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned when the token is past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrWrongType is returned when the declared type does not match the
	// type expected by the operation.
	ErrWrongType = errors.New("wrong token type")
)

// Claims is the claim set carried by every minted token.
type Claims struct {
	TokenType Type `json:"typ"`
	jwt.RegisteredClaims
}

// Config configures a Signer.
type Config struct {
	Secret        []byte
	SigningMethod SigningMethod
	Issuer        string
	Leeway        time.Duration
}

// Signer mints and verifies tokens with a single symmetric secret. A Signer
// is immutable after construction and safe for concurrent use.
type Signer struct {
	config Config
}

// NewSigner validates cfg and returns a Signer.
func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signer requires a secret")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256, MethodHS512:
	case "":
		cfg.SigningMethod = MethodHS512
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Signer{config: cfg}, nil
}

// Mint creates a signed token for subject with the given type and lifetime.
// The jti comes from crypto/rand with 128 bits of entropy; an id collision is
// treated as negligible, not as a handled case.
func (s *Signer) Mint(subject string, typ Type, ttl time.Duration) (string, *Claims, error) {
	if ttl <= 0 {
		return "", nil, errors.New("invalid token ttl")
	}

	jti, err := internal.NewTokenID()
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if s.config.Issuer != "" {
		claims.Issuer = s.config.Issuer
	}

	raw, err := jwt.NewWithClaims(s.method(), claims).SignedString(s.config.Secret)
	if err != nil {
		return "", nil, err
	}
	return raw, claims, nil
}

// Verify parses raw, checks the signature and expiry, and enforces that the
// declared type matches expected. Failures are classified as ErrMalformed,
// ErrInvalidSignature, ErrExpired, or ErrWrongType so callers can surface
// precise client errors.
func (s *Signer) Verify(raw string, expected Type) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method().Alg()}),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}
	if claims.TokenType != expected {
		return nil, ErrWrongType
	}
	return claims, nil
}

func (s *Signer) method() jwt.SigningMethod {
	if s.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodHS512
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
