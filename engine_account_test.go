package credkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "a@example.com", "hunter2")
	require.NoError(t, err)

	claims, err := engine.Verify(ctx, pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", claims.Subject)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := engine.Login(ctx, "a@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = engine.Login(ctx, "nobody@example.com", "hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = engine.Login(ctx, "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResetPassword(t *testing.T) {
	engine, accounts := newTestEngine(t, nil)
	ctx := context.Background()

	require.NoError(t, engine.ResetPassword(ctx, "a@example.com", "correct horse"))
	require.Equal(t, "plain:correct horse", accounts.get("a@example.com").PasswordDigest)

	_, err := engine.Login(ctx, "a@example.com", "hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = engine.Login(ctx, "a@example.com", "correct horse")
	require.NoError(t, err)
}

func TestResetPasswordUnknownSubject(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	err := engine.ResetPassword(context.Background(), "nobody@example.com", "new password")
	require.ErrorIs(t, err, ErrNotFound)
}
