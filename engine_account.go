package credkit

import "context"

// Login checks subject's password through the hashing capability and issues
// a token pair. An unknown subject and a wrong password are
// indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, subject, plaintext string) (TokenPair, error) {
	if e.accounts == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if subject == "" || plaintext == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	acct, err := e.accounts.FindBySubject(sctx, subject)
	if err != nil {
		return TokenPair{}, err
	}
	if acct == nil || !e.hasher.Verify(plaintext, acct.PasswordDigest) {
		return TokenPair{}, ErrInvalidCredentials
	}

	return e.IssuePair(ctx, subject)
}

// ResetPassword replaces subject's password digest.
func (e *Engine) ResetPassword(ctx context.Context, subject, newPlaintext string) error {
	if e.accounts == nil {
		return ErrEngineNotReady
	}
	if subject == "" || newPlaintext == "" {
		return ErrInvalidCredentials
	}

	digest, err := e.hasher.Hash(newPlaintext)
	if err != nil {
		return err
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	matched, err := e.accounts.UpdatePasswordDigest(sctx, subject, digest)
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}
