// Package credkit issues, verifies, and revokes short-lived credentials for
// an HTTP service, and runs the one-time-passcode challenge used to prove
// control of an email address.
//
// The Engine orchestrates four pieces: a symmetric-key token signer, a
// durable revocation store fronted by an in-process membership cache, a
// per-user refresh-token index, and a time-boxed single-use OTP store.
// Refresh tokens rotate on every use; replaying a rotated token is rejected
// because its id is already blacklisted, which is the design's core
// anti-theft property.
//
// The host application supplies the durable stores (Redis or Postgres
// implementations ship in store/redisstore and store/postgres), an account
// store, and optionally an email transport; see Builder.
package credkit
