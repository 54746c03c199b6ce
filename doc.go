// Package authcore issues short-lived JWT access tokens and long-lived
// refresh tokens, rotates the refresh token on every use, and treats a replay
// of a rotated-out token as theft: every session of that user is revoked.
//
// Engine methods are safe for concurrent use once [Builder.Build] returns.
//
// # Architecture boundaries
//
// authcore is the public surface: [Engine], [Builder], [Config] and the value
// types around them. Flow orchestration, audit dispatch, rate limiting and
// metric storage live under internal/. Persistence sits behind
// [session.Store] and [UserProvider]; the sqlstore and session packages ship
// Postgres, SQLite, Redis and in-memory implementations.
//
// # Refresh invariants
//
//   - At most one session row is active per refresh token. Rotation revokes
//     the old row with a compare-and-swap, so concurrent refreshes of one
//     token yield exactly one winner.
//   - Stores keep a SHA-256 fingerprint of the refresh token, never the token.
//   - Access tokens are stateless. Logout and reuse revocation do not shorten
//     their lifetime; keep AccessTTL short.
//   - Expiry is inclusive: a token whose exp equals now is expired.
package authcore
