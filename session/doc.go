// Package session defines the refresh-session record and the [Store] contract
// used by the token service, together with in-memory and Redis implementations.
// A SQL implementation lives in package sqlstore.
//
// # Contract
//
// Every implementation must make [Store.Revoke] a compare-and-swap on the
// revoked flag: among concurrent callers for one jti exactly one observes
// [RevokeApplied]. Sessions are never removed by the token service; revoked and
// expired rows stay available for replay detection until an explicit
// [Pruner.PurgeExpired] call.
//
// # What this package must NOT do
//
//   - Import authcore or jwt (no upward imports).
//   - Store refresh tokens in plaintext.
//   - Make authentication decisions; the engine owns policy.
package session
