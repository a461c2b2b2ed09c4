// Package stores provides the Redis-backed, short-lived verification token
// store used by registration, login of unverified accounts, and resend.
//
// # Design
//
// A token maps to the identifier it was issued for (a user id or an email)
// under "verify-token:{token}" with a TTL. Redemption reads and deletes the
// key in one Lua script, so a token is consumed at most once even under
// concurrent redemption attempts.
//
// # Architecture boundaries
//
// This package owns persistence for verification tokens. It does NOT
// generate tokens, enforce resend limits, or decide what a redeemed
// identifier means; those responsibilities belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import sessionauth or any sibling internal package.
//   - Log tokens.
package stores
