// Package session provides Redis-backed server-side sessions: the record
// store behind the session cookie, the per-user session index used for
// logout-everywhere, the renewal policy, and a gorilla/sessions Store that
// ties them to HTTP requests.
//
// # Record format
//
// Records live under "sess:{sessionId}" as JSON objects of the form
// {"cookie":{...},"userId":"...","lastRenewed":<epoch ms>} with a TTL equal
// to the session max age. The layout matches what connect-redis style stores
// write, so other services sharing the Redis keyspace can read it.
//
// # Architecture boundaries
//
// This package owns the [Store], the [Registry], the [RenewalPolicy] and the
// [Carrier] abstraction. It does NOT verify credentials or look users up;
// those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import sessionauth (no upward imports).
//   - Perform application-level authorization decisions.
//   - Store secrets in session records.
package session
