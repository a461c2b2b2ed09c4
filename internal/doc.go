// Package internal contains helper utilities that are intentionally private to
// sessionauth, chiefly secure random generation for tokens and session ids.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function flow orchestrators for every Engine operation
//   - limiters: the resend-verification fixed window
//   - stores: single-use verification token store
//   - config: environment configuration for the daemon
//   - httpapi: chi routes and handlers over the Engine
//
// # What this package must NOT do
//
//   - Export types that appear in the public sessionauth API.
//   - Be imported by any package outside the sessionauth module.
package internal
