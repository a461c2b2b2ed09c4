// Package limiters provides domain-specific fixed-window rate limiters.
//
// # Limiters
//
//   - [ResendLimiter]: per-user budget for resending verification mail,
//     "resend-limit:{userId}", 3 sends per hour by default.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Policy thresholds
// come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import sessionauth or any sibling internal package.
//   - Make policy decisions beyond counting; flow functions decide consequences.
package limiters
