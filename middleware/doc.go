// Package middleware adapts the session engine to net/http.
//
//   - [LoadSession] binds the request's session carrier to the context.
//   - [RequireSession] rejects requests without an authenticated user and
//     applies the renewal policy to those that have one.
//   - [CSRF] wraps gorilla/csrf with the cookie settings the service uses.
//   - [ClientIP] records the caller address for audit events.
//
// Handlers translate HTTP into engine calls. Authentication decisions stay
// in the engine.
package middleware
