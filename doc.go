// Package sessionauth is a session-based authentication engine backed by
// Redis and a relational user store.
//
// Build an [Engine] with [New], wire a Redis client and a [UserStore], then
// call [Builder.Build]:
//
//	engine, err := sessionauth.New().
//		WithConfig(sessionauth.DefaultConfig()).
//		WithRedis(rdb).
//		WithUserStore(users).
//		WithNotifier(mailer).
//		Build()
//
// The engine covers credential login, email verification tokens, per-user
// session tracking with logout-everywhere, provider-account provisioning and
// basic profile operations. HTTP concerns (cookies, CSRF, routing) live in the
// middleware and internal/httpapi packages and call into the engine.
//
// # Redis keys
//
//	verify-token:{token}     verification token → user id or email
//	resend-limit:{userId}    fixed-window resend counter
//	user-sessions:{userId}   set of session ids
//	sess:{sessionId}         JSON session record
package sessionauth
