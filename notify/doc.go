// Package notify holds the [sessionauth.Notifier] implementations: SMTP with
// embedded HTML templates, a Kafka publisher for deployments where a separate
// service owns outbound mail, a slog notifier for development, and a circuit
// breaker that stops a failing transport from slowing every login.
package notify
