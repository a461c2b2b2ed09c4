package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/session"
)

type carrierContextKey struct{}

// CarrierFromContext returns the carrier bound by [LoadSession].
func CarrierFromContext(ctx context.Context) (*session.HTTPCarrier, bool) {
	c, ok := ctx.Value(carrierContextKey{}).(*session.HTTPCarrier)
	return c, ok && c != nil
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if c, ok := CarrierFromContext(ctx); ok {
		return c.UserID()
	}
	return ""
}

// LoadSession binds the session cookie named name to every request. A
// tampered or expired cookie is treated as no session; a store failure is
// a 500.
func LoadSession(store *session.GorillaStore, name string, logger *slog.Logger) func(http.Handler) http.Handler {
	if name == "" {
		name = session.DefaultCookieName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := store.Carrier(w, r, name)
			if c == nil {
				WriteError(w, r, logger, err)
				return
			}
			if err != nil {
				if !isCookieError(err) {
					WriteError(w, r, logger, err)
					return
				}
				logger.DebugContext(r.Context(), "ignoring invalid session cookie", slog.String("error", err.Error()))
			}

			ctx := context.WithValue(r.Context(), carrierContextKey{}, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Renewer is the part of the engine [RequireSession] needs.
type Renewer interface {
	RenewSession(ctx context.Context, c session.Carrier) session.RenewalOutcome
}

var errUnauthorized = sessionauth.UnauthorizedError("Unauthorized")

// RequireSession rejects requests whose session carries no user. For the
// rest it applies the renewal policy and saves the session when the policy
// changed it. A failed save is logged; renewal never fails the request.
func RequireSession(renewer Renewer, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := CarrierFromContext(r.Context())
			if !ok || c.UserID() == "" {
				WriteError(w, r, logger, errUnauthorized)
				return
			}

			if renewer != nil && renewer.RenewSession(r.Context(), c) != session.RenewalSkipped {
				if err := c.Save(r.Context()); err != nil {
					logger.WarnContext(r.Context(), "session save after renewal failed",
						slog.String("error", err.Error()),
					)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isCookieError(err error) bool {
	var cookieErr interface{ IsDecode() bool }
	return errors.As(err, &cookieErr)
}
