package middleware

import (
	"log/slog"
	"net/http"

	"github.com/MrEthical07/sessionauth"
	"github.com/gorilla/csrf"
)

// CSRFHeader is the request header carrying the token.
const CSRFHeader = "X-CSRF-Token"

// CSRFCookieName is the cookie holding the token secret.
const CSRFCookieName = "_csrf"

// CSRFConfig configures [CSRF].
type CSRFConfig struct {
	// Key is the 32-byte authentication key for the token cookie.
	Key []byte
	// Secure marks the cookie Secure. When false, requests are treated as
	// plain HTTP so local development skips the Referer check.
	Secure         bool
	TrustedOrigins []string
	Logger         *slog.Logger
}

var errCSRF = sessionauth.ForbiddenError("invalid csrf token")

// CSRF rejects unsafe requests lacking a valid X-CSRF-Token header. Tokens
// are handed out by [CSRFToken].
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	protect := csrf.Protect(cfg.Key,
		csrf.CookieName(CSRFCookieName),
		csrf.RequestHeader(CSRFHeader),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.Secure(cfg.Secure),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.TrustedOrigins(cfg.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.WarnContext(r.Context(), "csrf check failed",
				slog.String("reason", errString(csrf.FailureReason(r))),
				slog.String("path", r.URL.Path),
			)
			WriteError(w, r, nil, errCSRF)
		})),
	)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		if cfg.Secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// CSRFToken returns the masked token for r. It is only valid inside [CSRF].
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
