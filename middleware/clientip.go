package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/sessionauth"
)

// ClientIP stores the caller address in the context for audit events. Put
// chi's RealIP in front of it when running behind a proxy.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(sessionauth.WithClientIP(r.Context(), ip)))
	})
}
