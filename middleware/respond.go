package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/sessionauth"
)

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error"`
	Path       string `json:"path"`
	Timestamp  string `json:"timestamp"`
}

// WriteError maps err to a status and writes the envelope. 5xx responses are
// logged at error level with the underlying cause; everything else at warn.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := sessionauth.HTTPStatus(err)
	body := ErrorBody{
		StatusCode: status,
		Error:      sessionauth.PublicMessage(err),
		Path:       r.URL.Path,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}

	var appErr *sessionauth.Error
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		if appErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter/time.Second)))
		}
	}

	if logger != nil {
		attrs := []any{
			slog.Int("status", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		}
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "request failed", append(attrs, slog.String("error", err.Error()))...)
		} else {
			logger.WarnContext(r.Context(), "request rejected", append(attrs, slog.String("error", body.Error))...)
		}
	}

	WriteJSON(w, status, body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
