package sessionauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an identifier does not resolve to an active user.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned on password mismatch or a missing authenticated identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an unverified user attempts to log in.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyVerified is returned when a resend is requested for a verified user.
	ErrAlreadyVerified = errors.New("already verified")
	// ErrTooManyRequests is returned when the resend budget is exhausted.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrExpired is returned when a verification token is absent or already redeemed.
	ErrExpired = errors.New("token expired")
	// ErrConflict is returned when an email or username is already in use.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput is returned for malformed requests rejected before any store call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEngineNotReady is returned when a required dependency was not wired.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Error is the caller-presentable form of a core failure. It wraps one of the
// sentinel errors above, so errors.Is keeps working across layers.
type Error struct {
	Code       string
	Message    string
	Status     int
	RetryAfter time.Duration
	Err        error
}

// Error prefixes the message with the sentinel text unless the two already
// say the same thing.
func (e *Error) Error() string {
	sentinel := e.Err.Error()
	switch {
	case e.Message == "":
		return sentinel
	case strings.EqualFold(e.Message, sentinel):
		return e.Message
	default:
		return fmt.Sprintf("%s: %s", sentinel, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFoundError builds an ErrNotFound with a user-facing message.
func NotFoundError(message string) *Error {
	return &Error{Code: "NOT_FOUND", Message: message, Status: http.StatusNotFound, Err: ErrNotFound}
}

// UnauthorizedError builds an ErrUnauthorized with a user-facing message.
func UnauthorizedError(message string) *Error {
	return &Error{Code: "UNAUTHORIZED", Message: message, Status: http.StatusUnauthorized, Err: ErrUnauthorized}
}

// ForbiddenError builds an ErrForbidden with a user-facing message.
func ForbiddenError(message string) *Error {
	return &Error{Code: "FORBIDDEN", Message: message, Status: http.StatusForbidden, Err: ErrForbidden}
}

// AlreadyVerifiedError builds an ErrAlreadyVerified with a user-facing message.
func AlreadyVerifiedError(message string) *Error {
	return &Error{Code: "ALREADY_VERIFIED", Message: message, Status: http.StatusBadRequest, Err: ErrAlreadyVerified}
}

// TooManyRequestsError builds an ErrTooManyRequests carrying a retry hint.
func TooManyRequestsError(message string, retryAfter time.Duration) *Error {
	return &Error{
		Code:       "TOO_MANY_REQUESTS",
		Message:    message,
		Status:     http.StatusTooManyRequests,
		RetryAfter: retryAfter,
		Err:        ErrTooManyRequests,
	}
}

// ExpiredError builds an ErrExpired with a user-facing message.
func ExpiredError(message string) *Error {
	return &Error{Code: "TOKEN_EXPIRED", Message: message, Status: http.StatusBadRequest, Err: ErrExpired}
}

// ConflictError builds an ErrConflict with a user-facing message.
func ConflictError(message string) *Error {
	return &Error{Code: "CONFLICT", Message: message, Status: http.StatusConflict, Err: ErrConflict}
}

// InvalidInputError builds an ErrInvalidInput with a user-facing message.
func InvalidInputError(message string) *Error {
	return &Error{Code: "INVALID_INPUT", Message: message, Status: http.StatusBadRequest, Err: ErrInvalidInput}
}

// HTTPStatus maps any error returned by the engine to a response status.
// Unclassified errors (store outages and the like) map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var appErr *Error
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyVerified), errors.Is(err, ErrExpired), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to an end user.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Message != "" {
			return appErr.Message
		}
		return appErr.Err.Error()
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
