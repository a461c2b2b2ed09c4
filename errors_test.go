package sessionauth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFoundError("User not found"), http.StatusNotFound},
		{UnauthorizedError("Invalid credentials"), http.StatusUnauthorized},
		{ForbiddenError("verify first"), http.StatusForbidden},
		{AlreadyVerifiedError("done"), http.StatusBadRequest},
		{TooManyRequestsError("later", 0), http.StatusTooManyRequests},
		{ExpiredError("token expired"), http.StatusBadRequest},
		{ConflictError("taken"), http.StatusConflict},
		{InvalidInputError("bad"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", ErrConflict), http.StatusConflict},
		{errors.New("redis down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	if got := PublicMessage(errors.New("dial tcp 10.0.0.1:6379: refused")); got != "internal server error" {
		t.Fatalf("leaked internal error: %q", got)
	}
	if got := PublicMessage(ConflictError("user already exists with email")); got != "user already exists with email" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(ExpiredError("token expired"), ErrExpired) {
		t.Fatal("Error must unwrap to its sentinel")
	}
}

func TestErrorTextDoesNotRepeatSentinel(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{ExpiredError("token expired"), "token expired"},
		{UnauthorizedError("Unauthorized"), "Unauthorized"},
		{UnauthorizedError("Invalid credentials"), "unauthorized: Invalid credentials"},
		{ConflictError(""), "conflict"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Fatalf("Error() = %q, want %q", got, tt.want)
		}
	}
}
