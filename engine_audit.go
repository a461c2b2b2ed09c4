package sessionauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionauth/internal/limiters"
	"github.com/MrEthical07/sessionauth/internal/stores"
	"github.com/MrEthical07/sessionauth/session"
	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginUnverified       = "login_unverified"
	auditEventVerificationRequest   = "email_verification_request"
	auditEventVerificationConfirm   = "email_verification_confirm"
	auditEventRegister              = "account_register"
	auditEventProfileUpdate         = "profile_update"
	auditEventAccountDelete         = "account_delete"
	auditEventProviderProvisioned   = "provider_provisioned"
	auditEventLogoutSession         = "logout_session"
	auditEventLogoutAll             = "logout_all"
	auditEventNotificationFailure   = "notification_failure"
	auditEventSessionRenewalTouched = "session_renewal_touched"
)

// AuditErrorCode is the stable error classification carried in audit events.
type AuditErrorCode string

const (
	auditErrUserNotFound      AuditErrorCode = "user_not_found"
	auditErrInvalidCreds      AuditErrorCode = "invalid_credentials"
	auditErrAccountUnverified AuditErrorCode = "account_unverified"
	auditErrAlreadyVerified   AuditErrorCode = "already_verified"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrTokenExpired      AuditErrorCode = "token_expired"
	auditErrDuplicate         AuditErrorCode = "duplicate"
	auditErrInvalidInput      AuditErrorCode = "invalid_input"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrUnauthorized):
		return auditErrInvalidCreds
	case errors.Is(err, ErrForbidden):
		return auditErrAccountUnverified
	case errors.Is(err, ErrAlreadyVerified):
		return auditErrAlreadyVerified
	case errors.Is(err, ErrTooManyRequests):
		return auditErrRateLimited
	case errors.Is(err, ErrExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrConflict):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, session.ErrRedisUnavailable),
		errors.Is(err, stores.ErrVerificationRedisUnavailable),
		errors.Is(err, limiters.ErrResendLimiterUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) now() time.Time {
	if e != nil && e.clock != nil {
		return e.clock()
	}
	return time.Now()
}
