package sessionauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth/internal"
	"github.com/MrEthical07/sessionauth/internal/audit"
	internalflows "github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/internal/limiters"
	"github.com/MrEthical07/sessionauth/internal/stores"
	"github.com/MrEthical07/sessionauth/password"
	"github.com/MrEthical07/sessionauth/session"
	"github.com/redis/go-redis/v9"
)

var (
	errUserNotFound       = NotFoundError("User not found")
	errInvalidCredentials = UnauthorizedError("Invalid credentials")
	errNotAuthenticated   = UnauthorizedError("Not authenticated")
	errVerifyFirst        = ForbiddenError("Please verify your email before logging in")
	errAlreadyVerified    = AlreadyVerifiedError("User is already verified")
	errTokenExpired       = ExpiredError("token expired")
	errEmailTaken         = ConflictError("user already exists with email")
	errUsernameTaken      = ConflictError("user already exists with username")
	errInvalidInput       = InvalidInputError("invalid input")
	errPasswordTooShort   = InvalidInputError(fmt.Sprintf("password must be at least %d characters", password.MinPasswordBytes))
	errPasswordTooLong    = InvalidInputError("password is too long")
)

// Engine is the session and credential lifecycle core. It is safe for
// concurrent use once built; the audit dispatcher is the only goroutine it
// owns.
type Engine struct {
	config       Config
	redis        redis.UniversalClient
	users        UserStore
	sessions     *session.Store
	registry     *session.Registry
	renewal      *session.RenewalPolicy
	verification *stores.VerificationStore
	resend       *limiters.ResendLimiter
	hasher       password.Hasher
	notifier     Notifier
	logger       *slog.Logger
	audit        *audit.Dispatcher
	metrics      *Metrics
	clock        func() time.Time
}

// Close drains and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped reports events discarded because the dispatcher queue was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.config
}

// SessionStore exposes the Redis session record store so the request layer
// can build its cookie carrier over the same records the engine purges.
func (e *Engine) SessionStore() *session.Store {
	return e.sessions
}

// Ping reports whether Redis answers. It backs the liveness endpoint.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.redis == nil {
		return ErrEngineNotReady
	}
	if err := e.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", session.ErrRedisUnavailable, err)
	}
	return nil
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() (string, error) {
	return internal.NewSessionID()
}

// VerificationURL is the link mailed for token.
func (e *Engine) VerificationURL(token string) string {
	base := strings.TrimRight(e.config.Verification.AppDomain, "/")
	return base + e.config.Verification.VerifyPath + "?token=" + token
}

func (e *Engine) findUserRecord(ctx context.Context, identifier string) (*internalflows.UserRecord, error) {
	if e.users == nil {
		return nil, ErrEngineNotReady
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	u, err := e.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	rec := toUserRecord(*u)
	return &rec, nil
}

func (e *Engine) hashPassword(plain string) (string, error) {
	hash, err := e.hasher.Hash(plain)
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "", errPasswordTooShort
	case errors.Is(err, password.ErrPasswordTooLong):
		return "", errPasswordTooLong
	}
	return hash, err
}

// notify hands mail to the notifier. Failures are logged and counted but
// never returned.
func (e *Engine) notify(ctx context.Context, mail internalflows.Mail) {
	err := e.notifier.Send(ctx, Message{
		To:       mail.To,
		Subject:  mail.Subject,
		Template: mail.Template,
		Data:     mail.Data,
	})
	if err == nil {
		return
	}

	e.logger.WarnContext(ctx, "notification failed",
		slog.String("template", mail.Template),
		slog.String("error", err.Error()),
	)
	e.metricInc(MetricNotifyFailure)
	e.emitAudit(ctx, auditEventNotificationFailure, false, "", err, func() map[string]string {
		return map[string]string{
			"template": mail.Template,
		}
	})
}

func (e *Engine) isConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func toUserRecord(u User) internalflows.UserRecord {
	return internalflows.UserRecord{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		IsVerified:   u.IsVerified,
		IsDeleted:    u.IsDeleted,
		CreatedAt:    u.CreatedAt,
	}
}

func fromUserRecord(r internalflows.UserRecord) User {
	return User{
		ID:           r.ID,
		Email:        r.Email,
		Username:     r.Username,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		IsVerified:   r.IsVerified,
		IsDeleted:    r.IsDeleted,
		CreatedAt:    r.CreatedAt,
	}
}

func (e *Engine) auditFunc() internalflows.AuditFunc {
	return func(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string) {
		e.emitAudit(ctx, eventType, success, userID, err, metadata)
	}
}

func (e *Engine) metricFunc() func(int) {
	return func(id int) {
		e.metricInc(MetricID(id))
	}
}
