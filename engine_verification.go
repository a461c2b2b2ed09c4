package sessionauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/sessionauth/internal"
	internalflows "github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/internal/limiters"
	"github.com/MrEthical07/sessionauth/internal/stores"
)

// IssueVerification describes the issueverification operation and its observable behavior.
//
// IssueVerification stores a single-use token bound to identifier (a user id
// or an email address) that expires after ttl.
func (e *Engine) IssueVerification(ctx context.Context, identifier string, ttl time.Duration) (string, error) {
	return internalflows.RunIssueVerification(ctx, identifier, ttl, e.verificationFlowDeps())
}

// RedeemVerification describes the redeemverification operation and its observable behavior.
//
// RedeemVerification consumes token atomically and returns its identifier.
// Unknown, expired and already redeemed tokens fail with [ErrExpired].
func (e *Engine) RedeemVerification(ctx context.Context, token string) (string, error) {
	return internalflows.RunRedeemVerification(ctx, token, e.verificationFlowDeps())
}

// ResendVerification describes the resendverification operation and its observable behavior.
//
// At most Config.Verification.ResendMaxAttempts resends are accepted per user
// per window; the window starts at the first request. A rejected request
// writes no token and sends no mail.
func (e *Engine) ResendVerification(ctx context.Context, identifier string) (string, error) {
	return internalflows.RunResendVerification(ctx, identifier, e.verificationFlowDeps())
}

// VerifyEmail redeems token and marks the bound account verified.
func (e *Engine) VerifyEmail(ctx context.Context, token string) (*PublicUser, error) {
	// Tokens we could never have issued skip the Redis round trip.
	if internal.ValidVerificationToken(token) != nil {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, "", errTokenExpired, nil)
		return nil, errTokenExpired
	}
	rec, err := internalflows.RunVerifyEmail(ctx, token, e.verificationFlowDeps())
	if err != nil {
		return nil, err
	}
	pub := ToPublicUser(fromUserRecord(*rec))
	return &pub, nil
}

func (e *Engine) tooManyResends() *Error {
	window := e.resend.RetryAfter()
	human := window.String()
	if window == time.Hour {
		human = "1 hour"
	}
	return TooManyRequestsError(fmt.Sprintf("Too many resend attempts. Try again after %s.", human), window)
}

func (e *Engine) setVerified(ctx context.Context, userID string) (*internalflows.UserRecord, error) {
	u, err := e.users.SetVerified(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rec := toUserRecord(*u)
	return &rec, nil
}

func (e *Engine) verificationFlowDeps() internalflows.VerificationDeps {
	return internalflows.VerificationDeps{
		ResendTTL:   e.config.Verification.LoginTTL,
		FindUser:    e.findUserRecord,
		NewToken:    internal.NewVerificationToken,
		SaveToken:   e.verification.Save,
		RedeemToken: e.verification.Redeem,
		IsTokenNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrVerificationNotFound)
		},
		CheckResend: e.resend.Check,
		IsRateLimited: func(err error) bool {
			return errors.Is(err, limiters.ErrResendRateLimited)
		},
		SetVerified:     e.setVerified,
		VerificationURL: e.VerificationURL,
		Notify:          e.notify,
		Now:             e.now,
		MetricInc:       e.metricFunc(),
		EmitAudit:       e.auditFunc(),
		Metrics: internalflows.VerificationMetrics{
			Issued:      int(MetricVerificationIssued),
			Redeemed:    int(MetricVerificationRedeemed),
			Failure:     int(MetricVerificationFailure),
			RateLimited: int(MetricResendRateLimited),
		},
		Events: internalflows.VerificationEvents{
			Request: auditEventVerificationRequest,
			Confirm: auditEventVerificationConfirm,
		},
		Errors: internalflows.VerificationErrors{
			EngineNotReady:  ErrEngineNotReady,
			NotFound:        errUserNotFound,
			AlreadyVerified: errAlreadyVerified,
			TooManyRequests: e.tooManyResends(),
			Expired:         errTokenExpired,
		},
	}
}
