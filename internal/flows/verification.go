package flows

import (
	"context"
	"time"
)

type VerificationMetrics struct {
	Issued      int
	Redeemed    int
	Failure     int
	RateLimited int
}

type VerificationEvents struct {
	Request string
	Confirm string
}

type VerificationErrors struct {
	EngineNotReady  error
	NotFound        error
	AlreadyVerified error
	TooManyRequests error
	Expired         error
}

// VerificationDeps captures verification token dependencies.
type VerificationDeps struct {
	ResendTTL time.Duration

	FindUser        FindUserFunc
	NewToken        func() (string, error)
	SaveToken       func(ctx context.Context, token, identifier string, ttl time.Duration) error
	RedeemToken     func(ctx context.Context, token string) (string, error)
	IsTokenNotFound func(error) bool
	CheckResend     func(ctx context.Context, userID string) error
	IsRateLimited   func(error) bool
	SetVerified     func(ctx context.Context, userID string) (*UserRecord, error)
	VerificationURL func(token string) string
	Notify          NotifyFunc
	Now             func() time.Time

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics VerificationMetrics
	Events  VerificationEvents
	Errors  VerificationErrors
}

// RunIssueVerification stores a new random token bound to identifier for
// ttl. Earlier tokens for the same identifier stay valid until they expire.
func RunIssueVerification(ctx context.Context, identifier string, ttl time.Duration, deps VerificationDeps) (string, error) {
	normalizeVerificationDeps(&deps)

	if deps.NewToken == nil || deps.SaveToken == nil {
		return "", deps.Errors.EngineNotReady
	}

	token, err := deps.NewToken()
	if err != nil {
		return "", err
	}
	if err := deps.SaveToken(ctx, token, identifier, ttl); err != nil {
		return "", err
	}

	deps.MetricInc(deps.Metrics.Issued)
	return token, nil
}

// RunRedeemVerification consumes token and returns the identifier it was
// bound to. A token can be redeemed once; absent or used tokens are Expired.
func RunRedeemVerification(ctx context.Context, token string, deps VerificationDeps) (string, error) {
	normalizeVerificationDeps(&deps)

	if deps.RedeemToken == nil {
		return "", deps.Errors.EngineNotReady
	}
	if token == "" {
		deps.MetricInc(deps.Metrics.Failure)
		return "", deps.Errors.Expired
	}

	identifier, err := deps.RedeemToken(ctx, token)
	if err != nil {
		if deps.IsTokenNotFound(err) {
			deps.MetricInc(deps.Metrics.Failure)
			deps.EmitAudit(ctx, deps.Events.Confirm, false, "", deps.Errors.Expired, nil)
			return "", deps.Errors.Expired
		}
		return "", err
	}

	deps.MetricInc(deps.Metrics.Redeemed)
	return identifier, nil
}

// RunResendVerification issues and mails a new token to an unverified user,
// at most MaxAttempts times per window. Once the budget is spent no token
// is written and no mail is sent.
func RunResendVerification(ctx context.Context, identifier string, deps VerificationDeps) (string, error) {
	normalizeVerificationDeps(&deps)

	if deps.FindUser == nil || deps.CheckResend == nil {
		return "", deps.Errors.EngineNotReady
	}

	user, err := deps.FindUser(ctx, identifier)
	if err != nil {
		return "", err
	}
	if user == nil || user.IsDeleted {
		deps.EmitAudit(ctx, deps.Events.Request, false, "", deps.Errors.NotFound, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
			}
		})
		return "", deps.Errors.NotFound
	}
	if user.IsVerified {
		deps.EmitAudit(ctx, deps.Events.Request, false, user.ID, deps.Errors.AlreadyVerified, nil)
		return "", deps.Errors.AlreadyVerified
	}

	if err := deps.CheckResend(ctx, user.ID); err != nil {
		if deps.IsRateLimited(err) {
			deps.MetricInc(deps.Metrics.RateLimited)
			deps.EmitAudit(ctx, deps.Events.Request, false, user.ID, deps.Errors.TooManyRequests, nil)
			return "", deps.Errors.TooManyRequests
		}
		return "", err
	}

	token, err := RunIssueVerification(ctx, user.ID, deps.ResendTTL, deps)
	if err != nil {
		return "", err
	}
	deps.Notify(ctx, VerificationMail(*user, deps.VerificationURL(token), deps.Now()))

	deps.EmitAudit(ctx, deps.Events.Request, true, user.ID, nil, nil)
	return token, nil
}

// RunVerifyEmail redeems token and marks the bound user verified.
func RunVerifyEmail(ctx context.Context, token string, deps VerificationDeps) (*UserRecord, error) {
	normalizeVerificationDeps(&deps)

	if deps.FindUser == nil || deps.SetVerified == nil {
		return nil, deps.Errors.EngineNotReady
	}

	identifier, err := RunRedeemVerification(ctx, token, deps)
	if err != nil {
		return nil, err
	}

	user, err := deps.FindUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDeleted {
		deps.EmitAudit(ctx, deps.Events.Confirm, false, "", deps.Errors.NotFound, nil)
		return nil, deps.Errors.NotFound
	}

	updated, err := deps.SetVerified(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, deps.Errors.NotFound
	}

	deps.EmitAudit(ctx, deps.Events.Confirm, true, updated.ID, nil, nil)
	return updated, nil
}

func normalizeVerificationDeps(deps *VerificationDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ResendTTL <= 0 {
		deps.ResendTTL = time.Hour
	}
	if deps.IsTokenNotFound == nil {
		deps.IsTokenNotFound = func(error) bool { return false }
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}
	if deps.VerificationURL == nil {
		deps.VerificationURL = func(token string) string { return token }
	}
	if deps.Notify == nil {
		deps.Notify = func(context.Context, Mail) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}
