package flows

import (
	"context"
	"time"
)

const verifyTemplate = "verify"

type CredentialsMetrics struct {
	LoginSuccess    int
	LoginFailure    int
	LoginUnverified int
	SessionCreated  int
}

type CredentialsEvents struct {
	LoginSuccess    string
	LoginFailure    string
	LoginUnverified string
}

type CredentialsErrors struct {
	EngineNotReady error
	NotFound       error
	Unauthorized   error
	Forbidden      error
}

// CredentialsDeps captures credential verification and login dependencies.
type CredentialsDeps struct {
	VerificationTTL time.Duration

	FindUser          FindUserFunc
	VerifyPassword    func(password, encodedHash string) (bool, error)
	IssueVerification func(ctx context.Context, identifier string, ttl time.Duration) (string, error)
	VerificationURL   func(token string) string
	Notify            NotifyFunc
	AddSession        func(ctx context.Context, userID, sessionID string) error
	// Rehash runs after a successful password check and may rewrite a hash
	// stored with outdated parameters. It must not fail the login.
	Rehash func(ctx context.Context, user UserRecord, password string)
	Now    func() time.Time

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics CredentialsMetrics
	Events  CredentialsEvents
	Errors  CredentialsErrors
}

// LoginResult is what the request layer writes into the session carrier.
type LoginResult struct {
	User          UserRecord
	EstablishedAt time.Time
}

// RunVerifyCredentials resolves identifier and checks password. Deleted and
// unknown users are NotFound. An unverified user gets a fresh verification
// token and mail, then Forbidden. Accounts without a local password hash
// (provider accounts) are Unauthorized without any comparison.
func RunVerifyCredentials(ctx context.Context, identifier, password string, deps CredentialsDeps) (*UserRecord, error) {
	normalizeCredentialsDeps(&deps)

	if deps.FindUser == nil || deps.VerifyPassword == nil || deps.IssueVerification == nil {
		return nil, deps.Errors.EngineNotReady
	}

	user, err := deps.FindUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDeleted {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.NotFound, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
			}
		})
		return nil, deps.Errors.NotFound
	}

	if !user.IsVerified {
		token, err := deps.IssueVerification(ctx, user.ID, deps.VerificationTTL)
		if err != nil {
			return nil, err
		}
		deps.Notify(ctx, VerificationMail(*user, deps.VerificationURL(token), deps.Now()))

		deps.MetricInc(deps.Metrics.LoginUnverified)
		deps.EmitAudit(ctx, deps.Events.LoginUnverified, false, user.ID, deps.Errors.Forbidden, nil)
		return nil, deps.Errors.Forbidden
	}

	if user.PasswordHash == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, deps.Errors.Unauthorized, func() map[string]string {
			return map[string]string{
				"reason": "no_local_password",
			}
		})
		return nil, deps.Errors.Unauthorized
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		reason := "password_mismatch"
		if err != nil {
			reason = "hash_unreadable"
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, deps.Errors.Unauthorized, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, deps.Errors.Unauthorized
	}

	deps.Rehash(ctx, *user, password)
	return user, nil
}

// RunLogin verifies credentials and indexes sessionID under the user. If the
// index write fails the login fails as a whole and nothing is handed back
// for the carrier.
func RunLogin(ctx context.Context, identifier, password, sessionID string, deps CredentialsDeps) (*LoginResult, error) {
	normalizeCredentialsDeps(&deps)

	if deps.AddSession == nil || sessionID == "" {
		return nil, deps.Errors.EngineNotReady
	}

	user, err := RunVerifyCredentials(ctx, identifier, password, deps)
	if err != nil {
		return nil, err
	}

	if err := deps.AddSession(ctx, user.ID, sessionID); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, err, func() map[string]string {
			return map[string]string{
				"reason": "session_index_failed",
			}
		})
		return nil, err
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, nil, nil)

	return &LoginResult{
		User:          *user,
		EstablishedAt: deps.Now(),
	}, nil
}

// VerificationMail builds the "verify" template message for user.
func VerificationMail(user UserRecord, verificationURL string, now time.Time) Mail {
	return Mail{
		To:       user.Email,
		Subject:  "please verify your email",
		Template: verifyTemplate,
		Data: map[string]any{
			"name":            user.Name,
			"verificationUrl": verificationURL,
			"year":            now.Year(),
		},
	}
}

func normalizeCredentialsDeps(deps *CredentialsDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.VerificationTTL <= 0 {
		deps.VerificationTTL = time.Hour
	}
	if deps.VerificationURL == nil {
		deps.VerificationURL = func(token string) string { return token }
	}
	if deps.Notify == nil {
		deps.Notify = func(context.Context, Mail) {}
	}
	if deps.Rehash == nil {
		deps.Rehash = func(context.Context, UserRecord, string) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}
