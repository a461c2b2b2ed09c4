package sessionauth

import (
	"context"
	"log/slog"
	"time"

	internalflows "github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/password"
)

// VerifyCredentials describes the verifycredentials operation and its observable behavior.
//
// identifier may be a user id, email or username. Unknown and deleted users
// fail with [ErrNotFound]. An unverified user is sent a fresh verification
// link and fails with [ErrForbidden]. Accounts created through an identity
// provider have no local password and fail with [ErrUnauthorized], as does a
// wrong password.
func (e *Engine) VerifyCredentials(ctx context.Context, identifier, password string) (*User, error) {
	rec, err := internalflows.RunVerifyCredentials(ctx, identifier, password, e.credentialsFlowDeps())
	if err != nil {
		return nil, err
	}
	u := fromUserRecord(*rec)
	return &u, nil
}

// Login describes the login operation and its observable behavior.
//
// Login verifies credentials and indexes sessionID under the user so that
// [Engine.LogoutAll] can find it. The caller writes the result into its
// session carrier and saves it.
func (e *Engine) Login(ctx context.Context, identifier, password, sessionID string) (*SessionResult, error) {
	start := e.now()
	defer func() {
		e.metrics.Observe(MetricLoginLatency, e.now().Sub(start))
	}()

	res, err := internalflows.RunLogin(ctx, identifier, password, sessionID, e.credentialsFlowDeps())
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		UserID:        res.User.ID,
		EstablishedAt: res.EstablishedAt,
	}, nil
}

func (e *Engine) credentialsFlowDeps() internalflows.CredentialsDeps {
	return internalflows.CredentialsDeps{
		VerificationTTL: e.config.Verification.LoginTTL,
		FindUser:        e.findUserRecord,
		VerifyPassword:  e.hasher.Verify,
		IssueVerification: func(ctx context.Context, identifier string, ttl time.Duration) (string, error) {
			return e.IssueVerification(ctx, identifier, ttl)
		},
		VerificationURL: e.VerificationURL,
		Notify:          e.notify,
		AddSession:      e.registry.AddSession,
		Rehash:          e.rehashIfOutdated,
		Now:             e.now,
		MetricInc:       e.metricFunc(),
		EmitAudit:       e.auditFunc(),
		Metrics: internalflows.CredentialsMetrics{
			LoginSuccess:    int(MetricLoginSuccess),
			LoginFailure:    int(MetricLoginFailure),
			LoginUnverified: int(MetricLoginUnverified),
			SessionCreated:  int(MetricSessionCreated),
		},
		Events: internalflows.CredentialsEvents{
			LoginSuccess:    auditEventLoginSuccess,
			LoginFailure:    auditEventLoginFailure,
			LoginUnverified: auditEventLoginUnverified,
		},
		Errors: internalflows.CredentialsErrors{
			EngineNotReady: ErrEngineNotReady,
			NotFound:       errUserNotFound,
			Unauthorized:   errInvalidCredentials,
			Forbidden:      errVerifyFirst,
		},
	}
}

// rehashIfOutdated rewrites the stored hash when the hasher reports it was
// written with a weaker cost or a different algorithm. Failures are logged.
func (e *Engine) rehashIfOutdated(ctx context.Context, user internalflows.UserRecord, plain string) {
	up, ok := e.hasher.(password.Upgrader)
	if !ok {
		return
	}
	outdated, err := up.NeedsUpgrade(user.PasswordHash)
	if err != nil || !outdated {
		return
	}

	hash, err := e.hasher.Hash(plain)
	if err == nil {
		_, err = e.users.Update(ctx, user.ID, UserPatch{PasswordHash: &hash})
	}
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	e.metricInc(MetricPasswordRehashed)
}
