package sessionauth

import (
	"context"

	internalflows "github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/session"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout removes sessionID from the user's index and deletes its record.
// Ending a session that is already gone is not an error.
func (e *Engine) Logout(ctx context.Context, userID, sessionID string) error {
	return internalflows.RunLogout(ctx, userID, sessionID, e.logoutFlowDeps())
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll deletes every session indexed under userID, including the
// caller's own, in one transaction and returns how many were indexed. A
// session added concurrently with the purge may survive it.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	return internalflows.RunLogoutAll(ctx, userID, e.logoutFlowDeps())
}

// EstablishSession indexes sessionID under an already authenticated user.
// Provider logins use it in place of [Engine.Login].
func (e *Engine) EstablishSession(ctx context.Context, userID, sessionID string) (*SessionResult, error) {
	if userID == "" || sessionID == "" {
		return nil, errNotAuthenticated
	}
	if err := e.registry.AddSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	e.metricInc(MetricSessionCreated)
	return &SessionResult{UserID: userID, EstablishedAt: e.now()}, nil
}

// Sessions lists the session ids currently indexed for userID.
func (e *Engine) Sessions(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, errNotAuthenticated
	}
	return e.registry.Sessions(ctx, userID)
}

// RenewSession applies the renewal policy to an authenticated carrier.
// Failures inside the policy are logged, never returned.
func (e *Engine) RenewSession(ctx context.Context, c session.Carrier) session.RenewalOutcome {
	outcome := e.renewal.Apply(ctx, c)
	if outcome == session.RenewalTouched {
		e.metricInc(MetricSessionRenewed)
		e.emitAudit(ctx, auditEventSessionRenewalTouched, true, c.UserID(), nil, nil)
	}
	return outcome
}

func (e *Engine) logoutFlowDeps() internalflows.LogoutDeps {
	return internalflows.LogoutDeps{
		RemoveSession:  e.registry.RemoveSession,
		DestroySession: e.sessions.Destroy,
		LogoutAll:      e.registry.LogoutAll,
		MetricInc:      e.metricFunc(),
		EmitAudit:      e.auditFunc(),
		Metrics: internalflows.LogoutMetrics{
			Logout:    int(MetricLogout),
			LogoutAll: int(MetricLogoutAll),
		},
		Events: internalflows.LogoutEvents{
			Logout:    auditEventLogoutSession,
			LogoutAll: auditEventLogoutAll,
		},
		Errors: internalflows.LogoutErrors{
			EngineNotReady: ErrEngineNotReady,
			Unauthorized:   errNotAuthenticated,
		},
	}
}
