package flows

import (
	"context"
	"strconv"
)

type LogoutMetrics struct {
	Logout    int
	LogoutAll int
}

type LogoutEvents struct {
	Logout    string
	LogoutAll string
}

type LogoutErrors struct {
	EngineNotReady error
	Unauthorized   error
}

// LogoutDeps captures single-device and logout-everywhere dependencies.
type LogoutDeps struct {
	RemoveSession  func(ctx context.Context, userID, sessionID string) error
	DestroySession func(ctx context.Context, sessionID string) error
	LogoutAll      func(ctx context.Context, userID string) (int, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout drops sessionID from the user's index and deletes its record.
// Both steps are no-ops for sessions that are already gone.
func RunLogout(ctx context.Context, userID, sessionID string, deps LogoutDeps) error {
	normalizeLogoutDeps(&deps)

	if deps.RemoveSession == nil || deps.DestroySession == nil {
		return deps.Errors.EngineNotReady
	}
	if sessionID == "" {
		return deps.Errors.Unauthorized
	}

	if userID != "" {
		if err := deps.RemoveSession(ctx, userID, sessionID); err != nil {
			return err
		}
	}
	if err := deps.DestroySession(ctx, sessionID); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, nil)
	return nil
}

// RunLogoutAll ends every indexed session of userID.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) (int, error) {
	normalizeLogoutDeps(&deps)

	if deps.LogoutAll == nil {
		return 0, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return 0, deps.Errors.Unauthorized
	}

	n, err := deps.LogoutAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, userID, nil, func() map[string]string {
		return map[string]string{
			"sessions": itoa(n),
		}
	})
	return n, nil
}

func normalizeLogoutDeps(deps *LogoutDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func boolString(v bool) string {
	return strconv.FormatBool(v)
}
