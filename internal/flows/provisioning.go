package flows

import (
	"context"
	"strings"
)

type ProvisioningMetrics struct {
	Provisioned int
	Existing    int
}

type ProvisioningEvents struct {
	Provisioned string
}

type ProvisioningErrors struct {
	EngineNotReady error
	NotFound       error
	InvalidInput   error
}

// ProviderIdentity is the flow-local copy of an external identity assertion.
type ProviderIdentity struct {
	Email    string
	Name     string
	Provider string
}

// ProvisioningDeps captures provider provisioning dependencies.
type ProvisioningDeps struct {
	FindUser   FindUserFunc
	CreateUser func(ctx context.Context, user UserRecord) (string, error)
	IsConflict func(error) bool

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics ProvisioningMetrics
	Events  ProvisioningEvents
	Errors  ProvisioningErrors
}

// RunProvisionFromProvider returns the user for identity.Email, creating a
// verified account with no local password when none exists. Losing a
// concurrent create race surfaces as a uniqueness conflict and falls back to
// the row the winner inserted.
func RunProvisionFromProvider(ctx context.Context, identity ProviderIdentity, deps ProvisioningDeps) (*UserRecord, error) {
	normalizeProvisioningDeps(&deps)

	if deps.FindUser == nil || deps.CreateUser == nil {
		return nil, deps.Errors.EngineNotReady
	}
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return nil, deps.Errors.InvalidInput
	}

	existing, err := deps.FindUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsDeleted {
			return nil, deps.Errors.NotFound
		}
		deps.MetricInc(deps.Metrics.Existing)
		return existing, nil
	}

	_, err = deps.CreateUser(ctx, UserRecord{
		Email:        email,
		Name:         identity.Name,
		PasswordHash: "",
		IsVerified:   true,
	})
	if err != nil && !deps.IsConflict(err) {
		return nil, err
	}

	created, err := deps.FindUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, deps.Errors.NotFound
	}

	deps.MetricInc(deps.Metrics.Provisioned)
	deps.EmitAudit(ctx, deps.Events.Provisioned, true, created.ID, nil, func() map[string]string {
		return map[string]string{
			"provider": identity.Provider,
		}
	})
	return created, nil
}

func normalizeProvisioningDeps(deps *ProvisioningDeps) {
	if deps.IsConflict == nil {
		deps.IsConflict = func(error) bool { return false }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}
