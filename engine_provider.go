package sessionauth

import (
	"context"
	"errors"

	internalflows "github.com/MrEthical07/sessionauth/internal/flows"
)

// ProvisionFromProvider describes the provisionfromprovider operation and its observable behavior.
//
// ProvisionFromProvider returns the account for identity.Email, creating a
// verified account without a local password on first sight. Repeated and
// concurrent calls for the same email converge on one account.
func (e *Engine) ProvisionFromProvider(ctx context.Context, identity ProviderIdentity) (*PublicUser, error) {
	rec, err := internalflows.RunProvisionFromProvider(ctx, internalflows.ProviderIdentity{
		Email:    identity.Email,
		Name:     identity.Name,
		Provider: identity.Provider,
	}, e.provisioningFlowDeps())
	if err != nil {
		return nil, err
	}
	pub := ToPublicUser(fromUserRecord(*rec))
	return &pub, nil
}

func (e *Engine) createUser(ctx context.Context, rec internalflows.UserRecord) (string, error) {
	return e.users.Create(ctx, NewUser{
		Email:        rec.Email,
		Username:     rec.Username,
		Name:         rec.Name,
		PasswordHash: rec.PasswordHash,
		IsVerified:   rec.IsVerified,
	})
}

func (e *Engine) provisioningFlowDeps() internalflows.ProvisioningDeps {
	return internalflows.ProvisioningDeps{
		FindUser:   e.findUserRecord,
		CreateUser: e.createUser,
		IsConflict: func(err error) bool { return errors.Is(err, ErrConflict) },
		MetricInc:  e.metricFunc(),
		EmitAudit:  e.auditFunc(),
		Metrics: internalflows.ProvisioningMetrics{
			Provisioned: int(MetricProviderProvisioned),
			Existing:    int(MetricProviderExisting),
		},
		Events: internalflows.ProvisioningEvents{
			Provisioned: auditEventProviderProvisioned,
		},
		Errors: internalflows.ProvisioningErrors{
			EngineNotReady: ErrEngineNotReady,
			NotFound:       errUserNotFound,
			InvalidInput:   InvalidInputError("provider returned no email"),
		},
	}
}
