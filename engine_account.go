package sessionauth

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/MrEthical07/sessionauth/internal/flows"
)

// Register describes the register operation and its observable behavior.
//
// Register creates an unverified account and mails a verification link bound
// to the email address. Email and username must be unused; a clash fails
// with [ErrConflict]. A mail failure does not fail registration.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*PublicUser, error) {
	rec, err := internalflows.RunRegister(ctx, internalflows.RegisterRequest{
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
		Password: in.Password,
	}, e.accountFlowDeps())
	if err != nil {
		if errors.Is(err, ErrConflict) {
			e.metricInc(MetricRegisterDuplicate)
		}
		return nil, err
	}
	pub := ToPublicUser(fromUserRecord(*rec))
	return &pub, nil
}

// GetProfile returns the public profile of an active account. Unverified and
// deleted accounts fail with [ErrNotFound].
func (e *Engine) GetProfile(ctx context.Context, userID string) (*PublicUser, error) {
	rec, err := internalflows.RunGetProfile(ctx, userID, e.accountFlowDeps())
	if err != nil {
		return nil, err
	}
	pub := ToPublicUser(fromUserRecord(*rec))
	return &pub, nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// Only name, username and password can change. The account must be active
// according to the stored record. A new password is hashed before it is
// written.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*PublicUser, error) {
	rec, err := internalflows.RunUpdateProfile(ctx, userID, internalflows.ProfileChange{
		Name:     in.Name,
		Username: in.Username,
		Password: in.Password,
	}, e.accountFlowDeps())
	if err != nil {
		return nil, err
	}
	pub := ToPublicUser(fromUserRecord(*rec))
	return &pub, nil
}

// DeleteAccount soft-deletes the account and ends all of its sessions.
func (e *Engine) DeleteAccount(ctx context.Context, userID string) error {
	_, err := internalflows.RunDeleteAccount(ctx, userID, e.accountFlowDeps())
	return err
}

func (e *Engine) updateUser(ctx context.Context, userID string, patch internalflows.StoredPatch) (*internalflows.UserRecord, error) {
	u, err := e.users.Update(ctx, userID, UserPatch{
		Name:         patch.Name,
		Username:     patch.Username,
		PasswordHash: patch.PasswordHash,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rec := toUserRecord(*u)
	return &rec, nil
}

func (e *Engine) accountFlowDeps() internalflows.AccountDeps {
	return internalflows.AccountDeps{
		RegistrationTTL: e.config.Verification.RegistrationTTL,
		FindUser:        e.findUserRecord,
		HashPassword:    e.hashPassword,
		CreateUser:      e.createUser,
		UpdateUser:      e.updateUser,
		SoftDelete:      e.users.SoftDelete,
		LogoutAll:       e.registry.LogoutAll,
		IssueVerification: func(ctx context.Context, identifier string, ttl time.Duration) (string, error) {
			return e.IssueVerification(ctx, identifier, ttl)
		},
		VerificationURL: e.VerificationURL,
		IsConflict:      e.isConflict,
		Notify:          e.notify,
		Now:             e.now,
		MetricInc:       e.metricFunc(),
		EmitAudit:       e.auditFunc(),
		Metrics: internalflows.AccountMetrics{
			Registered:     int(MetricRegisterSuccess),
			ProfileUpdated: int(MetricProfileUpdated),
			Deleted:        int(MetricAccountDeleted),
		},
		Events: internalflows.AccountEvents{
			Register: auditEventRegister,
			Update:   auditEventProfileUpdate,
			Delete:   auditEventAccountDelete,
		},
		Errors: internalflows.AccountErrors{
			EngineNotReady: ErrEngineNotReady,
			NotFound:       errUserNotFound,
			EmailTaken:     errEmailTaken,
			UsernameTaken:  errUsernameTaken,
			InvalidInput:   errInvalidInput,
		},
	}
}
