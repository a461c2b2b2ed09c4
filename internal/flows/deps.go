package flows

import (
	"context"
	"time"
)

// UserRecord is the flow-local user model. The Engine converts to and from
// its public User type at the boundary.
type UserRecord struct {
	ID           string
	Email        string
	Username     string
	Name         string
	PasswordHash string
	IsVerified   bool
	IsDeleted    bool
	CreatedAt    time.Time
}

// FindUserFunc resolves an id, email or username. It returns (nil, nil)
// when nothing matches.
type FindUserFunc func(ctx context.Context, identifier string) (*UserRecord, error)

// AuditFunc records one audit event. metadata may be nil and is only
// evaluated when auditing is enabled.
type AuditFunc func(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string)

// Mail describes a templated message handed to the notifier.
type Mail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// NotifyFunc delivers a message. Delivery failures are logged by the
// implementation and never reach the flow.
type NotifyFunc func(ctx context.Context, mail Mail)

// Deps groups flow dependency sets. Root engine builds these per call and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Credentials  CredentialsDeps
	Verification VerificationDeps
	Provisioning ProvisioningDeps
	Account      AccountDeps
	Logout       LogoutDeps
}

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopMetric(int) {}
