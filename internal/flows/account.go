package flows

import (
	"context"
	"strings"
	"time"
)

type AccountMetrics struct {
	Registered     int
	ProfileUpdated int
	Deleted        int
}

type AccountEvents struct {
	Register string
	Update   string
	Delete   string
}

type AccountErrors struct {
	EngineNotReady error
	NotFound       error
	EmailTaken     error
	UsernameTaken  error
	InvalidInput   error
}

// RegisterRequest is the flow-local registration input. Password is plain
// text and is hashed before anything is written.
type RegisterRequest struct {
	Email    string
	Username string
	Name     string
	Password string
}

// ProfileChange lists the fields a user may change on their own account.
// Nil fields are left unchanged; Password is plain text.
type ProfileChange struct {
	Name     *string
	Username *string
	Password *string
}

// StoredPatch is the persisted form of a ProfileChange.
type StoredPatch struct {
	Name         *string
	Username     *string
	PasswordHash *string
}

// AccountDeps captures registration and profile dependencies.
type AccountDeps struct {
	RegistrationTTL time.Duration

	FindUser          FindUserFunc
	HashPassword      func(password string) (string, error)
	CreateUser        func(ctx context.Context, user UserRecord) (string, error)
	UpdateUser        func(ctx context.Context, userID string, patch StoredPatch) (*UserRecord, error)
	SoftDelete        func(ctx context.Context, userID string) error
	LogoutAll         func(ctx context.Context, userID string) (int, error)
	IssueVerification func(ctx context.Context, identifier string, ttl time.Duration) (string, error)
	VerificationURL   func(token string) string
	IsConflict        func(error) bool
	Notify            NotifyFunc
	Now               func() time.Time

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

// RunRegister creates an unverified local account and mails a registration
// verification link bound to the email address.
func RunRegister(ctx context.Context, req RegisterRequest, deps AccountDeps) (*UserRecord, error) {
	normalizeAccountDeps(&deps)

	if deps.FindUser == nil || deps.HashPassword == nil || deps.CreateUser == nil || deps.IssueVerification == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)
	if email == "" || req.Password == "" {
		return nil, deps.Errors.InvalidInput
	}

	existing, err := deps.FindUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		deps.EmitAudit(ctx, deps.Events.Register, false, "", deps.Errors.EmailTaken, nil)
		return nil, deps.Errors.EmailTaken
	}
	if username != "" {
		existing, err = deps.FindUser(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			deps.EmitAudit(ctx, deps.Events.Register, false, "", deps.Errors.UsernameTaken, nil)
			return nil, deps.Errors.UsernameTaken
		}
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	id, err := deps.CreateUser(ctx, UserRecord{
		Email:        email,
		Username:     username,
		Name:         req.Name,
		PasswordHash: hash,
	})
	if err != nil {
		if deps.IsConflict(err) {
			// lost a race with a concurrent registration
			return nil, deps.Errors.EmailTaken
		}
		return nil, err
	}

	created, err := deps.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, deps.Errors.NotFound
	}

	token, err := deps.IssueVerification(ctx, created.Email, deps.RegistrationTTL)
	if err != nil {
		return nil, err
	}
	deps.Notify(ctx, VerificationMail(*created, deps.VerificationURL(token), deps.Now()))

	deps.MetricInc(deps.Metrics.Registered)
	deps.EmitAudit(ctx, deps.Events.Register, true, created.ID, nil, nil)
	return created, nil
}

// RunGetProfile returns the record for userID when the account is verified
// and not deleted.
func RunGetProfile(ctx context.Context, userID string, deps AccountDeps) (*UserRecord, error) {
	normalizeAccountDeps(&deps)

	if deps.FindUser == nil {
		return nil, deps.Errors.EngineNotReady
	}
	return findActive(ctx, userID, deps)
}

// RunUpdateProfile applies change to an active account. The active check is
// made against the stored record, never the input.
func RunUpdateProfile(ctx context.Context, userID string, change ProfileChange, deps AccountDeps) (*UserRecord, error) {
	normalizeAccountDeps(&deps)

	if deps.FindUser == nil || deps.UpdateUser == nil || deps.HashPassword == nil {
		return nil, deps.Errors.EngineNotReady
	}

	current, err := findActive(ctx, userID, deps)
	if err != nil {
		return nil, err
	}

	var patch StoredPatch
	if change.Name != nil {
		name := strings.TrimSpace(*change.Name)
		patch.Name = &name
	}
	if change.Username != nil {
		username := strings.TrimSpace(*change.Username)
		if username == "" {
			return nil, deps.Errors.InvalidInput
		}
		if username != current.Username {
			other, err := deps.FindUser(ctx, username)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != current.ID {
				deps.EmitAudit(ctx, deps.Events.Update, false, current.ID, deps.Errors.UsernameTaken, nil)
				return nil, deps.Errors.UsernameTaken
			}
		}
		patch.Username = &username
	}
	if change.Password != nil {
		hash, err := deps.HashPassword(*change.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	updated, err := deps.UpdateUser(ctx, current.ID, patch)
	if err != nil {
		if deps.IsConflict(err) {
			return nil, deps.Errors.UsernameTaken
		}
		return nil, err
	}
	if updated == nil || !active(updated) {
		return nil, deps.Errors.NotFound
	}

	deps.MetricInc(deps.Metrics.ProfileUpdated)
	deps.EmitAudit(ctx, deps.Events.Update, true, updated.ID, nil, func() map[string]string {
		return map[string]string{
			"password_changed": boolString(patch.PasswordHash != nil),
		}
	})
	return updated, nil
}

// RunDeleteAccount soft-deletes the account and then ends every session it
// owns. It returns the number of sessions that were indexed.
func RunDeleteAccount(ctx context.Context, userID string, deps AccountDeps) (int, error) {
	normalizeAccountDeps(&deps)

	if deps.FindUser == nil || deps.SoftDelete == nil || deps.LogoutAll == nil {
		return 0, deps.Errors.EngineNotReady
	}

	user, err := deps.FindUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil || user.IsDeleted {
		return 0, deps.Errors.NotFound
	}

	if err := deps.SoftDelete(ctx, user.ID); err != nil {
		return 0, err
	}
	n, err := deps.LogoutAll(ctx, user.ID)
	if err != nil {
		return 0, err
	}

	deps.MetricInc(deps.Metrics.Deleted)
	deps.EmitAudit(ctx, deps.Events.Delete, true, user.ID, nil, func() map[string]string {
		return map[string]string{
			"sessions": itoa(n),
		}
	})
	return n, nil
}

func findActive(ctx context.Context, userID string, deps AccountDeps) (*UserRecord, error) {
	if userID == "" {
		return nil, deps.Errors.NotFound
	}
	user, err := deps.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !active(user) {
		return nil, deps.Errors.NotFound
	}
	return user, nil
}

func active(u *UserRecord) bool {
	return u != nil && u.IsVerified && !u.IsDeleted
}

func normalizeAccountDeps(deps *AccountDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RegistrationTTL <= 0 {
		deps.RegistrationTTL = 2 * time.Hour
	}
	if deps.IsConflict == nil {
		deps.IsConflict = func(error) bool { return false }
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
