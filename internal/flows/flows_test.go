package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

var (
	errNotReady     = errors.New("not ready")
	errNotFound     = errors.New("not found")
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
	errVerified     = errors.New("already verified")
	errTooMany      = errors.New("too many")
	errExpired      = errors.New("expired")
	errConflict     = errors.New("conflict")
	errEmailTaken   = errors.New("email taken")
	errNameTaken    = errors.New("username taken")
	errInvalid      = errors.New("invalid")
	errRateLimited  = errors.New("rate limited")
	errTokenMissing = errors.New("token missing")
)

type fakeUsers struct {
	byID    map[string]*UserRecord
	nextID  int
	creates int
}

func newFakeUsers(users ...UserRecord) *fakeUsers {
	f := &fakeUsers{byID: map[string]*UserRecord{}}
	for i := range users {
		u := users[i]
		f.byID[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) find(_ context.Context, identifier string) (*UserRecord, error) {
	for _, u := range f.byID {
		if u.ID == identifier || u.Email == identifier || (u.Username != "" && u.Username == identifier) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) create(ctx context.Context, user UserRecord) (string, error) {
	f.creates++
	if u, _ := f.find(ctx, user.Email); u != nil {
		return "", errConflict
	}
	f.nextID++
	user.ID = fmt.Sprintf("n%d", f.nextID)
	user.CreatedAt = time.Unix(1700000000, 0)
	f.byID[user.ID] = &user
	return user.ID, nil
}

func (f *fakeUsers) update(_ context.Context, id string, patch StoredPatch) (*UserRecord, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	cp := *u
	return &cp, nil
}

type fakeTokens struct {
	byToken map[string]string
	ttls    map[string]time.Duration
	n       int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byToken: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeTokens) newToken() (string, error) {
	f.n++
	return fmt.Sprintf("tok-%d", f.n), nil
}

func (f *fakeTokens) save(_ context.Context, token, identifier string, ttl time.Duration) error {
	f.byToken[token] = identifier
	f.ttls[token] = ttl
	return nil
}

func (f *fakeTokens) redeem(_ context.Context, token string) (string, error) {
	id, ok := f.byToken[token]
	if !ok {
		return "", errTokenMissing
	}
	delete(f.byToken, token)
	return id, nil
}

func plainVerify(password, hash string) (bool, error) {
	if strings.HasPrefix(hash, "bad:") {
		return false, errors.New("unreadable hash")
	}
	return hash == "hash:"+password, nil
}

func plainHash(password string) (string, error) {
	return "hash:" + password, nil
}

type mailbox struct {
	sent []Mail
}

func (m *mailbox) notify(_ context.Context, mail Mail) {
	m.sent = append(m.sent, mail)
}

func verificationDeps(users *fakeUsers, tokens *fakeTokens, box *mailbox) VerificationDeps {
	return VerificationDeps{
		ResendTTL:       time.Hour,
		FindUser:        users.find,
		NewToken:        tokens.newToken,
		SaveToken:       tokens.save,
		RedeemToken:     tokens.redeem,
		IsTokenNotFound: func(err error) bool { return errors.Is(err, errTokenMissing) },
		CheckResend:     func(context.Context, string) error { return nil },
		IsRateLimited:   func(err error) bool { return errors.Is(err, errRateLimited) },
		SetVerified: func(_ context.Context, id string) (*UserRecord, error) {
			u, ok := users.byID[id]
			if !ok {
				return nil, nil
			}
			u.IsVerified = true
			cp := *u
			return &cp, nil
		},
		VerificationURL: func(token string) string { return "https://app.test/users/verify-user?token=" + token },
		Notify:          box.notify,
		Errors: VerificationErrors{
			EngineNotReady:  errNotReady,
			NotFound:        errNotFound,
			AlreadyVerified: errVerified,
			TooManyRequests: errTooMany,
			Expired:         errExpired,
		},
	}
}

func credentialsDeps(users *fakeUsers, tokens *fakeTokens, box *mailbox) CredentialsDeps {
	vdeps := verificationDeps(users, tokens, box)
	return CredentialsDeps{
		VerificationTTL: time.Hour,
		FindUser:        users.find,
		VerifyPassword:  plainVerify,
		IssueVerification: func(ctx context.Context, identifier string, ttl time.Duration) (string, error) {
			return RunIssueVerification(ctx, identifier, ttl, vdeps)
		},
		VerificationURL: vdeps.VerificationURL,
		Notify:          box.notify,
		AddSession:      func(context.Context, string, string) error { return nil },
		Errors: CredentialsErrors{
			EngineNotReady: errNotReady,
			NotFound:       errNotFound,
			Unauthorized:   errUnauthorized,
			Forbidden:      errForbidden,
		},
	}
}

func TestVerifyCredentialsOutcomes(t *testing.T) {
	users := newFakeUsers(
		UserRecord{ID: "u1", Email: "alice@example.com", Username: "alice", PasswordHash: "hash:secret1", IsVerified: true},
		UserRecord{ID: "u2", Email: "bob@example.com", PasswordHash: "hash:secret2"},
		UserRecord{ID: "u3", Email: "gone@example.com", PasswordHash: "hash:secret3", IsVerified: true, IsDeleted: true},
		UserRecord{ID: "u4", Email: "oauth@example.com", IsVerified: true},
		UserRecord{ID: "u5", Email: "broken@example.com", PasswordHash: "bad:xx", IsVerified: true},
	)

	tests := []struct {
		name       string
		identifier string
		password   string
		want       error
	}{
		{name: "by username", identifier: "alice", password: "secret1"},
		{name: "by email", identifier: "alice@example.com", password: "secret1"},
		{name: "by id", identifier: "u1", password: "secret1"},
		{name: "wrong password", identifier: "alice", password: "nope", want: errUnauthorized},
		{name: "unknown", identifier: "carol", password: "secret1", want: errNotFound},
		{name: "deleted", identifier: "gone@example.com", password: "secret3", want: errNotFound},
		{name: "provider account", identifier: "oauth@example.com", password: "", want: errUnauthorized},
		{name: "unreadable hash", identifier: "broken@example.com", password: "x", want: errUnauthorized},
		{name: "unverified", identifier: "bob@example.com", password: "secret2", want: errForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := newFakeTokens()
			box := &mailbox{}
			user, err := RunVerifyCredentials(context.Background(), tt.identifier, tt.password, credentialsDeps(users, tokens, box))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.want == nil && user.ID != "u1" {
				t.Fatalf("expected u1, got %+v", user)
			}
			if tt.want != nil && user != nil {
				t.Fatalf("expected no user on failure, got %+v", user)
			}
		})
	}
}

func TestVerifyCredentialsUnverifiedIssuesToken(t *testing.T) {
	users := newFakeUsers(UserRecord{ID: "u2", Email: "bob@example.com", Name: "Bob", PasswordHash: "hash:secret2"})
	tokens := newFakeTokens()
	box := &mailbox{}

	_, err := RunVerifyCredentials(context.Background(), "bob@example.com", "whatever", credentialsDeps(users, tokens, box))
	if !errors.Is(err, errForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if len(tokens.byToken) != 1 {
		t.Fatalf("expected one token, got %d", len(tokens.byToken))
	}
	for token, identifier := range tokens.byToken {
		if identifier != "u2" {
			t.Fatalf("token bound to %q, want u2", identifier)
		}
		if tokens.ttls[token] != time.Hour {
			t.Fatalf("expected 1h ttl, got %v", tokens.ttls[token])
		}
	}
	if len(box.sent) != 1 || box.sent[0].To != "bob@example.com" || box.sent[0].Template != "verify" {
		t.Fatalf("unexpected mail: %+v", box.sent)
	}
	if !strings.Contains(box.sent[0].Data["verificationUrl"].(string), "token=tok-1") {
		t.Fatalf("mail missing link: %+v", box.sent[0].Data)
	}
}

func TestLoginFailsWhenSessionIndexFails(t *testing.T) {
	users := newFakeUsers(UserRecord{ID: "u1", Email: "alice@example.com", PasswordHash: "hash:secret1", IsVerified: true})
	deps := credentialsDeps(users, newFakeTokens(), &mailbox{})
	indexErr := errors.New("redis down")
	deps.AddSession = func(context.Context, string, string) error { return indexErr }

	res, err := RunLogin(context.Background(), "alice@example.com", "secret1", "sid-1", deps)
	if !errors.Is(err, indexErr) || res != nil {
		t.Fatalf("expected index error, got %v %+v", err, res)
	}
}

func TestLoginIndexesSession(t *testing.T) {
	users := newFakeUsers(UserRecord{ID: "u1", Email: "alice@example.com", PasswordHash: "hash:secret1", IsVerified: true})
	deps := credentialsDeps(users, newFakeTokens(), &mailbox{})
	now := time.Unix(1700000000, 0)
	deps.Now = func() time.Time { return now }

	var indexed []string
	deps.AddSession = func(_ context.Context, userID, sessionID string) error {
		indexed = append(indexed, userID+"/"+sessionID)
		return nil
	}

	res, err := RunLogin(context.Background(), "alice@example.com", "secret1", "sid-1", deps)
	if err != nil {
		t.Fatalf("RunLogin failed: %v", err)
	}
	if res.User.ID != "u1" || !res.EstablishedAt.Equal(now) {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(indexed) != 1 || indexed[0] != "u1/sid-1" {
		t.Fatalf("unexpected index writes %v", indexed)
	}
}

func TestRedeemVerificationSingleUse(t *testing.T) {
	tokens := newFakeTokens()
	deps := verificationDeps(newFakeUsers(), tokens, &mailbox{})
	ctx := context.Background()

	token, err := RunIssueVerification(ctx, "u1", time.Hour, deps)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	id, err := RunRedeemVerification(ctx, token, deps)
	if err != nil || id != "u1" {
		t.Fatalf("first redeem: %q %v", id, err)
	}
	if _, err := RunRedeemVerification(ctx, token, deps); !errors.Is(err, errExpired) {
		t.Fatalf("expected expired on second redeem, got %v", err)
	}
	if _, err := RunRedeemVerification(ctx, "", deps); !errors.Is(err, errExpired) {
		t.Fatalf("expected expired for empty token, got %v", err)
	}
}

func TestResendVerification(t *testing.T) {
	users := newFakeUsers(
		UserRecord{ID: "u1", Email: "alice@example.com", IsVerified: true},
		UserRecord{ID: "u2", Email: "bob@example.com"},
	)
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		deps := verificationDeps(users, newFakeTokens(), &mailbox{})
		if _, err := RunResendVerification(ctx, "nobody", deps); !errors.Is(err, errNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("already verified", func(t *testing.T) {
		deps := verificationDeps(users, newFakeTokens(), &mailbox{})
		if _, err := RunResendVerification(ctx, "alice@example.com", deps); !errors.Is(err, errVerified) {
			t.Fatalf("expected already verified, got %v", err)
		}
	})

	t.Run("rate limited writes nothing", func(t *testing.T) {
		tokens := newFakeTokens()
		box := &mailbox{}
		deps := verificationDeps(users, tokens, box)
		deps.CheckResend = func(context.Context, string) error { return errRateLimited }

		if _, err := RunResendVerification(ctx, "bob@example.com", deps); !errors.Is(err, errTooMany) {
			t.Fatalf("expected too many, got %v", err)
		}
		if len(tokens.byToken) != 0 || len(box.sent) != 0 {
			t.Fatalf("expected no token and no mail, got %d tokens %d mails", len(tokens.byToken), len(box.sent))
		}
	})

	t.Run("issues token bound to user id", func(t *testing.T) {
		tokens := newFakeTokens()
		box := &mailbox{}
		deps := verificationDeps(users, tokens, box)

		token, err := RunResendVerification(ctx, "bob@example.com", deps)
		if err != nil {
			t.Fatalf("resend failed: %v", err)
		}
		if tokens.byToken[token] != "u2" || tokens.ttls[token] != time.Hour {
			t.Fatalf("unexpected token state %q %v", tokens.byToken[token], tokens.ttls[token])
		}
		if len(box.sent) != 1 {
			t.Fatalf("expected one mail, got %d", len(box.sent))
		}
	})
}

func TestVerifyEmail(t *testing.T) {
	users := newFakeUsers(UserRecord{ID: "u2", Email: "bob@example.com"})
	tokens := newFakeTokens()
	deps := verificationDeps(users, tokens, &mailbox{})
	ctx := context.Background()

	token, _ := RunIssueVerification(ctx, "bob@example.com", 2*time.Hour, deps)
	user, err := RunVerifyEmail(ctx, token, deps)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !user.IsVerified || !users.byID["u2"].IsVerified {
		t.Fatal("expected user to be verified")
	}

	orphan, _ := RunIssueVerification(ctx, "vanished@example.com", time.Hour, deps)
	if _, err := RunVerifyEmail(ctx, orphan, deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found for vanished user, got %v", err)
	}
}

func provisioningDeps(users *fakeUsers) ProvisioningDeps {
	return ProvisioningDeps{
		FindUser:   users.find,
		CreateUser: users.create,
		IsConflict: func(err error) bool { return errors.Is(err, errConflict) },
		Errors: ProvisioningErrors{
			EngineNotReady: errNotReady,
			NotFound:       errNotFound,
			InvalidInput:   errInvalid,
		},
	}
}

func TestProvisionFromProviderIdempotent(t *testing.T) {
	users := newFakeUsers()
	deps := provisioningDeps(users)
	ctx := context.Background()
	identity := ProviderIdentity{Email: "dana@example.com", Name: "Dana", Provider: "google"}

	first, err := RunProvisionFromProvider(ctx, identity, deps)
	if err != nil {
		t.Fatalf("first provision failed: %v", err)
	}
	second, err := RunProvisionFromProvider(ctx, identity, deps)
	if err != nil {
		t.Fatalf("second provision failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user, got %s and %s", first.ID, second.ID)
	}
	if users.creates != 1 {
		t.Fatalf("expected one create, got %d", users.creates)
	}
	if !first.IsVerified || first.PasswordHash != "" {
		t.Fatalf("provider user must be verified with no hash: %+v", first)
	}
}

func TestProvisionFromProviderLosesRace(t *testing.T) {
	users := newFakeUsers()
	deps := provisioningDeps(users)
	// the winner inserts between our lookup and our create
	deps.CreateUser = func(ctx context.Context, user UserRecord) (string, error) {
		if _, err := users.create(ctx, user); err != nil {
			return "", err
		}
		return "", errConflict
	}

	user, err := RunProvisionFromProvider(context.Background(), ProviderIdentity{Email: "erin@example.com"}, deps)
	if err != nil {
		t.Fatalf("expected fallback to re-fetch, got %v", err)
	}
	if user.Email != "erin@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := RunProvisionFromProvider(context.Background(), ProviderIdentity{}, deps); !errors.Is(err, errInvalid) {
		t.Fatalf("expected invalid input for empty email, got %v", err)
	}
}

func accountDeps(users *fakeUsers, tokens *fakeTokens, box *mailbox) AccountDeps {
	vdeps := verificationDeps(users, tokens, box)
	return AccountDeps{
		RegistrationTTL: 2 * time.Hour,
		FindUser:        users.find,
		HashPassword:    plainHash,
		CreateUser:      users.create,
		UpdateUser:      users.update,
		SoftDelete: func(_ context.Context, id string) error {
			users.byID[id].IsDeleted = true
			return nil
		},
		LogoutAll: func(context.Context, string) (int, error) { return 2, nil },
		IssueVerification: func(ctx context.Context, identifier string, ttl time.Duration) (string, error) {
			return RunIssueVerification(ctx, identifier, ttl, vdeps)
		},
		VerificationURL: vdeps.VerificationURL,
		IsConflict:      func(err error) bool { return errors.Is(err, errConflict) },
		Notify:          box.notify,
		Errors: AccountErrors{
			EngineNotReady: errNotReady,
			NotFound:       errNotFound,
			EmailTaken:     errEmailTaken,
			UsernameTaken:  errNameTaken,
			InvalidInput:   errInvalid,
		},
	}
}

func TestRegister(t *testing.T) {
	users := newFakeUsers(UserRecord{ID: "u1", Email: "alice@example.com", Username: "alice", IsVerified: true})
	tokens := newFakeTokens()
	box := &mailbox{}
	deps := accountDeps(users, tokens, box)
	ctx := context.Background()

	if _, err := RunRegister(ctx, RegisterRequest{Email: "alice@example.com", Password: "secret1"}, deps); !errors.Is(err, errEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	if _, err := RunRegister(ctx, RegisterRequest{Email: "new@example.com", Username: "alice", Password: "secret1"}, deps); !errors.Is(err, errNameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}

	user, err := RunRegister(ctx, RegisterRequest{Email: "new@example.com", Username: "newbie", Name: "New", Password: "secret1"}, deps)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.IsVerified || user.PasswordHash != "hash:secret1" {
		t.Fatalf("unexpected created user %+v", user)
	}
	if len(box.sent) != 1 || box.sent[0].To != "new@example.com" {
		t.Fatalf("expected verification mail, got %+v", box.sent)
	}
	for token, identifier := range tokens.byToken {
		if identifier != "new@example.com" || tokens.ttls[token] != 2*time.Hour {
			t.Fatalf("registration token bound to %q for %v", identifier, tokens.ttls[token])
		}
	}
}

func TestProfileRequiresActiveAccount(t *testing.T) {
	users := newFakeUsers(
		UserRecord{ID: "u1", Email: "alice@example.com", Username: "alice", IsVerified: true},
		UserRecord{ID: "u2", Email: "bob@example.com"},
		UserRecord{ID: "u3", Email: "gone@example.com", IsVerified: true, IsDeleted: true},
	)
	deps := accountDeps(users, newFakeTokens(), &mailbox{})
	ctx := context.Background()
	name := "Renamed"

	for _, id := range []string{"u2", "u3", "missing", ""} {
		if _, err := RunGetProfile(ctx, id, deps); !errors.Is(err, errNotFound) {
			t.Fatalf("GetProfile(%q): expected not found, got %v", id, err)
		}
		if _, err := RunUpdateProfile(ctx, id, ProfileChange{Name: &name}, deps); !errors.Is(err, errNotFound) {
			t.Fatalf("UpdateProfile(%q): expected not found, got %v", id, err)
		}
	}
	if users.byID["u2"].Name == name {
		t.Fatal("unverified user must not be updated")
	}
}

func TestUpdateProfile(t *testing.T) {
	users := newFakeUsers(
		UserRecord{ID: "u1", Email: "alice@example.com", Username: "alice", IsVerified: true},
		UserRecord{ID: "u2", Email: "bob@example.com", Username: "bob", IsVerified: true},
	)
	deps := accountDeps(users, newFakeTokens(), &mailbox{})
	ctx := context.Background()

	taken := "bob"
	if _, err := RunUpdateProfile(ctx, "u1", ProfileChange{Username: &taken}, deps); !errors.Is(err, errNameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}

	same := "alice"
	name := "Alice A."
	pass := "newpass1"
	updated, err := RunUpdateProfile(ctx, "u1", ProfileChange{Username: &same, Name: &name, Password: &pass}, deps)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != name || updated.PasswordHash != "hash:newpass1" || updated.Email != "alice@example.com" {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestDeleteAccountLogsOutEverywhere(t *testing.T) {
	users := newFakeUsers(UserRecord{ID: "u1", Email: "alice@example.com", IsVerified: true})
	deps := accountDeps(users, newFakeTokens(), &mailbox{})
	ctx := context.Background()

	n, err := RunDeleteAccount(ctx, "u1", deps)
	if err != nil || n != 2 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	if !users.byID["u1"].IsDeleted {
		t.Fatal("expected soft delete")
	}
	if _, err := RunDeleteAccount(ctx, "u1", deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	var removed, destroyed []string
	deps := LogoutDeps{
		RemoveSession: func(_ context.Context, userID, sessionID string) error {
			removed = append(removed, userID+"/"+sessionID)
			return nil
		},
		DestroySession: func(_ context.Context, sessionID string) error {
			destroyed = append(destroyed, sessionID)
			return nil
		},
		LogoutAll: func(context.Context, string) (int, error) { return 3, nil },
		Errors:    LogoutErrors{EngineNotReady: errNotReady, Unauthorized: errUnauthorized},
	}
	ctx := context.Background()

	if err := RunLogout(ctx, "u1", "sid-1", deps); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(removed) != 1 || len(destroyed) != 1 {
		t.Fatalf("unexpected calls removed=%v destroyed=%v", removed, destroyed)
	}
	if err := RunLogout(ctx, "u1", "", deps); !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if n, err := RunLogoutAll(ctx, "u1", deps); err != nil || n != 3 {
		t.Fatalf("logout all: n=%d err=%v", n, err)
	}
	if _, err := RunLogoutAll(ctx, "", deps); !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
