package sessionauth

import (
	"context"
	"time"
)

// User is the full identity record held by the [UserStore]. It carries the
// password hash and lifecycle flags and must never leave the service; hand
// callers a [PublicUser] instead.
type User struct {
	ID           string
	Email        string
	Username     string
	Name         string
	PasswordHash string
	IsVerified   bool
	IsDeleted    bool
	CreatedAt    time.Time
}

// Active reports whether the account may be served by profile operations.
func (u *User) Active() bool {
	return u != nil && u.IsVerified && !u.IsDeleted
}

// PublicUser is the projection of [User] that is safe to return to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToPublicUser drops the password hash and the verification and deletion flags.
func ToPublicUser(u User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// NewUser is the input for [UserStore.Create].
type NewUser struct {
	Email        string
	Username     string
	Name         string
	PasswordHash string
	IsVerified   bool
}

// UserPatch lists every column [UserStore.Update] may touch. Nil fields are
// left unchanged.
type UserPatch struct {
	Name         *string
	Username     *string
	PasswordHash *string
}

// UserStore is the persistence contract the engine needs from the relational
// datastore. Lookups by identifier match id, email, or username. Missing rows
// are reported with [ErrNotFound] and uniqueness violations with [ErrConflict].
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	Create(ctx context.Context, user NewUser) (string, error)
	Update(ctx context.Context, id string, patch UserPatch) (*User, error)
	SetVerified(ctx context.Context, id string) (*User, error)
	SoftDelete(ctx context.Context, id string) error
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	Email    string
	Username string
	Name     string
	Password string
}

// UpdateProfileInput is the exhaustive set of profile fields a user may change.
// Email, verification and deletion state are deliberately absent.
type UpdateProfileInput struct {
	Name     *string
	Username *string
	Password *string
}

// ProviderIdentity is the email/name tuple asserted by an external identity
// provider after a successful OAuth handshake.
type ProviderIdentity struct {
	Email    string
	Name     string
	Provider string
}

// SessionResult is what the request layer writes into its session carrier
// after a successful login.
type SessionResult struct {
	UserID        string
	EstablishedAt time.Time
}
