// Package memory is an in-process [sessionauth.UserStore] for tests and the
// development server. It enforces the same email and username uniqueness as
// the PostgreSQL store.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/google/uuid"
)

type Store struct {
	mu    sync.RWMutex
	users map[string]*sessionauth.User
	now   func() time.Time
}

var _ sessionauth.UserStore = (*Store)(nil)

func New() *Store {
	return &Store{
		users: make(map[string]*sessionauth.User),
		now:   time.Now,
	}
}

// Seed inserts u as-is, assigning an id when it has none. It is meant for
// fixtures and skips uniqueness checks.
func (s *Store) Seed(u sessionauth.User) sessionauth.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	cp := u
	s.users[u.ID] = &cp
	return u
}

func (s *Store) FindByIdentifier(_ context.Context, identifier string) (*sessionauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u := s.lookup(identifier); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, sessionauth.ErrNotFound
}

func (s *Store) Create(_ context.Context, in sessionauth.NewUser) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique("", in.Email, in.Username); err != nil {
		return "", err
	}

	u := &sessionauth.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Username:     in.Username,
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		IsVerified:   in.IsVerified,
		CreatedAt:    s.now().UTC(),
	}
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *Store) Update(_ context.Context, id string, patch sessionauth.UserPatch) (*sessionauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, sessionauth.ErrNotFound
	}
	if patch.Username != nil {
		if err := s.checkUnique(id, "", *patch.Username); err != nil {
			return nil, err
		}
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

func (s *Store) SetVerified(_ context.Context, id string) (*sessionauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, sessionauth.ErrNotFound
	}
	u.IsVerified = true
	cp := *u
	return &cp, nil
}

func (s *Store) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return sessionauth.ErrNotFound
	}
	u.IsDeleted = true
	return nil
}

func (s *Store) lookup(identifier string) *sessionauth.User {
	if u, ok := s.users[identifier]; ok {
		return u
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, identifier) || (u.Username != "" && u.Username == identifier) {
			return u
		}
	}
	return nil
}

// checkUnique must be called with the write lock held. selfID is skipped so
// a user can keep their own username.
func (s *Store) checkUnique(selfID, email, username string) error {
	for _, u := range s.users {
		if u.ID == selfID {
			continue
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return fmt.Errorf("%w: email %q", sessionauth.ErrConflict, email)
		}
		if username != "" && u.Username == username {
			return fmt.Errorf("%w: username %q", sessionauth.ErrConflict, username)
		}
	}
	return nil
}
