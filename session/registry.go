package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// UserSessionsKeyPrefix namespaces the per-user session id sets.
const UserSessionsKeyPrefix = "user-sessions:"

// UserSessionsKey returns the set key indexing userID's sessions.
func UserSessionsKey(userID string) string {
	return UserSessionsKeyPrefix + userID
}

// Registry tracks which session ids belong to which user so that every
// session of a user can be destroyed at once.
//
// Registry is safe for concurrent use. It holds no in-process state; all
// consistency comes from Redis set semantics and MULTI/EXEC.
type Registry struct {
	redis redis.UniversalClient
	store *Store
}

// NewRegistry builds a registry whose LogoutAll purges records written by store.
func NewRegistry(redisClient redis.UniversalClient, store *Store) *Registry {
	return &Registry{
		redis: redisClient,
		store: store,
	}
}

// AddSession records sessionID under userID. Adding twice is a no-op.
func (r *Registry) AddSession(ctx context.Context, userID, sessionID string) error {
	if err := r.redis.SAdd(ctx, UserSessionsKey(userID), sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RemoveSession drops sessionID from userID's set. The session record itself
// is left to the caller.
func (r *Registry) RemoveSession(ctx context.Context, userID, sessionID string) error {
	if err := r.redis.SRem(ctx, UserSessionsKey(userID), sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Sessions lists the session ids currently indexed for userID.
func (r *Registry) Sessions(ctx context.Context, userID string) ([]string, error) {
	ids, err := r.redis.SMembers(ctx, UserSessionsKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// LogoutAll reads userID's session ids, then deletes every session record
// and the set itself in one MULTI/EXEC batch (TxPipelined DEL per key). It returns
// the number of session ids that were indexed.
//
// When the set is empty no further command is issued. A session added
// between the read and the batch survives; callers accept that window.
func (r *Registry) LogoutAll(ctx context.Context, userID string) (int, error) {
	userKey := UserSessionsKey(userID)

	sessionIDs, err := r.Sessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(sessionIDs) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(sessionIDs)+1)
	for _, sessionID := range sessionIDs {
		keys = append(keys, r.store.Key(sessionID))
	}
	keys = append(keys, userKey)

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return len(sessionIDs), nil
}
