package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport failure from the session keyspace.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when no record exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

const (
	// DefaultKeyPrefix is the record namespace shared with connect-redis style stores.
	DefaultKeyPrefix = "sess:"
	// DefaultMaxAge is the record and cookie lifetime.
	DefaultMaxAge = 24 * time.Hour
)

// Store persists session records under "{prefix}{sessionId}".
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore describes the newstore operation and its observable behavior.
//
// An empty prefix selects DefaultKeyPrefix and a non-positive ttl selects
// DefaultMaxAge.
func NewStore(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultMaxAge
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key returns the Redis key holding the record for sessionID.
func (s *Store) Key(sessionID string) string {
	return s.prefix + sessionID
}

// TTL is the lifetime applied on Save and Touch.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Save writes rec and resets its expiry.
func (s *Store) Save(ctx context.Context, sessionID string, rec *Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.Key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Load reads the record for sessionID without extending its lifetime.
func (s *Store) Load(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.Key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(data)
}

// Touch extends the record's lifetime to a full TTL. Touching a missing
// record is not an error.
func (s *Store) Touch(ctx context.Context, sessionID string) error {
	if err := s.redis.Expire(ctx, s.Key(sessionID), s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Destroy deletes the record. Idempotent.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.Key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
