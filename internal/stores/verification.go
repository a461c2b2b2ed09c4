package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerificationKeyPrefix is shared with any other service reading the same
// Redis keyspace, so it must not change.
const VerificationKeyPrefix = "verify-token:"

var (
	ErrVerificationNotFound         = errors.New("verification token not found")
	ErrVerificationRedisUnavailable = errors.New("verification redis unavailable")
)

// redeemVerificationLua performs GET then DEL on the token key atomically.
// KEYS[1] = token key
//
// Returns the stored identifier, or nil when the key is absent.
var redeemVerificationLua = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if not value then
  return false
end
redis.call('DEL', KEYS[1])
return value
`)

type VerificationStore struct {
	redis redis.UniversalClient
}

func NewVerificationStore(redisClient redis.UniversalClient) *VerificationStore {
	return &VerificationStore{redis: redisClient}
}

func VerificationKey(token string) string {
	return VerificationKeyPrefix + token
}

// Save binds token to identifier for ttl. Issuing never revokes earlier
// tokens for the same identifier.
func (s *VerificationStore) Save(ctx context.Context, token, identifier string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, VerificationKey(token), identifier, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
	}
	return nil
}

// Redeem returns the identifier bound to token and deletes the binding.
// Absent, expired and already redeemed tokens all yield ErrVerificationNotFound.
func (s *VerificationStore) Redeem(ctx context.Context, token string) (string, error) {
	result, err := redeemVerificationLua.Run(ctx, s.redis, []string{VerificationKey(token)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrVerificationNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
	}

	identifier, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected lua result type", ErrVerificationRedisUnavailable)
	}
	return identifier, nil
}
