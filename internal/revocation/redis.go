package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked:"

// RedisRegistry stores revoked jtis as keys whose TTL matches the remaining
// lifetime of the token, so the set never grows past the live token window.
type RedisRegistry struct {
	Client *redis.Client
}

func (r *RedisRegistry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// The token is already dead; nothing left to block.
		return nil
	}
	return r.Client.Set(ctx, keyPrefix+jti, "1", ttl).Err()
}

func (r *RedisRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if err := r.Client.Get(ctx, keyPrefix+jti).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
