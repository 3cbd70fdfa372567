package middleware

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Revoked tokens are written under this prefix (keyed by jti) with a
// TTL matching the token's remaining lifetime.
const blacklistPrefix = "blacklist:"

// RedisRevocationChecker answers revocation checks from the Redis
// blacklist shared with the auth issuer.
type RedisRevocationChecker struct {
	client *redis.Client
}

func NewRedisRevocationChecker(client *redis.Client) *RedisRevocationChecker {
	return &RedisRevocationChecker{client: client}
}

// IsRevoked reports whether the token id is blacklisted. Tokens
// without a jti cannot be revoked individually and pass through.
func (c *RedisRevocationChecker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	n, err := c.client.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return n > 0, nil
}
