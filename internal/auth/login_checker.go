package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

// UserID resolves the session token and renews the session TTL, giving
// sessions a sliding expiry: any authenticated request pushes the
// expiration another full TTL into the future.
func (c *LoginChecker) UserID(ctx context.Context, token string) (int, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := c.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotLoggedIn
		}
		return 0, err
	}

	userID, err := strconv.Atoi(cmd.Val())
	if err != nil {
		return 0, err
	}

	c.redisClient.Expire(ctx, sessionKey, c.ttl)

	return userID, nil
}
