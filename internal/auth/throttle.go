package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed tenant-credential attempts in redis with a
// sliding expiry. A nil throttle or nil client disables throttling; redis
// outages never lock admins out.
type LoginThrottle struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewLoginThrottle(client *redis.Client, limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, limit: limit, window: window}
}

func (t *LoginThrottle) Allow(ctx context.Context, institutionID, username string) bool {
	if t == nil || t.client == nil {
		return true
	}
	count, err := t.client.Get(ctx, t.key(institutionID, username)).Int()
	if err != nil {
		return true
	}
	return count < t.limit
}

func (t *LoginThrottle) RecordFailure(ctx context.Context, institutionID, username string) {
	if t == nil || t.client == nil {
		return
	}
	key := t.key(institutionID, username)
	if err := t.client.Incr(ctx, key).Err(); err != nil {
		return
	}
	_ = t.client.Expire(ctx, key, t.window).Err()
}

func (t *LoginThrottle) Reset(ctx context.Context, institutionID, username string) {
	if t == nil || t.client == nil {
		return
	}
	_ = t.client.Del(ctx, t.key(institutionID, username)).Err()
}

func (t *LoginThrottle) key(institutionID, username string) string {
	return "login_attempts:" + institutionID + ":" + username
}
