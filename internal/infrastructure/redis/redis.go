package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shop-auth-api/internal/domain"
)

var ErrRedisNotReady = errors.New("redis not ready")

const (
	connectAttempts = 3
	connectInterval = time.Second
	denyKeyPrefix   = "auth:revoked:"
)

// Connect parses url and pings the server, retrying a few times before
// giving up.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	for i := 0; i < connectAttempts; i++ {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(connectInterval):
		}
	}
	return nil, ErrRedisNotReady
}

// Denylist records revoked token ids until the token would have expired anyway.
type Denylist struct {
	client *redis.Client
	now    func() time.Time
}

func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client, now: time.Now}
}

// Revoke denies tokenID until the given time. Tokens that are already past
// until need no entry.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denyKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, denyKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	return n > 0, nil
}
