package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	verifyPrefix   = "verify:"
	refreshPrefix  = "refresh:"
	denylistPrefix = "denylist:"
)

// ErrNoCode is returned when no verification code is stored for an email.
var ErrNoCode = errors.New("no verification code for email")

// NewClient connects to redis and verifies the connection.
func NewClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// VerificationCache stores one short-lived verification code per email. A
// resend overwrites the previous code.
type VerificationCache struct {
	redis *redis.Client
}

func NewVerificationCache(client *redis.Client) *VerificationCache {
	return &VerificationCache{redis: client}
}

// Set stores the code for the email with the given TTL, replacing any
// previous code.
func (c *VerificationCache) Set(ctx context.Context, email, code string, ttl time.Duration) error {
	return c.redis.Set(ctx, verifyPrefix+email, code, ttl).Err()
}

// Get returns the stored code for the email, or ErrNoCode if none exists.
func (c *VerificationCache) Get(ctx context.Context, email string) (string, error) {
	code, err := c.redis.Get(ctx, verifyPrefix+email).Result()
	if err == redis.Nil {
		return "", ErrNoCode
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// Delete removes the stored code for the email. Deleting a missing entry is
// not an error.
func (c *VerificationCache) Delete(ctx context.Context, email string) error {
	return c.redis.Del(ctx, verifyPrefix+email).Err()
}

// TokenCache tracks issued refresh tokens and the denylist of revoked access
// tokens. A token must never count as active once denylisted; Denylist and
// RemoveRefresh are therefore always called together on logout.
type TokenCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewTokenCache creates a token cache. Entries expire after ttl, matching the
// token lifetime so revocation records do not outlive the tokens they cover.
func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{redis: client, ttl: ttl}
}

// RegisterRefresh marks a freshly issued token as an active refresh token.
func (c *TokenCache) RegisterRefresh(ctx context.Context, token string) error {
	return c.redis.Set(ctx, refreshPrefix+token, "1", c.ttl).Err()
}

// RemoveRefresh drops the token from the active refresh set. Removing an
// unknown token is not an error.
func (c *TokenCache) RemoveRefresh(ctx context.Context, token string) error {
	return c.redis.Del(ctx, refreshPrefix+token).Err()
}

// Denylist records the token as revoked.
func (c *TokenCache) Denylist(ctx context.Context, token string) error {
	return c.redis.Set(ctx, denylistPrefix+token, "1", c.ttl).Err()
}

// IsDenylisted reports whether the token has been revoked.
func (c *TokenCache) IsDenylisted(ctx context.Context, token string) (bool, error) {
	n, err := c.redis.Exists(ctx, denylistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsRefreshActive reports whether the token is still in the active refresh set.
func (c *TokenCache) IsRefreshActive(ctx context.Context, token string) (bool, error) {
	n, err := c.redis.Exists(ctx, refreshPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
