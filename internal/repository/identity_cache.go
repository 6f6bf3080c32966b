package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smart-workplace/portal-api/internal/models"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
)

// IdentityCache caches identity lookups performed by the request authorizer.
// Entries carry a short TTL and are invalidated on any admin mutation so a
// deactivation takes effect immediately rather than at TTL expiry.
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewIdentityCache constructs an identity cache. A nil client disables
// caching; lookups then always miss.
func NewIdentityCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *IdentityCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityCache{client: client, ttl: ttl, logger: logger}
}

func identityKey(email string) string {
	return "identity:" + email
}

// Get retrieves the cached identity for an email.
func (c *IdentityCache) Get(ctx context.Context, email string) (*models.User, error) {
	if c.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := c.client.Get(ctx, identityKey(email)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get identity %s: %w", email, err)
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("unmarshal cached identity %s: %w", email, err)
	}
	return &user, nil
}

// Set stores the identity under its email.
func (c *IdentityCache) Set(ctx context.Context, user *models.User) error {
	if c.client == nil || user == nil {
		return nil
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal identity %s: %w", user.Email, err)
	}

	if err := c.client.Set(ctx, identityKey(user.Email), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set identity %s: %w", user.Email, err)
	}
	return nil
}

// Invalidate drops the cached entry for an email.
func (c *IdentityCache) Invalidate(ctx context.Context, email string) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, identityKey(email)).Err(); err != nil {
		return fmt.Errorf("redis delete identity %s: %w", email, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (c *IdentityCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
