package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quickai/quickai/internal/model"
)

const (
	authCachePrefix = "auth:ctx:"
	// AuthCacheTTL is the default lifetime of a cached caller.
	AuthCacheTTL = 5 * time.Minute
)

type cachedAuthContext struct {
	Source    string   `json:"source"`
	KeyID     string   `json:"key_id,omitempty"`
	KeyPrefix string   `json:"key_prefix,omitempty"`
	UserID    string   `json:"user_id"`
	Plan      string   `json:"plan"`
	Scopes    []string `json:"scopes"`
}

// GetAuthContext returns the cached caller for cacheKey. A miss or a corrupt
// entry returns (nil, nil); only transport failures are errors.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	var cached cachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		Source:    cached.Source,
		KeyID:     cached.KeyID,
		KeyPrefix: cached.KeyPrefix,
		UserID:    cached.UserID,
		Plan:      model.ParsePlan(cached.Plan),
		Scopes:    cached.Scopes,
	}, nil
}

// SetAuthContext caches auth under cacheKey. ttl <= 0 uses AuthCacheTTL.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext, ttl time.Duration) error {
	if ttl <= 0 || ttl > AuthCacheTTL {
		ttl = AuthCacheTTL
	}

	data, err := json.Marshal(cachedAuthContext{
		Source:    auth.Source,
		KeyID:     auth.KeyID,
		KeyPrefix: auth.KeyPrefix,
		UserID:    auth.UserID,
		Plan:      string(auth.Plan),
		Scopes:    auth.Scopes,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authCachePrefix+cacheKey, data, ttl).Err()
}

// DeleteAuthContext removes a cached caller, e.g. on key revocation.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	return c.client.Del(ctx, authCachePrefix+cacheKey).Err()
}
