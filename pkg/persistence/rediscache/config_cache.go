// Package rediscache provides a read-through Redis cache in front of the
// workflow config repository. Configs are read on every dispatch, so the
// cache keeps hot tenants off the database; a short TTL bounds staleness.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

const DefaultTTL = 30 * time.Second

// ConfigCache implements persistence.ConfigRepository by caching the
// per-organization config list in Redis. Upserts write through and
// invalidate the cached list.
type ConfigCache struct {
	inner  persistence.ConfigRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewConfigCache(inner persistence.ConfigRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *ConfigCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &ConfigCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With("module", "config_cache"),
	}
}

func cacheKey(organizationID string) string {
	return "automation:configs:" + organizationID
}

func (c *ConfigCache) ListByOrganization(ctx context.Context, organizationID string) ([]*models.WorkflowConfig, error) {
	cached, err := c.client.Get(ctx, cacheKey(organizationID)).Bytes()
	if err == nil {
		var configs []*models.WorkflowConfig

		if err := json.Unmarshal(cached, &configs); err == nil {
			return configs, nil
		}

		// Corrupt cache entry, fall through to the store.
		c.logger.Warn("Discarding unreadable cached config list", "organization_id", organizationID)
	} else if !errors.Is(err, redis.Nil) {
		// Redis being down must not take dispatching down with it.
		c.logger.Warn("Config cache read failed, falling back to store", "error", err)
	}

	configs, err := c.inner.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(configs)
	if err == nil {
		if err := c.client.Set(ctx, cacheKey(organizationID), encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("Config cache write failed", "error", err)
		}
	}

	return configs, nil
}

func (c *ConfigCache) Upsert(ctx context.Context, config *models.WorkflowConfig) error {
	err := c.inner.Upsert(ctx, config)
	if err != nil {
		return err
	}

	if err := c.client.Del(ctx, cacheKey(config.OrganizationID)).Err(); err != nil {
		return fmt.Errorf("config stored but cache invalidation failed: %w", err)
	}

	return nil
}
