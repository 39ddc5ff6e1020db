package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"price-oracle-dashboard/internal/domain"
)

const (
	ViewKey        = "dashboard:view"
	DefaultViewTTL = 10 * time.Minute
)

// ErrNoView means no server process has published a view yet, or it expired.
var ErrNoView = errors.New("no dashboard view cached")

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ViewCache shares the latest DashboardView between the server and the
// read-only SSH and MCP processes.
type ViewCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewViewCache(client RedisClient, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = DefaultViewTTL
	}
	return &ViewCache{client: client, ttl: ttl}
}

func (c *ViewCache) SetView(ctx context.Context, view *domain.DashboardView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	return c.client.Set(ctx, ViewKey, data, c.ttl).Err()
}

func (c *ViewCache) GetView(ctx context.Context) (*domain.DashboardView, error) {
	data, err := c.client.Get(ctx, ViewKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoView
	}
	if err != nil {
		return nil, err
	}
	var view domain.DashboardView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("decode view: %w", err)
	}
	return &view, nil
}
