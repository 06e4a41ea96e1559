package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/agroline/fieldops/pkg/approval"
)

// RedisConfig holds connection settings for the shared read cache.
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
	ListTTL    time.Duration
}

// RedisCache caches per-viewer approval lists across API instances. Keys are
// namespaced under "approvals:" so a workflow mutation can clear every
// viewer's list in one sweep.
type RedisCache struct {
	client  *redis.Client
	listTTL time.Duration
}

// NewRedisCache connects to redis and verifies connectivity.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB >= 0 {
		opts.DB = cfg.DB
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return newRedisCache(client, cfg.ListTTL), nil
}

func newRedisCache(client *redis.Client, listTTL time.Duration) *RedisCache {
	if listTTL <= 0 {
		listTTL = 5 * time.Minute
	}
	return &RedisCache{client: client, listTTL: listTTL}
}

func listKey(userID string) string {
	return fmt.Sprintf("approvals:list:%s", userID)
}

// GetApprovals returns the cached workflow list for a viewer. A miss returns
// (nil, false, nil).
func (c *RedisCache) GetApprovals(ctx context.Context, userID string) ([]approval.Workflow, bool, error) {
	data, err := c.client.Get(ctx, listKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	workflows, err := unmarshalWorkflows(data)
	if err != nil {
		// Corrupt entries are dropped rather than served.
		c.client.Del(ctx, listKey(userID))
		return nil, false, fmt.Errorf("decoding cached approvals: %w", err)
	}
	return workflows, true, nil
}

// SetApprovals caches the workflow list a viewer was just served.
func (c *RedisCache) SetApprovals(ctx context.Context, userID string, workflows []approval.Workflow) error {
	data, err := marshalWorkflows(workflows)
	if err != nil {
		return fmt.Errorf("encoding approvals for cache: %w", err)
	}
	return c.client.Set(ctx, listKey(userID), data, c.listTTL).Err()
}

// InvalidateApprovals clears every viewer's cached list. Called after any
// workflow submit or decision; who can see a workflow depends on the chain,
// so per-viewer invalidation is not worth computing.
func (c *RedisCache) InvalidateApprovals(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "approvals:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning approvals keys: %w", err)
	}
	return nil
}

// Ping checks redis connectivity for health reporting.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client exposes the underlying client for health checks.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Close closes the redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Workflows round-trip through plain JSON; the approval package's custom
// unmarshaling restores each payload to its typed shape.
func marshalWorkflows(workflows []approval.Workflow) ([]byte, error) {
	return json.Marshal(workflows)
}

func unmarshalWorkflows(data []byte) ([]approval.Workflow, error) {
	var workflows []approval.Workflow
	if err := json.Unmarshal(data, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}
