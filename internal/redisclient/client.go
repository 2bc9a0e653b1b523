package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sales-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client caches analytics snapshots. Entries are versioned per user so a
// write invalidates every cached window for that user at once; stale
// versions simply age out through the TTL.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func versionKey(userID int64) string {
	return fmt.Sprintf("analytics:ver:%d", userID)
}

func (c *Client) analyticsKey(ctx context.Context, userID int64, start, end time.Time) (string, error) {
	ver, err := c.rdb.Get(ctx, versionKey(userID)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("analytics:%d:%d:%d:%d", userID, ver, start.Unix(), end.Unix()), nil
}

// GetAnalytics returns the cached snapshot for the window, or nil on a miss
func (c *Client) GetAnalytics(ctx context.Context, userID int64, start, end time.Time) (*models.AnalyticsSummary, error) {
	key, err := c.analyticsKey(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("analytics cache get failed: %w", err)
	}

	var summary models.AnalyticsSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode cached analytics: %w", err)
	}
	return &summary, nil
}

// SetAnalytics caches a snapshot for the window
func (c *Client) SetAnalytics(ctx context.Context, userID int64, start, end time.Time, summary *models.AnalyticsSummary) error {
	key, err := c.analyticsKey(ctx, userID, start, end)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode analytics: %w", err)
	}

	return c.rdb.Set(ctx, key, payload, c.ttl).Err()
}

// InvalidateAnalytics drops every cached window for the user by bumping the
// version; superseded entries expire on their own
func (c *Client) InvalidateAnalytics(ctx context.Context, userID int64) error {
	return c.rdb.Incr(ctx, versionKey(userID)).Err()
}
