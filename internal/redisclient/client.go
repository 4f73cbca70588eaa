// Package redisclient backs token revocation. A logged-out token's jti
// is held here until the token itself would have expired.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// RevokeToken marks a token id as revoked for the given TTL
func (c *Client) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to hold.
		return nil
	}
	return c.rdb.Set(ctx, fmt.Sprintf("revoked:%s", jti), "1", ttl).Err()
}

// IsTokenRevoked checks whether a token id has been revoked
func (c *Client) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf("revoked:%s", jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
