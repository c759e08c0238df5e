package redis

import "github.com/go-redis/redis/v8"

// GetGoRedisClient exposes the underlying client for libraries that build on go-redis
func (c *Client) GetGoRedisClient() *redis.Client {
	return c.rdb
}
