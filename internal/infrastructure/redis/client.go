package redisinfra

import (
	"github.com/contacts-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client for the identity cache. The connection is
// lazy; a dead backend surfaces as per-command errors, which the cache layer
// absorbs.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
