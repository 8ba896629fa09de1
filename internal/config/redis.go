package config

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis creates a redis client for the per-device scan lease. Redis is
// optional: with no REDIS_ADDR configured, or when the ping fails, it returns
// nil and callers degrade to relying on the storage-level unique constraint.
func ConnectRedis(cfg *Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		log.Println("ℹ️ Redis not configured, scan lease disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unreachable (%v), scan lease disabled", err)
		return nil
	}

	log.Printf("✅ Redis connected [%s]", cfg.Redis.Addr)
	return client
}
