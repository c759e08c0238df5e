package app

import (
	"fmt"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/locks"
	"cart-enricher/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Config.NeedsRedis() {
		app.Logger.Info("Redis: Not configured (local rate limiting, no redis sink)")
		return nil
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.String("address", app.Config.RedisAddress))

	if app.Config.RunLock {
		manager, err := locks.NewRedsyncManager(redisClient, "cart-enricher:", app.Logger)
		if err != nil {
			return fmt.Errorf("failed to create lock manager: %w", err)
		}
		app.Locks = manager
		app.Logger.Info("Run lock: Enabled", logging.Duration("ttl", app.Config.RunLockTTL))
	}
	return nil
}
