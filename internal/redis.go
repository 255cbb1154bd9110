package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/heptiolabs/healthcheck"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"go.uber.org/zap"
)

// Ping attempts before giving up on a fresh connection.
const redisConnectRetries = 5

// NewRedisClient connects to the redis instance configured via REDIS_URI,
// REDIS_PASSWORD and REDIS_DB and verifies the connection with a ping,
// retrying with exponential backoff while redis is still starting up.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	redisURI, err := env.GetAsString("REDIS_URI", false, "localhost:6379")
	if err != nil {
		zap.S().Error(err)
	}
	redisPassword, err := env.GetAsString("REDIS_PASSWORD", false, "")
	if err != nil {
		zap.S().Error(err)
	}
	redisDB, err := env.GetAsInt("REDIS_DB", false, 0)
	if err != nil {
		zap.S().Error(err)
	}

	options := &redis.Options{
		Addr:     redisURI,
		Password: redisPassword,
		DB:       redisDB,
	}
	zap.S().Debugf("Connecting to redis at %s (db %d)", redisURI, redisDB)
	rdbClient := redis.NewClient(options)

	var pingErr error
	for retries := int64(0); retries < redisConnectRetries; retries++ {
		if retries > 0 {
			time.Sleep(GetBackoffTime(retries, OneSecond, TenSeconds))
		}
		pingCtx, cancel := context.WithTimeout(ctx, FiveSeconds)
		pingErr = rdbClient.Ping(pingCtx).Err()
		cancel()
		if pingErr == nil {
			return rdbClient, nil
		}
		zap.S().Warnf("Redis ping failed (attempt %d): %s", retries+1, pingErr)
	}
	return nil, fmt.Errorf("unable to reach redis at %s: %w", redisURI, pingErr)
}

// RedisPingCheck returns a healthcheck that pings the given client.
func RedisPingCheck(client *redis.Client) healthcheck.Check {
	return func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), OneSecond)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}
}
