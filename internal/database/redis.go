package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClients struct {
	Queue *redis.Client
	Cache *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Queue client (title-generation jobs)
	queueClient := redis.NewClient(opt)
	if err := queueClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis (queue): %w", err)
	}

	// Cache client (weather lookups), separate connection
	cacheOpt := *opt
	cacheClient := redis.NewClient(&cacheOpt)
	if err := cacheClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (cache): %w", err)
	}

	return &RedisClients{
		Queue: queueClient,
		Cache: cacheClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.Cache.Close()
}
