package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IRedis fronts the deduplication state for inbound webhooks. Providers
// redeliver webhooks on slow responses; marking the provider message id
// with a TTL keeps redeliveries from producing duplicate turns.
type IRedis interface {
	MarkSeen(ctx context.Context, key string, expiration time.Duration) (bool, error)
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

// MarkSeen records the key if it is new. Returns true when this call was
// the first sighting.
func (r *redisClient) MarkSeen(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, "1", expiration).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error marking key %s: %v", key, err))
		return false, err
	}
	return ok, nil
}
