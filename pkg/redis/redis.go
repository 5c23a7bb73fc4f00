package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type IRedis interface {
	PushTrail(ctx context.Context, key string, value string, capacity int, ttl time.Duration) ([]string, error)
	GetTrail(ctx context.Context, key string) ([]string, error)
	DeleteTrail(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	Address  string
	Password string
	DB       int
}

type redisClient struct {
	client *redis.Client
}

func New(opts Options) IRedis {
	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", opts.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
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

// PushTrail appends value to the list at key, trims it to the newest capacity
// entries and refreshes its expiry in one transaction.
func (r *redisClient) PushTrail(ctx context.Context, key string, value string, capacity int, ttl time.Duration) ([]string, error) {
	logrus.Debug(fmt.Sprintf("Pushing trail point for key %s", key))

	var rng *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, value)
		pipe.LTrim(ctx, key, int64(-capacity), -1)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		rng = pipe.LRange(ctx, key, 0, -1)
		return nil
	})
	if err != nil {
		logrus.Error(fmt.Sprintf("Error pushing trail point for key %s: %v", key, err))
		return nil, err
	}

	return rng.Val(), nil
}

func (r *redisClient) GetTrail(ctx context.Context, key string) ([]string, error) {
	logrus.Debug(fmt.Sprintf("Getting trail for key %s", key))
	val, err := r.client.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting trail for key %s: %v", key, err))
		return nil, err
	}
	return val, nil
}

func (r *redisClient) DeleteTrail(ctx context.Context, key string) error {
	logrus.Debug(fmt.Sprintf("Deleting trail for key %s", key))
	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error deleting trail for key %s: %v", key, err))
		return err
	}

	if result == 0 {
		logrus.Debug(fmt.Sprintf("Trail key %s not found for deletion", key))
	}
	return nil
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
