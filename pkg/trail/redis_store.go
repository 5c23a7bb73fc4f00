package trail

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"OcularBiomarker/pkg/geometry"
	redisPkg "OcularBiomarker/pkg/redis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const keyPrefix = "trail:"

// RedisStore keeps trails in redis lists so several instances can share a
// session. Each list is capped at the store capacity and expires after ttl.
type RedisStore struct {
	client   redisPkg.IRedis
	capacity int
	ttl      time.Duration
}

func NewRedisStore(client redisPkg.IRedis, capacity int, ttl time.Duration) *RedisStore {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &RedisStore{client: client, capacity: capacity, ttl: ttl}
}

func (s *RedisStore) Capacity() int {
	return s.capacity
}

func (s *RedisStore) Append(ctx context.Context, session string, p geometry.Vector) ([]geometry.Vector, error) {
	if session == "" {
		return nil, ErrEmptySession
	}

	raw, err := json.MarshalToString(p)
	if err != nil {
		return nil, err
	}

	vals, err := s.client.PushTrail(ctx, keyPrefix+session, raw, s.capacity, s.ttl)
	if err != nil {
		return nil, err
	}

	return decodePoints(vals)
}

func (s *RedisStore) Points(ctx context.Context, session string) ([]geometry.Vector, error) {
	if session == "" {
		return nil, ErrEmptySession
	}

	vals, err := s.client.GetTrail(ctx, keyPrefix+session)
	if err != nil {
		return nil, err
	}

	return decodePoints(vals)
}

func (s *RedisStore) Reset(ctx context.Context, session string) error {
	if session == "" {
		return ErrEmptySession
	}
	return s.client.DeleteTrail(ctx, keyPrefix+session)
}

func decodePoints(vals []string) ([]geometry.Vector, error) {
	out := make([]geometry.Vector, 0, len(vals))
	for i, v := range vals {
		var p geometry.Vector
		if err := json.UnmarshalFromString(v, &p); err != nil {
			return nil, fmt.Errorf("decode trail point %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
