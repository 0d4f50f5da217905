package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"retail-rfm/pkg/models"
)

const keyPrefix = "rfm:dataset:"

// RedisStore stocke les jeux en JSON dans Redis, avec expiration.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis se connecte à redisURL et vérifie la connexion.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisStore : ttl <= 0 => pas d'expiration.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.Dataset, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Dataset{}, false, nil
	}
	if err != nil {
		return models.Dataset{}, false, fmt.Errorf("redis get %s: %w", id, err)
	}
	var ds models.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return models.Dataset{}, false, fmt.Errorf("decode dataset %s: %w", id, err)
	}
	return ds, true, nil
}

func (s *RedisStore) Put(ctx context.Context, ds models.Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", ds.ID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+ds.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", ds.ID, err)
	}
	return nil
}
