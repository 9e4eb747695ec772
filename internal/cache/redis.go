package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bilgisen/newswatch/internal/models"
)

// RedisClient shards news entries across one or more redis servers
type RedisClient struct {
	client *redis.Ring
}

// NewRedisClient connects to every server in the list and verifies each shard
func NewRedisClient(servers []string) (*RedisClient, error) {
	if len(servers) == 0 {
		return nil, errors.New("no cache servers configured")
	}

	addrs := make(map[string]string, len(servers))
	for i, server := range servers {
		addrs[fmt.Sprintf("shard%d", i+1)] = server
	}

	client := redis.NewRing(&redis.RingOptions{
		Addrs:        addrs,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.ForEachShard(ctx, func(ctx context.Context, shard *redis.Client) error {
		return shard.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Get(ctx context.Context, key string) (*models.NewsItem, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	var item models.NewsItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, false, fmt.Errorf("decode cached news %s: %w", key, err)
	}
	return &item, true, nil
}

func (r *RedisClient) Set(ctx context.Context, key string, ttl time.Duration, item *models.NewsItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode news for cache: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}
