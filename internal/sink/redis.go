package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hnwatch/internal/config"
	"hnwatch/internal/story"
)

// Redis publishes each story as JSON on a channel and optionally keeps the
// most recent ones in a capped list.
type Redis struct {
	client  *redis.Client
	channel string
	list    string
	maxLen  int64
}

func NewRedis(cfg config.RedisSink) (*Redis, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis sink has no address")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedis(rdb, cfg), nil
}

func newRedis(rdb *redis.Client, cfg config.RedisSink) *Redis {
	return &Redis{
		client:  rdb,
		channel: cfg.Channel,
		list:    cfg.List,
		maxLen:  cfg.MaxLen,
	}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Notify(ctx context.Context, s story.Story) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	if r.channel != "" {
		if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
			return fmt.Errorf("failed to publish story %d: %w", s.ID, err)
		}
	}

	if r.list != "" {
		pipe := r.client.TxPipeline()
		pipe.LPush(ctx, r.list, body)
		if r.maxLen > 0 {
			pipe.LTrim(ctx, r.list, 0, r.maxLen-1)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to append story %d: %w", s.ID, err)
		}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
