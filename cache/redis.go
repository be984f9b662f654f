package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldLastSeen     = "last_seen"
	fieldLastStopTime = "last_stop_time"
)

// RedisPresence stores presence as a hash per device with a rolling expiry.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPresence(client *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{client: client, ttl: ttl}
}

// NewRedisClient parses url and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
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

func presenceKey(tenantID, deviceID string) string {
	return fmt.Sprintf("iot:device:%s:%s:status", tenantID, deviceID)
}

func (r *RedisPresence) Touch(ctx context.Context, tenantID, deviceID string, p Presence) error {
	key := presenceKey(tenantID, deviceID)
	fields := map[string]interface{}{
		fieldLastSeen: p.LastSeen.UTC().Format(time.RFC3339Nano),
	}
	if !p.LastStopTime.IsZero() {
		fields[fieldLastStopTime] = p.LastStopTime.UTC().Format(time.RFC3339Nano)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	return err
}

func (r *RedisPresence) Get(ctx context.Context, tenantID, deviceID string) (*Presence, error) {
	values, err := r.client.HGetAll(ctx, presenceKey(tenantID, deviceID)).Result()
	if err != nil {
		return nil, err
	}
	raw, ok := values[fieldLastSeen]
	if !ok {
		return nil, nil
	}
	lastSeen, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("presence %s: %w", fieldLastSeen, err)
	}
	p := &Presence{LastSeen: lastSeen}
	if raw, ok := values[fieldLastStopTime]; ok {
		if stop, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			p.LastStopTime = stop
		}
	}
	return p, nil
}
