package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEmitter publishes audit events on a Redis Pub/Sub channel so an
// external telemetry collector can consume them without touching the
// engine process.
type RedisEmitter struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

// NewRedisEmitter creates the emitter. The channel defaults to
// "guardian:audit" when empty.
func NewRedisEmitter(client *redis.Client, channel string) *RedisEmitter {
	if channel == "" {
		channel = "guardian:audit"
	}
	return &RedisEmitter{
		client:  client,
		channel: channel,
		timeout: 2 * time.Second,
	}
}

// Write publishes one event. Called from the notifier's emit goroutines,
// so a short timeout is enough to keep failures contained.
func (e *RedisEmitter) Write(evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", e.channel, err)
	}
	return nil
}
