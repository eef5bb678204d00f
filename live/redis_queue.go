package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/redis/go-redis/v9"
)

const DefaultQueueName = "scorekeeper_events"

type listPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisQueue appends session events to a Redis list for out-of-process consumers.
type RedisQueue struct {
	client listPusher
	queue  string
}

func NewRedisQueue(client *redis.Client, queue string) *RedisQueue {
	return newRedisQueue(client, queue)
}

func newRedisQueue(client listPusher, queue string) *RedisQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisQueue{client: client, queue: queue}
}

func (q *RedisQueue) Notify(ctx context.Context, event models.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event %s: %w", event.Type, err)
	}
	if err := q.client.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// Connect opens a Redis client and checks it answers.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}
