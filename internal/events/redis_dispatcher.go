package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel carrying serialized domain events.
const Channel = "helpdesk.events"

// redisDispatcher mirrors every event to a Redis channel for out-of-process
// consumers while still serving in-process subscribers.
type redisDispatcher struct {
	client *redis.Client
	local  Dispatcher
	logger *zap.Logger
}

// NewRedisDispatcher wraps an in-memory dispatcher with Redis fan-out.
func NewRedisDispatcher(client *redis.Client, logger *zap.Logger) Dispatcher {
	return &redisDispatcher{
		client: client,
		local:  NewInMemoryDispatcher(),
		logger: logger,
	}
}

func (d *redisDispatcher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Warn("marshal event", zap.Error(err), zap.String("type", string(event.Type)))
	} else if err := d.client.Publish(ctx, Channel, payload).Err(); err != nil {
		// Redis being down must not affect the emitting workflow.
		d.logger.Warn("publish event to redis", zap.Error(err), zap.String("type", string(event.Type)))
	}
	return d.local.Publish(ctx, event)
}

func (d *redisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.local.Subscribe(eventType, handler)
}
