package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// publishClient is the subset of *redis.Client the publisher needs.
type publishClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher forwards events to a Redis pub/sub channel so other
// portal processes can react to report changes.
type RedisPublisher struct {
	client  publishClient
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher creates a publisher for channel.
func NewRedisPublisher(client publishClient, channel string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Register subscribes the publisher to every event type.
func (p *RedisPublisher) Register(dispatcher Dispatcher) {
	if p == nil || dispatcher == nil {
		return
	}
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, p.Handle)
	}
}

// Handle encodes event as JSON and publishes it.
func (p *RedisPublisher) Handle(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("report_id", event.ReportID),
			zap.Error(err))
		return err
	}
	return nil
}
