package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"hudcast/pkg/circuitbreaker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher is the fire-and-forget side of the signaling channel. Errors
// are surfaced so callers can log them, but the durable mutation has
// already committed by the time a publish happens; nobody retries.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// NopPublisher discards messages. Used when no broker is configured and
// in tests; polling alone keeps clients convergent.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, msg Message) error { return nil }

// frame wraps a message on the broker with its origin instance so a hub
// can skip its own republished messages.
type frame struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

// Bus fans messages out through a redis pub/sub channel. Publishes go
// through a circuit breaker: when the broker is down the authoritative
// write path keeps its latency and clients fall back to the 5s poll.
type Bus struct {
	client     *redis.Client
	channel    string
	instanceID string
	breaker    *circuitbreaker.Breaker
	logger     *zap.SugaredLogger
}

func NewBus(client *redis.Client, channel string, logger *zap.SugaredLogger) *Bus {
	return &Bus{
		client:     client,
		channel:    channel,
		instanceID: uuid.New().String(),
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:     logger,
	}
}

func (b *Bus) Publish(ctx context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode realtime message: %w", err)
	}
	payload, err := json.Marshal(frame{Origin: b.instanceID, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode realtime frame: %w", err)
	}

	return b.breaker.Execute(func() error {
		if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish realtime message: %w", err)
		}
		return nil
	})
}

// Subscribe delivers every decodable message published by other
// instances to handler until ctx is cancelled. Malformed payloads are
// logged and dropped.
func (b *Bus) Subscribe(ctx context.Context, handler func(Message)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return fmt.Errorf("realtime subscription closed")
			}
			var f frame
			if err := json.Unmarshal([]byte(raw.Payload), &f); err != nil {
				b.logger.Warnw("dropping malformed realtime frame", "error", err)
				continue
			}
			if f.Origin == b.instanceID {
				continue
			}
			msg, err := Decode(f.Data)
			if err != nil {
				b.logger.Warnw("dropping invalid realtime message", "error", err)
				continue
			}
			handler(msg)
		}
	}
}
