package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const telemetryKey = "hudcast:telemetry:latest"

// RedisTelemetryRepository keeps only the newest location fix, with a TTL
// so a stream that ends stops advertising a stale position.
type RedisTelemetryRepository struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisTelemetryRepository(client *redis.Client, retention time.Duration) ports.TelemetryRepository {
	return &RedisTelemetryRepository{client: client, retention: retention}
}

func (r *RedisTelemetryRepository) Put(ctx context.Context, t *domain.Telemetry) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry: %w", err)
	}
	if err := r.client.Set(ctx, telemetryKey, data, r.retention).Err(); err != nil {
		return fmt.Errorf("failed to set telemetry in Redis: %w", err)
	}
	return nil
}

func (r *RedisTelemetryRepository) Latest(ctx context.Context) (*domain.Telemetry, error) {
	data, err := r.client.Get(ctx, telemetryKey).Result()
	if err == redis.Nil {
		return nil, domain.ErrTelemetryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get telemetry from Redis: %w", err)
	}

	var t domain.Telemetry
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal telemetry: %w", err)
	}
	return &t, nil
}
