package memory

import (
	"context"
	"sync"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
)

// MemoryTelemetryRepository keeps the newest location fix. Reads past the
// retention window behave like the Redis TTL expiring the key.
type MemoryTelemetryRepository struct {
	mu        sync.RWMutex
	latest    *domain.Telemetry
	retention time.Duration
}

func NewMemoryTelemetryRepository(retention time.Duration) ports.TelemetryRepository {
	return &MemoryTelemetryRepository{retention: retention}
}

func (r *MemoryTelemetryRepository) Put(ctx context.Context, t *domain.Telemetry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *t
	r.latest = &copied
	return nil
}

func (r *MemoryTelemetryRepository) Latest(ctx context.Context) (*domain.Telemetry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.latest == nil {
		return nil, domain.ErrTelemetryNotFound
	}
	if r.retention > 0 && time.Since(r.latest.UpdatedAt) > r.retention {
		return nil, domain.ErrTelemetryNotFound
	}
	copied := *r.latest
	return &copied, nil
}
