package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	auditKey = "hudcast:audit"

	// Newest-first list, capped so a chatty deployment cannot grow it
	// without bound.
	auditMaxEntries = 1000
)

type RedisAuditRepository struct {
	client *redis.Client
}

func NewRedisAuditRepository(client *redis.Client) ports.AuditRepository {
	return &RedisAuditRepository{client: client}
}

func (r *RedisAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, auditKey, data)
	pipe.LTrim(ctx, auditKey, 0, auditMaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *RedisAuditRepository) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 || limit > auditMaxEntries {
		limit = auditMaxEntries
	}
	items, err := r.client.LRange(ctx, auditKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	entries := make([]*domain.AuditEntry, 0, len(items))
	for _, item := range items {
		var entry domain.AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
