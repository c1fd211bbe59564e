package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	chatKey = "hudcast:chat"

	// Newest-first list; the history endpoint never serves more than 100,
	// the extra headroom absorbs trim races between instances.
	chatMaxEntries = 500
)

type RedisChatRepository struct {
	client *redis.Client
}

func NewRedisChatRepository(client *redis.Client) ports.ChatRepository {
	return &RedisChatRepository{client: client}
}

func (r *RedisChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, chatKey, data)
	pipe.LTrim(ctx, chatKey, 0, chatMaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (r *RedisChatRepository) Recent(ctx context.Context, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 || limit > chatMaxEntries {
		limit = chatMaxEntries
	}
	items, err := r.client.LRange(ctx, chatKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat log: %w", err)
	}

	msgs := make([]*domain.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		msgs = append(msgs, &msg)
	}
	return msgs, nil
}
