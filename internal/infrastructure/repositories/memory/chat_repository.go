package memory

import (
	"context"
	"sync"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
)

const chatMaxEntries = 500

// MemoryChatRepository keeps a newest-first capped chat log, mirroring
// the Redis list layout.
type MemoryChatRepository struct {
	mu   sync.RWMutex
	msgs []*domain.ChatMessage
}

func NewMemoryChatRepository() ports.ChatRepository {
	return &MemoryChatRepository{}
}

func (r *MemoryChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *msg
	r.msgs = append([]*domain.ChatMessage{&copied}, r.msgs...)
	if len(r.msgs) > chatMaxEntries {
		r.msgs = r.msgs[:chatMaxEntries]
	}
	return nil
}

func (r *MemoryChatRepository) Recent(ctx context.Context, limit int) ([]*domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.msgs) {
		limit = len(r.msgs)
	}
	out := make([]*domain.ChatMessage, limit)
	for i := 0; i < limit; i++ {
		copied := *r.msgs[i]
		out[i] = &copied
	}
	return out, nil
}
