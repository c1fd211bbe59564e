package memory

import (
	"context"
	"sync"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"

	"github.com/google/uuid"
)

const auditMaxEntries = 1000

// MemoryAuditRepository keeps a newest-first capped log, mirroring the
// Redis list layout.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry
}

func NewMemoryAuditRepository() ports.AuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	r.entries = append([]*domain.AuditEntry{&copied}, r.entries...)
	if len(r.entries) > auditMaxEntries {
		r.entries = r.entries[:auditMaxEntries]
	}
	return nil
}

func (r *MemoryAuditRepository) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]*domain.AuditEntry, limit)
	for i := 0; i < limit; i++ {
		copied := *r.entries[i]
		out[i] = &copied
	}
	return out, nil
}
