package ports

import (
	"context"

	"hudcast/internal/core/domain"
)

// StreamStateRepository persists the singleton ownership record. Mutate is
// the only write path: it executes fn against the current record as a
// single atomic read-modify-write (row lock or optimistic CAS with retry),
// so concurrent mutations serialize and exactly one of two competing
// adopts can succeed. fn returning an error aborts the write and the error
// is returned unchanged.
type StreamStateRepository interface {
	Get(ctx context.Context) (*domain.StreamState, error)
	Mutate(ctx context.Context, fn func(*domain.StreamState) error) (*domain.StreamState, error)
	EnsureInitialized(ctx context.Context) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context) ([]*domain.User, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

// ChatRepository keeps a newest-first capped chat log.
type ChatRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	Recent(ctx context.Context, limit int) ([]*domain.ChatMessage, error)
}

type TelemetryRepository interface {
	Put(ctx context.Context, t *domain.Telemetry) error
	Latest(ctx context.Context) (*domain.Telemetry, error)
}
