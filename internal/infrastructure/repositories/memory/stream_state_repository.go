package memory

import (
	"context"
	"sync"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
)

// MemoryStreamStateRepository holds the singleton ownership record behind
// a mutex. It serializes mutations exactly like the Redis transaction
// does, but only within one process; use it for single-instance
// deployments and tests.
type MemoryStreamStateRepository struct {
	mu    sync.Mutex
	state *domain.StreamState
}

func NewMemoryStreamStateRepository() ports.StreamStateRepository {
	return &MemoryStreamStateRepository{}
}

func (r *MemoryStreamStateRepository) Get(ctx context.Context) (*domain.StreamState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		return nil, domain.ErrStateNotFound
	}
	return r.state.Clone(), nil
}

func (r *MemoryStreamStateRepository) Mutate(ctx context.Context, fn func(*domain.StreamState) error) (*domain.StreamState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		return nil, domain.ErrStateNotFound
	}

	// fn works on a copy so an aborted mutation leaves the record intact.
	working := r.state.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := working.CheckInvariants(); err != nil {
		return nil, err
	}

	r.state = working
	return working.Clone(), nil
}

func (r *MemoryStreamStateRepository) EnsureInitialized(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		r.state = domain.NewStreamState(time.Now())
	}
	return nil
}
