package memory

import (
	"context"
	"strings"
	"sync"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
)

type MemoryUserRepository struct {
	mu     sync.RWMutex
	byID   map[domain.UserID]*domain.User
	byName map[string]domain.UserID
}

func NewMemoryUserRepository() ports.UserRepository {
	return &MemoryUserRepository{
		byID:   make(map[domain.UserID]*domain.User),
		byName: make(map[string]domain.UserID),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(user.Username)
	if _, exists := r.byName[name]; exists {
		return domain.ErrUserExists
	}

	copied := *user
	r.byID[user.ID] = &copied
	r.byName[name] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[strings.ToLower(username)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}
