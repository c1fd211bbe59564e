package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix     = "hudcast:user:"
	usernameKeyPrefix = "hudcast:username:"
	userSetKey        = "hudcast:users"
)

// storedUser is the persistence shape. The domain struct hides the
// password hash from JSON on purpose, so the repository re-adds it here.
type storedUser struct {
	domain.User
	PasswordHash string `json:"passwordHash"`
}

func marshalUser(user *domain.User) ([]byte, error) {
	return json.Marshal(storedUser{User: *user, PasswordHash: user.PasswordHash})
}

func unmarshalUser(data []byte) (*domain.User, error) {
	var stored storedUser
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	user := stored.User
	user.PasswordHash = stored.PasswordHash
	return &user, nil
}

type RedisUserRepository struct {
	client *redis.Client
}

func NewRedisUserRepository(client *redis.Client) ports.UserRepository {
	return &RedisUserRepository{client: client}
}

func (r *RedisUserRepository) userKey(id domain.UserID) string {
	return userKeyPrefix + string(id)
}

func (r *RedisUserRepository) usernameKey(username string) string {
	return usernameKeyPrefix + strings.ToLower(username)
}

func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	// The username index doubles as the uniqueness guard: SetNX loses to a
	// concurrent create of the same name.
	ok, err := r.client.SetNX(ctx, r.usernameKey(user.Username), string(user.ID), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve username: %w", err)
	}
	if !ok {
		return domain.ErrUserExists
	}

	data, err := marshalUser(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := r.client.Set(ctx, r.userKey(user.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set user in Redis: %w", err)
	}
	if err := r.client.SAdd(ctx, userSetKey, string(user.ID)).Err(); err != nil {
		return fmt.Errorf("failed to add user to index: %w", err)
	}
	return nil
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	data, err := r.client.Get(ctx, r.userKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Redis: %w", err)
	}
	return unmarshalUser([]byte(data))
}

func (r *RedisUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, err := r.client.Get(ctx, r.usernameKey(username)).Result()
	if err == redis.Nil {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}
	return r.GetByID(ctx, domain.UserID(id))
}

// Update persists changed fields. Usernames are immutable, so the index
// never needs rewriting.
func (r *RedisUserRepository) Update(ctx context.Context, user *domain.User) error {
	exists, err := r.client.Exists(ctx, r.userKey(user.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists == 0 {
		return domain.ErrUserNotFound
	}

	data, err := marshalUser(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := r.client.Set(ctx, r.userKey(user.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update user in Redis: %w", err)
	}
	return nil
}

func (r *RedisUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ids, err := r.client.SMembers(ctx, userSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users from Redis: %w", err)
	}

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := r.GetByID(ctx, domain.UserID(id))
		if err != nil {
			// Index entries for deleted records are skipped.
			continue
		}
		users = append(users, user)
	}
	return users, nil
}
