package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/pkg/retry"

	"github.com/redis/go-redis/v9"
)

const streamStateKey = "hudcast:stream:state"

// RedisStreamStateRepository persists the singleton ownership record.
// Mutations run as WATCH/MULTI optimistic transactions: two instances
// racing on the same record serialize at the store, so exactly one of two
// competing adopts wins regardless of how many API servers are running.
type RedisStreamStateRepository struct {
	client   *redis.Client
	retryCfg retry.Config
}

func NewRedisStreamStateRepository(client *redis.Client) ports.StreamStateRepository {
	cfg := retry.DefaultConfig()
	cfg.RetryIf = func(err error) bool {
		return errors.Is(err, redis.TxFailedErr)
	}
	return &RedisStreamStateRepository{client: client, retryCfg: cfg}
}

func (r *RedisStreamStateRepository) Get(ctx context.Context) (*domain.StreamState, error) {
	data, err := r.client.Get(ctx, streamStateKey).Result()
	if err == redis.Nil {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream state from Redis: %w", err)
	}
	return unmarshalState([]byte(data))
}

// Mutate runs fn against the current record inside one optimistic
// transaction. A concurrent write voids the transaction and the whole
// read-modify-write retries with backoff; fn must therefore be pure with
// respect to the record it is handed.
func (r *RedisStreamStateRepository) Mutate(ctx context.Context, fn func(*domain.StreamState) error) (*domain.StreamState, error) {
	return retry.DoWithResult(ctx, r.retryCfg, func() (*domain.StreamState, error) {
		var result *domain.StreamState

		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, streamStateKey).Result()
			if err == redis.Nil {
				return domain.ErrStateNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get stream state from Redis: %w", err)
			}

			state, err := unmarshalState([]byte(data))
			if err != nil {
				return err
			}
			if err := fn(state); err != nil {
				return err
			}
			if err := state.CheckInvariants(); err != nil {
				return err
			}

			payload, err := json.Marshal(state)
			if err != nil {
				return fmt.Errorf("failed to marshal stream state: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, streamStateKey, payload, 0)
				return nil
			})
			if err != nil {
				return err
			}

			result = state
			return nil
		}, streamStateKey)

		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

func (r *RedisStreamStateRepository) EnsureInitialized(ctx context.Context) error {
	data, err := json.Marshal(domain.NewStreamState(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal stream state: %w", err)
	}
	if err := r.client.SetNX(ctx, streamStateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to initialize stream state: %w", err)
	}
	return nil
}

func unmarshalState(data []byte) (*domain.StreamState, error) {
	var state domain.StreamState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream state: %w", err)
	}
	return &state, nil
}
