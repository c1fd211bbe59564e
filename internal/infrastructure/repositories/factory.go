package repositories

import (
	"context"

	"hudcast/internal/core/ports"
	"hudcast/internal/infrastructure/repositories/memory"
	redisrepo "hudcast/internal/infrastructure/repositories/redis"
	"hudcast/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support. Redis is
// required for multi-instance deployments: the memory fallback serializes
// ownership writes only within one process.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	cfg         *config.Config
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		cfg:      cfg,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// RedisClient exposes the shared client for the realtime bus and the
// distributed lock. Nil when running on memory repositories.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	if f.useRedis {
		return f.redisClient
	}
	return nil
}

func (f *RepositoryFactory) CreateStreamStateRepository() ports.StreamStateRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisStreamStateRepository(f.redisClient)
	}
	return memory.NewMemoryStreamStateRepository()
}

func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisUserRepository(f.redisClient)
	}
	return memory.NewMemoryUserRepository()
}

func (f *RepositoryFactory) CreateAuditRepository() ports.AuditRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisAuditRepository(f.redisClient)
	}
	return memory.NewMemoryAuditRepository()
}

func (f *RepositoryFactory) CreateChatRepository() ports.ChatRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisChatRepository(f.redisClient)
	}
	return memory.NewMemoryChatRepository()
}

func (f *RepositoryFactory) CreateTelemetryRepository() ports.TelemetryRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisTelemetryRepository(f.redisClient, f.cfg.Telemetry.Retention)
	}
	return memory.NewMemoryTelemetryRepository(f.cfg.Telemetry.Retention)
}

// Close closes the Redis connection if used.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
