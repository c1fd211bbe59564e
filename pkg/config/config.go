package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Realtime struct {
		Address         string        `yaml:"address"`
		Channel         string        `yaml:"channel"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		PongTimeout     time.Duration `yaml:"pong_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		MaxMessageBytes int64         `yaml:"max_message_bytes"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"realtime"`

	// Stream holds the ownership-protocol constants. Heartbeat timeout and
	// request cooldown are protocol-level; pending_request_ttl bounds how
	// long an unanswered takeover request blocks other requesters
	// (0 keeps it until the owner responds or changes).
	Stream struct {
		HeartbeatTimeout  time.Duration `yaml:"heartbeat_timeout"`
		RequestCooldown   time.Duration `yaml:"request_cooldown"`
		PendingRequestTTL time.Duration `yaml:"pending_request_ttl"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
		PollInterval      time.Duration `yaml:"poll_interval"`
	} `yaml:"stream"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
		SeedAdmin      struct {
			Username    string `yaml:"username"`
			Password    string `yaml:"password"`
			DisplayName string `yaml:"display_name"`
		} `yaml:"seed_admin"`
	} `yaml:"auth"`

	Media struct {
		URL      string        `yaml:"url"`
		Room     string        `yaml:"room"`
		APIKey   string        `yaml:"api_key"`
		Secret   string        `yaml:"secret"`
		TokenTTL time.Duration `yaml:"token_ttl"`
	} `yaml:"media"`

	Telemetry struct {
		Retention time.Duration `yaml:"retention"`
	} `yaml:"telemetry"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Realtime.Address == "" {
		return fmt.Errorf("realtime.address must not be empty")
	}
	if c.Realtime.Channel == "" {
		return fmt.Errorf("realtime.channel must not be empty")
	}
	if c.Realtime.PingInterval <= 0 {
		return fmt.Errorf("realtime.ping_interval must be > 0")
	}
	if c.Realtime.PongTimeout <= c.Realtime.PingInterval {
		return fmt.Errorf("realtime.pong_timeout must be > ping_interval")
	}

	if c.Stream.HeartbeatTimeout <= 0 {
		return fmt.Errorf("stream.heartbeat_timeout must be > 0")
	}
	if c.Stream.RequestCooldown <= 0 {
		return fmt.Errorf("stream.request_cooldown must be > 0")
	}
	if c.Stream.PendingRequestTTL < 0 {
		return fmt.Errorf("stream.pending_request_ttl must be >= 0")
	}
	if c.Stream.HeartbeatInterval <= 0 || c.Stream.HeartbeatInterval >= c.Stream.HeartbeatTimeout {
		return fmt.Errorf("stream.heartbeat_interval must be > 0 and < heartbeat_timeout")
	}
	if c.Stream.PollInterval <= 0 {
		return fmt.Errorf("stream.poll_interval must be > 0")
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	if c.Media.TokenTTL <= 0 {
		return fmt.Errorf("media.token_ttl must be > 0")
	}

	if c.Telemetry.Retention <= 0 {
		return fmt.Errorf("telemetry.retention must be > 0")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0")
		}
	}

	return nil
}

// Load reads configuration from a YAML file, applies defaults and env
// overrides. A missing file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults. The stream
// section defaults are the protocol constants the clients are built
// around; change them only in lockstep with client deployments.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Realtime.Address = ":8081"
	cfg.Realtime.Channel = "hudcast:realtime"
	cfg.Realtime.PingInterval = 30 * time.Second
	cfg.Realtime.PongTimeout = 60 * time.Second
	cfg.Realtime.WriteTimeout = 10 * time.Second
	cfg.Realtime.MaxMessageBytes = 16 * 1024
	cfg.Realtime.ShutdownTimeout = 30 * time.Second

	cfg.Stream.HeartbeatTimeout = 10 * time.Second
	cfg.Stream.RequestCooldown = 30 * time.Second
	cfg.Stream.PendingRequestTTL = 0
	cfg.Stream.HeartbeatInterval = 2 * time.Second
	cfg.Stream.PollInterval = 5 * time.Second

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 12 * time.Hour

	cfg.Media.Room = "hud-room"
	cfg.Media.TokenTTL = time.Hour

	cfg.Telemetry.Retention = 5 * time.Minute

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "hudcast"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

// applyEnvOverrides lets deployment environments override the secrets and
// addresses without editing the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HUDCAST_SERVER_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("HUDCAST_REALTIME_ADDRESS"); v != "" {
		c.Realtime.Address = v
	}
	if v := os.Getenv("HUDCAST_REDIS_ADDRESS"); v != "" {
		c.Redis.Address = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("HUDCAST_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("HUDCAST_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("HUDCAST_SEED_ADMIN_USERNAME"); v != "" {
		c.Auth.SeedAdmin.Username = v
	}
	if v := os.Getenv("HUDCAST_SEED_ADMIN_PASSWORD"); v != "" {
		c.Auth.SeedAdmin.Password = v
	}
	if v := os.Getenv("HUDCAST_MEDIA_URL"); v != "" {
		c.Media.URL = v
	}
	if v := os.Getenv("HUDCAST_MEDIA_API_KEY"); v != "" {
		c.Media.APIKey = v
	}
	if v := os.Getenv("HUDCAST_MEDIA_SECRET"); v != "" {
		c.Media.Secret = v
	}
	if v := os.Getenv("HUDCAST_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
