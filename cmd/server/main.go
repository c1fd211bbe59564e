package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hudcast/internal/core/services"
	httphandlers "hudcast/internal/handlers/http"
	"hudcast/internal/infrastructure/middleware"
	"hudcast/internal/infrastructure/monitoring"
	"hudcast/internal/infrastructure/repositories"
	"hudcast/internal/realtime"
	"hudcast/pkg/config"
	"hudcast/pkg/logger"
	"hudcast/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	cfg, err := config.Load(configPath())
	if err != nil {
		panic(err)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	stateRepo := repoFactory.CreateStreamStateRepository()
	userRepo := repoFactory.CreateUserRepository()
	auditRepo := repoFactory.CreateAuditRepository()
	chatRepo := repoFactory.CreateChatRepository()
	telemetryRepo := repoFactory.CreateTelemetryRepository()

	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = services.Bootstrap(bootstrapCtx, stateRepo, userRepo, services.SeedAdmin{
		Username:    cfg.Auth.SeedAdmin.Username,
		Password:    cfg.Auth.SeedAdmin.Password,
		DisplayName: cfg.Auth.SeedAdmin.DisplayName,
	}, log)
	bootstrapCancel()
	if err != nil {
		log.Fatalw("failed to bootstrap stores", "error", err)
	}

	// The API server publishes signals; only the realtime binary
	// subscribes. Without Redis there is nothing to publish to and polling
	// carries the deployment.
	var publisher realtime.Publisher = realtime.NopPublisher{}
	if client := repoFactory.RedisClient(); client != nil {
		publisher = realtime.NewBus(client, cfg.Realtime.Channel, log)
	}

	collector := monitoring.NewPrometheusCollector()

	userService := services.NewUserService(userRepo, auditRepo, log)
	sessionService := services.NewStreamSessionService(
		stateRepo, auditRepo, publisher, userService, collector, log,
		services.SessionConfig{
			HeartbeatTimeout:  cfg.Stream.HeartbeatTimeout,
			RequestCooldown:   cfg.Stream.RequestCooldown,
			PendingRequestTTL: cfg.Stream.PendingRequestTTL,
		},
	)
	authService := services.NewAuthService(userRepo, auditRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log)
	chatService := services.NewChatService(chatRepo, log)
	telemetryService := services.NewTelemetryService(telemetryRepo, sessionService, log)
	mediaService := services.NewMediaTokenService(sessionService, services.MediaConfig{
		URL:      cfg.Media.URL,
		Room:     cfg.Media.Room,
		APIKey:   cfg.Media.APIKey,
		Secret:   cfg.Media.Secret,
		TokenTTL: cfg.Media.TokenTTL,
	}, log)

	authHandler := httphandlers.NewAuthHandler(authService, userService)
	streamHandler := httphandlers.NewStreamHandler(sessionService)
	userHandler := httphandlers.NewUserHandler(userService, auditRepo)
	chatHandler := httphandlers.NewChatHandler(chatService)
	telemetryHandler := httphandlers.NewTelemetryHandler(telemetryService)
	mediaHandler := httphandlers.NewMediaHandler(mediaService)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	public := router.Group("/api/v1")
	authHandler.SetupPublicRoutes(public)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	{
		authHandler.SetupRoutes(api)
		streamHandler.SetupRoutes(api)
		userHandler.SetupRoutes(api)
		chatHandler.SetupRoutes(api)
		telemetryHandler.SetupRoutes(api)
		mediaHandler.SetupRoutes(api)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminMiddleware())
		userHandler.SetupAdminRoutes(admin)
	}

	healthChecker := monitoring.NewHealthChecker()
	if client := repoFactory.RedisClient(); client != nil {
		healthChecker.AddRedisCheck(client, 2*time.Second)
	}
	healthChecker.AddStateCheck(stateRepo, 2*time.Second)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		if status.Status != "healthy" {
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting hudcast API server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down hudcast API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("hudcast API server stopped")
}

func configPath() string {
	if v := os.Getenv("HUDCAST_CONFIG"); v != "" {
		return v
	}
	return "configs/config.yaml"
}
