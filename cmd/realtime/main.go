package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hudcast/internal/core/services"
	"hudcast/internal/infrastructure/monitoring"
	"hudcast/internal/infrastructure/repositories"
	"hudcast/internal/realtime"
	"hudcast/pkg/config"
	"hudcast/pkg/logger"

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

	// The realtime server is the fan-out side of the pub/sub channel; it
	// cannot run without the broker.
	if !cfg.Redis.Enabled {
		log.Fatal("realtime server requires redis.enabled=true")
	}

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	client := repoFactory.RedisClient()
	if client == nil {
		log.Fatal("failed to connect to redis")
	}

	userRepo := repoFactory.CreateUserRepository()
	auditRepo := repoFactory.CreateAuditRepository()
	authService := services.NewAuthService(userRepo, auditRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log)
	chatService := services.NewChatService(repoFactory.CreateChatRepository(), log)

	bus := realtime.NewBus(client, cfg.Realtime.Channel, log)
	hub := realtime.NewHub(bus, authService, chatService, realtime.HubConfig{
		PingInterval:    cfg.Realtime.PingInterval,
		PongTimeout:     cfg.Realtime.PongTimeout,
		WriteTimeout:    cfg.Realtime.WriteTimeout,
		MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
	}, log)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go func() {
		if err := hub.Run(runCtx); err != nil && runCtx.Err() == nil {
			log.Errorw("realtime subscription ended", "error", err)
		}
	}()

	collector := monitoring.NewPrometheusCollector()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				collector.SetRealtimeClients(hub.ClientCount())
			}
		}
	}()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ws", func(c *gin.Context) {
		hub.HandleWebSocket(c.Writer, c.Request)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"clients":   hub.ClientCount(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	srv := &http.Server{
		Addr:        cfg.Realtime.Address,
		Handler:     router,
		ReadTimeout: 0, // websocket connections are long-lived
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting hudcast realtime server on %s", cfg.Realtime.Address)
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

	log.Info("Shutting down hudcast realtime server...")
	runCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Realtime.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	log.Info("hudcast realtime server stopped")
}

func configPath() string {
	if v := os.Getenv("HUDCAST_CONFIG"); v != "" {
		return v
	}
	return "configs/config.yaml"
}
