package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialprobe/internal/analysis"
	"socialprobe/internal/api/handlers"
	"socialprobe/internal/api/routes"
	"socialprobe/internal/background"
	"socialprobe/internal/callback"
	"socialprobe/internal/config"
	"socialprobe/internal/grpc/server"
	"socialprobe/internal/logging"
	"socialprobe/internal/mux"
	"socialprobe/internal/pipeline"
	"socialprobe/pkg/utils"

	"github.com/labstack/echo/v4"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting socialprobe", map[string]interface{}{
		"providers": cfg.Providers.Order,
		"version":   handlers.Version,
	})

	p, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build provider pipeline", nil)
	}

	checks := map[string]handlers.Check{}

	var redisClient *utils.RedisClient
	if cfg.Cache.Enabled || cfg.BackgroundTasks.Store == "redis" {
		redisClient = utils.NewRedisClient(cfg)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx); err != nil {
			logger.WithError(err).Warn("Redis is not reachable yet", nil)
		}
		cancel()
		checks["redis"] = redisClient.IsHealthy
	}

	var cache analysis.Cache
	if cfg.Cache.Enabled {
		cache = redisClient
	}
	service := analysis.NewService(p, cache, logger)

	var store background.TaskStore
	if cfg.BackgroundTasks.Store == "redis" {
		store = background.NewRedisTaskStore(redisClient, cfg.BackgroundTasks.MaxTaskAge)
	}

	logger.Info("Initializing background task manager", nil)
	taskManager := background.NewTaskManager(cfg, service, store, logger)
	if cfg.Callback.ServerAddress != "" {
		callbackClient, err := callback.NewClient(callback.ConfigFrom(cfg), logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create callback client", nil)
		}
		defer callbackClient.Close()
		taskManager.SetNotifier(callbackClient)
	}
	if err := taskManager.Start(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to start task manager", nil)
	}
	checks["tasks"] = func(ctx context.Context) error {
		if !taskManager.IsHealthy() {
			return fmt.Errorf("task manager is not running")
		}
		return nil
	}

	var grpcServer *server.Server
	if cfg.GRPC.Enabled {
		grpcServer = server.NewServer(cfg, service, taskManager, logger)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	routes.SetupRoutes(e, cfg, routes.Dependencies{
		Analyzer:    service,
		TaskManager: taskManager,
		Registry:    p.Registry(),
		Guard:       p.Guard(),
		Checks:      checks,
	})
	if grpcServer != nil {
		e.GET("/api/v1/grpc/metrics", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"methods": grpcServer.Metrics().Snapshot(),
			})
		})
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	m := mux.NewMultiplexer(cfg, grpcServer, e, logger)
	if err := m.Start(address); err != nil {
		logger.WithError(err).Fatal("Server failed to start", nil)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// stop accepting work before draining the workers
	if err := m.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error stopping servers", nil)
	}

	logger.Info("Stopping background task manager...", nil)
	if err := taskManager.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error stopping task manager", nil)
	}

	logger.Info("Server shutdown complete", nil)
}
