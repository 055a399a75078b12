// Package main runs the live classroom polling server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/swarooperla/Live-Polling-System/config"
	"github.com/swarooperla/Live-Polling-System/internal/middleware"
	"github.com/swarooperla/Live-Polling-System/internal/polls"
	"github.com/swarooperla/Live-Polling-System/internal/realtime"
	"github.com/swarooperla/Live-Polling-System/internal/students"
	"github.com/swarooperla/Live-Polling-System/pkg/database"
	"github.com/swarooperla/Live-Polling-System/pkg/redis"
	"github.com/swarooperla/Live-Polling-System/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis only backs the active-poll cache; the server runs without it.
	var pollCache *polls.Cache
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("active-poll cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		pollCache = polls.NewCache(rdb.Client, logger)
	}

	hub := realtime.NewHub(logger)

	// Students
	studentRepo := students.NewRepository(pool)
	registry := students.NewRegistry(studentRepo, hub, logger)
	studentHandler := students.NewHandler(studentRepo, logger)

	// Polls
	pollRepo := polls.NewRepository(pool)
	manager := polls.NewManager(pollRepo, pollCache, hub, registry, logger)
	pollHandler := polls.NewHandler(pollRepo, pollCache, logger)

	events := realtime.NewEventHandler(registry, manager, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.GET("/polls", pollHandler.List)
		api.DELETE("/polls", pollHandler.DeleteAll)
		api.DELETE("/students", studentHandler.DeleteAll)
	}

	router.GET("/ws", realtime.ServeWs(hub, events, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
