// Package main runs the polls HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pollsapp/backend/config"
	"github.com/pollsapp/backend/internal/auth"
	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/internal/events"
	"github.com/pollsapp/backend/internal/favorites"
	"github.com/pollsapp/backend/internal/middleware"
	"github.com/pollsapp/backend/internal/polls"
	"github.com/pollsapp/backend/internal/submissions"
	"github.com/pollsapp/backend/pkg/database"
	"github.com/pollsapp/backend/pkg/redis"
	"github.com/pollsapp/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Events are optional; without Redis the services skip publishing.
	var publisher polls.Publisher
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, cfg.Events.Channel, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, poll events disabled")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	authRepo := auth.NewRepository(pool)
	policy := authz.NewPolicy(cfg.Authz.ArchiveAdminPermission)

	// Favorites
	favoriteRepo := favorites.NewRepository(pool)
	overlay := favorites.NewOverlay(favoriteRepo)
	favoriteHandler := favorites.NewHandler(favorites.NewService(favoriteRepo, policy, logger), logger)

	// Polls
	pollRepo := polls.NewRepository(pool)
	pollHandler := polls.NewHandler(polls.NewService(pollRepo, overlay, policy, publisher, logger), logger)

	// Submissions
	submissionRepo := submissions.NewRepository(pool)
	submissionHandler := submissions.NewHandler(submissions.NewService(pollRepo, submissionRepo, policy, publisher, logger), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			logger.Error("health check", zap.Error(err))
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Identity is resolved for every API request; anonymous callers pass through
	// and the policy decides per operation.
	api := router.Group("")
	api.Use(middleware.Identity(jwtService, authRepo, logger))
	pollHandler.Register(api)
	favoriteHandler.Register(api)
	submissionHandler.Register(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
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
