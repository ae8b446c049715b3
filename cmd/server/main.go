package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/synergy-api/internal/auth"
	"github.com/yukikurage/synergy-api/internal/config"
	"github.com/yukikurage/synergy-api/internal/constants"
	"github.com/yukikurage/synergy-api/internal/database"
	"github.com/yukikurage/synergy-api/internal/events"
	"github.com/yukikurage/synergy-api/internal/handlers"
	"github.com/yukikurage/synergy-api/internal/logger"
	"github.com/yukikurage/synergy-api/internal/repository"
	"github.com/yukikurage/synergy-api/internal/router"
	"github.com/yukikurage/synergy-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.LogLevel)
	defer zlog.Sync()

	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg, zlog); err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(zlog); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := database.AddIndexes(database.GetDB(), zlog); err != nil {
		zlog.Fatal("Failed to create indexes", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.NewStore(database.GetDB())
	notificationService := services.NewNotificationService(store.Notifications, zlog)

	publisher, eventsHealthy, closeEvents, err := setupEvents(ctx, cfg, zlog, notificationService.Handle)
	if err != nil {
		zlog.Fatal("Failed to set up event delivery", zap.Error(err))
	}

	// Initialize services
	membershipService := services.NewMembershipService(store, publisher, cfg.LookupTimeout, zlog)
	projectService := services.NewProjectService(store, membershipService)
	userService := services.NewUserService(store.Users)
	taskService := services.NewTaskService(store, membershipService, publisher, zlog, services.TaskServiceOptions{
		LookupTimeout: cfg.LookupTimeout,
		UpdateRetries: cfg.UpdateRetries,
	})
	commentService := services.NewCommentService(store, membershipService, publisher)

	r := router.New(router.Deps{
		CORSOrigins:   cfg.CORSOrigins,
		EventsHealthy: eventsHealthy,
		Verifier:      auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Users:         userService,
		Auth:          handlers.NewAuthHandler(userService),
		Projects:      handlers.NewProjectHandler(projectService, membershipService),
		Tasks:         handlers.NewTaskHandler(taskService),
		Comments:      handlers.NewCommentHandler(commentService),
		Notifications: handlers.NewNotificationHandler(notificationService),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zlog.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancel()
	closeEvents()
	zlog.Info("Server stopped")
}

// setupEvents returns the publisher used by the services, a health check for
// /health and a close function. With AMQP_URL set, events travel through the
// broker and are consumed here; otherwise they are dispatched in process.
func setupEvents(ctx context.Context, cfg *config.Config, zlog *zap.Logger, handler events.Handler) (events.Publisher, func() bool, func(), error) {
	if cfg.AMQPURL == "" {
		dispatcher := events.NewDispatcher(handler, zlog, events.DispatcherOptions{
			Workers:        cfg.NotifyWorkers,
			Buffer:         cfg.NotifyBuffer,
			HandlerTimeout: constants.NotificationHandlerTimeout,
		})
		dispatcher.Start()
		zlog.Info("Using in-process event dispatcher", zap.Int("workers", cfg.NotifyWorkers))
		return dispatcher, nil, dispatcher.Close, nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, zlog)
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		deduper events.Deduper
		rdb     *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Warn("Redis unreachable, redeliveries will not be deduplicated", zap.Error(err))
		}
		deduper = events.NewRedisDeduper(rdb, constants.DedupeTTL)
	}

	consumer, err := events.NewAMQPConsumer(cfg.AMQPURL, handler, deduper, zlog)
	if err != nil {
		publisher.Close()
		return nil, nil, nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx); err != nil {
			zlog.Error("Event consumer stopped", zap.Error(err))
		}
	}()

	closeFn := func() {
		consumer.Close()
		<-done
		publisher.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	healthy := func() bool {
		return consumer.IsConnected()
	}
	return publisher, healthy, closeFn, nil
}
