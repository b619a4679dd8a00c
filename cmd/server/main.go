package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pushfan/internal/config"
	"pushfan/internal/domain/dispatch"
	"pushfan/internal/infra/fcm"
	"pushfan/internal/infra/queue"
	"pushfan/internal/infra/ratelimit"
	"pushfan/internal/infra/template"
	"pushfan/internal/infra/webpush"
	"pushfan/internal/router"

	"github.com/hibiken/asynq"
)

// queueEnqueuer adapts the asynq client to the dispatch.Enqueuer interface.
type queueEnqueuer struct {
	client   *asynq.Client
	maxRetry int
}

func (q *queueEnqueuer) EnqueueDispatch(jobID string, req *dispatch.DispatchRequest) error {
	return queue.EnqueueDispatch(q.client, jobID, req, q.maxRetry)
}

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded", "port", cfg.Server.Port, "mode", cfg.Server.Mode)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Channel registry: one adapter per enabled transport, each owning its
	// own rate limiter.
	registry, closeChannels, err := buildRegistry(cfg)
	if err != nil {
		slog.Error("failed to build channel registry", "error", err)
		os.Exit(1)
	}
	defer closeChannels()
	slog.Info("channel registry initialized", "channels", registry.Names())

	// Asynq Client (for enqueuing jobs)
	asynqClient := queue.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer asynqClient.Close()
	slog.Info("asynq client initialized", "redis", cfg.Redis.Address)

	// Recipient Rate Limiter
	recipientLimiter := ratelimit.NewRedisRecipientLimiter(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.RecipientRateLimit.MaxPerHour,
	)
	defer recipientLimiter.Close()
	slog.Info("recipient rate limiter initialized", "max_per_hour", cfg.RecipientRateLimit.MaxPerHour)

	// Template Engine
	tmplEngine, err := template.NewEngine()
	if err != nil {
		slog.Error("failed to initialize template engine", "error", err)
		os.Exit(1)
	}

	// Enqueuer adapter
	enqueuer := &queueEnqueuer{
		client:   asynqClient,
		maxRetry: cfg.Queue.MaxRetry,
	}

	// Service
	dispatchService := dispatch.NewService(registry, enqueuer, recipientLimiter, tmplEngine)

	// Handler
	dispatchHandler := dispatch.NewHandler(dispatchService)

	// Router
	r := router.New(cfg, dispatchHandler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// buildRegistry constructs the enabled channel adapters and registers them.
// The returned closer stops every adapter's rate limiter.
func buildRegistry(cfg *config.Config) (*dispatch.Registry, func(), error) {
	registry := dispatch.NewRegistry()
	var closers []func()

	if cfg.FCM.Enabled {
		ch, err := dispatch.NewBatchChannel(fcm.NewClient(cfg.FCM.ServerKey), dispatch.BatchConfig{
			ChunkSize:    cfg.FCM.ChunkSize,
			MaxPerSecond: cfg.FCM.MaxPerSecond,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("building fcm channel: %w", err)
		}
		registry.Register("fcm", ch)
		closers = append(closers, ch.Close)
	}

	if cfg.WebPush.Enabled {
		client := webpush.NewClient(
			cfg.WebPush.VAPIDPublicKey,
			cfg.WebPush.VAPIDPrivateKey,
			cfg.WebPush.Subscriber,
			time.Duration(cfg.WebPush.DefaultTTLSec)*time.Second,
		)
		ch, err := dispatch.NewBoundedChannel(client, dispatch.BoundedConfig{
			MaxPerSecond:       cfg.WebPush.MaxPerSecond,
			MaxConcurrentSends: cfg.WebPush.MaxConcurrentSends,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("building webpush channel: %w", err)
		}
		registry.Register("webpush", ch)
		closers = append(closers, ch.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return registry, closeAll, nil
}
