package main

import (
	"context"
	"fmt"
	"log/slog"
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

	"github.com/hibiken/asynq"
)

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

	slog.Info("worker configuration loaded")

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Channel registry
	registry, closeChannels, err := buildRegistry(cfg)
	if err != nil {
		slog.Error("failed to build channel registry", "error", err)
		os.Exit(1)
	}
	defer closeChannels()
	slog.Info("channel registry initialized", "channels", registry.Names())

	// Recipient Rate Limiter
	recipientLimiter := ratelimit.NewRedisRecipientLimiter(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.RecipientRateLimit.MaxPerHour,
	)
	defer recipientLimiter.Close()

	// Template Engine
	tmplEngine, err := template.NewEngine()
	if err != nil {
		slog.Error("failed to initialize template engine", "error", err)
		os.Exit(1)
	}

	// Service (the worker never re-enqueues, so no Enqueuer)
	dispatchService := dispatch.NewService(registry, nil, recipientLimiter, tmplEngine)

	// Dispatch Worker
	dispatchWorker := dispatch.NewWorker(dispatchService)

	// ==========================================
	// Asynq Server (job processing)
	// ==========================================

	asynqServer := queue.NewServer(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Queue.Concurrency,
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(dispatch.TaskTypeDispatch, func(ctx context.Context, task *asynq.Task) error {
		payload, err := dispatch.ParseDispatchPayload(task.Payload())
		if err != nil {
			return err
		}
		return dispatchWorker.ProcessTask(ctx, payload)
	})

	// Start the asynq worker in a goroutine
	go func() {
		slog.Info("worker starting",
			"concurrency", cfg.Queue.Concurrency,
			"redis", cfg.Redis.Address,
		)
		if err := asynqServer.Run(mux); err != nil {
			slog.Error("worker failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	asynqServer.Shutdown()
	slog.Info("worker exited gracefully")
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
