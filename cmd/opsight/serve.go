package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/savegress/opsight/internal/analytics"
	"github.com/savegress/opsight/internal/api"
	"github.com/savegress/opsight/internal/cache"
	"github.com/savegress/opsight/internal/config"
	"github.com/savegress/opsight/internal/ingest"
	"github.com/savegress/opsight/internal/observability"
	"github.com/savegress/opsight/internal/store"
	"github.com/savegress/opsight/pkg/workerpool"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the optional job-log consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, logger, migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply schema migrations before serving")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger, migrateFirst bool) error {
	logger.Info("Starting OpSight - Manufacturing Analytics",
		zap.String("environment", cfg.Server.Environment),
		zap.String("store", cfg.Store.Driver))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Env:         cfg.Server.Environment,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	observability.Register()

	if migrateFirst {
		target, err := migrationTarget(cfg)
		if err != nil {
			return err
		}
		if _, err := store.Migrate(cfg.Store.Driver, target, logger); err != nil {
			return err
		}
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("Store connected")

	rc, err := cache.New(ctx, &cache.Config{
		Host:      cfg.Redis.Host,
		Port:      cfg.Redis.Port,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       cfg.Redis.TTL,
		Enabled:   cfg.Redis.Enabled,
	})
	if err != nil {
		return err
	}
	defer rc.Close()
	if rc.IsEnabled() {
		logger.Info("Report cache enabled", zap.String("prefix", cfg.Redis.KeyPrefix))
	}

	pool, err := workerpool.NewWorkerPool(workerpool.Config{
		Workers:         cfg.Workers.Count,
		QueueSize:       cfg.Workers.QueueSize,
		ShutdownTimeout: cfg.Workers.ShutdownTimeout,
		ErrorHandler: func(err error) {
			logger.Warn("worker task failed", zap.Error(err))
		},
	})
	if err != nil {
		return err
	}
	defer pool.Stop()

	svc, err := analytics.NewService(st, cfg.Analytics, analytics.Options{
		Cache:  rc,
		Pool:   pool,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	svc.Start()
	defer svc.Stop()

	checks := map[string]api.HealthCheck{"cache": rc.Ping}

	if cfg.Kafka.Enabled {
		consumer, err := startConsumer(ctx, cfg, st, svc, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				logger.Warn("consumer shutdown error", zap.Error(err))
			}
		}()
		checks["ingest"] = func(context.Context) error {
			if !consumer.Health() {
				return errors.New("consumer has no reader")
			}
			return nil
		}
	}

	server := api.NewServer(svc, api.Options{
		JWTSecret: cfg.Auth.JWTSecret,
		Logger:    logger,
		Checks:    checks,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down...")
	case err := <-errCh:
		logger.Error("HTTP server error", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown error", zap.Error(err))
	}

	logger.Info("OpSight stopped")
	return nil
}

// startConsumer wires the job-log topic into the store, dead-lettering
// invalid events when a dead letter topic is configured
func startConsumer(ctx context.Context, cfg *config.Config, sink store.RecordWriter, svc *analytics.Service, logger *zap.Logger) (*ingest.Consumer, error) {
	reader, err := ingest.NewReader(ingest.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		ConsumerGroup: cfg.Kafka.GroupID,
	})
	if err != nil {
		return nil, err
	}

	var dlq *ingest.Publisher
	if cfg.Kafka.DeadLetterTopic != "" {
		dlq, err = ingest.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic)
		if err != nil {
			reader.Close()
			return nil, err
		}
	}

	consumer := ingest.NewConsumer(reader, sink, dlq, svc, logger)
	if err := consumer.Start(ctx); err != nil {
		consumer.Stop()
		return nil, err
	}
	logger.Info("Job-log consumer started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic))
	return consumer, nil
}
