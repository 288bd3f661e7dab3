// cmd/gateway/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"notification-gateway/internal/api"
	"notification-gateway/internal/common/config"
	"notification-gateway/internal/common/database"
	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/common/observability"
	"notification-gateway/internal/hub"
	"notification-gateway/internal/push/dispatch"
	"notification-gateway/internal/push/registration"
	"notification-gateway/internal/push/service"
	"notification-gateway/internal/push/templates"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification gateway...",
		zap.String("environment", cfg.App.Environment),
		zap.String("hub", cfg.Hub.HubName),
		zap.String("registrationMode", cfg.Registration.Mode),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()
	var checks []api.ReadinessCheck

	// --- Redis (optional, per-device registration locks) ---
	var regOpts []registration.Option
	if cfg.Database.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")

		regOpts = append(regOpts, registration.WithLocker(database.NewRedisLocker(rdb.Client, "notification-gateway:register:")))
		checks = append(checks, rdb.Ping)
	}

	// --- Hub client and domain components ---
	hubClient, err := hub.NewNotificationHubClient(cfg.Hub, log, hub.WithObservability(obs))
	if err != nil {
		zapLog.Fatal("hub client init failed", zap.Error(err))
	}

	catalog, err := templates.NewCatalog(cfg.Templates)
	if err != nil {
		zapLog.Fatal("template catalog init failed", zap.Error(err))
	}

	manager := registration.NewManager(registration.LoadConfig(cfg.Registration), hubClient, catalog, log, regOpts...)
	dispatcher := dispatch.NewDispatcher(dispatch.LoadConfig(cfg.Notifications), hubClient, log, dispatch.WithObservability(obs))
	svc := service.New(service.Config{LookupLimit: cfg.Registration.LookupLimit}, dispatcher, manager, hubClient, log)

	handler := api.NewHandler(svc, log, api.WithReportSendFailures(cfg.Notifications.ReportSendFailures))

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(handler, checks...),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Metrics Server ---
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}

		go func() {
			zapLog.Info("Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error shutting down metrics server", zap.Error(err))
		}
	}

	zapLog.Info("Notification gateway stopped gracefully")
}
