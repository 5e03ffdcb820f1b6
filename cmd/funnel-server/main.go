// cmd/funnel-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"funnel-orders/internal/common/analytics"
	"funnel-orders/internal/common/aws"
	"funnel-orders/internal/common/config"
	"funnel-orders/internal/common/database"
	"funnel-orders/internal/common/logger"
	"funnel-orders/internal/common/mailer"
	"funnel-orders/internal/common/observability"
	"funnel-orders/internal/common/sticky"
	"funnel-orders/internal/funnel"
	"funnel-orders/internal/funnel/handler"
	"funnel-orders/internal/orders/catalog"
	"funnel-orders/internal/orders/request"
	"funnel-orders/internal/orders/submit"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting funnel server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("funnel-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Payment Provider Client ---
	// Without credentials the coordinator runs in simulated mode and never
	// reaches the provider.
	simulated := !cfg.Sticky.Configured()
	var provider submit.ProviderClient
	if simulated {
		zapLog.Warn("Payment provider credentials missing, running in simulated mode")
	} else {
		provider = sticky.NewClient(
			cfg.Sticky.BaseURL,
			cfg.Sticky.Username,
			cfg.Sticky.Password,
			config.GetDuration(cfg.Sticky.Timeout),
		)
		zapLog.Info("Payment provider client initialized",
			zap.String("baseUrl", cfg.Sticky.BaseURL),
			zap.Bool("testMode", cfg.Sticky.TestMode),
		)
	}

	// --- Init Analytics Tracker ---
	var tracker analytics.Tracker = analytics.Noop{}
	switch cfg.Analytics.Backend {
	case "rudder":
		tracker = analytics.NewRudderTracker(
			cfg.Analytics.Rudder.DataPlaneURL,
			cfg.Analytics.Rudder.WriteKey,
			config.GetDuration(cfg.Analytics.Rudder.Timeout),
		)
		zapLog.Info("RudderStack tracker initialized")
	case "sns":
		snsClient, err := aws.NewSNSClient(ctx, cfg.Analytics.SNS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		tracker = analytics.NewSNSPublisher(snsClient, cfg.Analytics.SNS.TopicARN)
		zapLog.Info("SNS tracker initialized", zap.String("topicArn", cfg.Analytics.SNS.TopicARN))
	default:
		zapLog.Info("Analytics disabled, events will be dropped")
	}

	// --- Init Confirmation Mailer ---
	var mail mailer.Mailer = mailer.Noop{}
	if cfg.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Email.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		mail = mailer.NewSESMailer(sesClient, cfg.Email.FromEmail)
		zapLog.Info("SES mailer initialized", zap.String("from", cfg.Email.FromEmail))
	}

	// --- Init Product Catalog ---
	cat := catalog.Default()
	if cfg.Funnel.CatalogPath != "" {
		cat, err = catalog.Load(cfg.Funnel.CatalogPath)
		if err != nil {
			zapLog.Fatal("catalog load failed", zap.Error(err))
		}
		zapLog.Info("Catalog loaded", zap.String("path", cfg.Funnel.CatalogPath))
	}

	// --- Wire Order Coordinator and Funnel Service ---
	builder := request.NewBuilder(cat, cfg.Sticky.CampaignID, cfg.Sticky.ShippingID, cfg.Sticky.TestMode)
	coordinator := submit.NewCoordinator(submit.Dependencies{
		Logger:   log,
		Provider: provider,
		Builder:  builder,
		Tracker:  tracker,
		Mailer:   mail,
		InFlight: submit.NewInFlightRegistry(),
	}, simulated)

	store := funnel.NewSessionStore(redis, config.GetDuration(cfg.Funnel.SessionTTL))
	service := funnel.NewService(store, coordinator, log, obs)

	// --- HTTP Server ---
	mux := http.NewServeMux()
	handler.New(service, log).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

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

	zapLog.Info("Funnel server stopped gracefully")
}
