package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"zyberfy/internal/analytics"
	"zyberfy/internal/cache"
	"zyberfy/internal/config"
	"zyberfy/internal/httpserver"
	"zyberfy/internal/llm"
	"zyberfy/internal/logging"
	"zyberfy/internal/metrics"
	"zyberfy/internal/notify"
	"zyberfy/internal/offer"
	"zyberfy/internal/proposal"
	"zyberfy/internal/repo"
	"zyberfy/internal/settings"
	"zyberfy/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting zyberfy", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	var store repo.Store
	if cfg.DatabaseURL != "" {
		store, err = repo.NewPostgres(ctx, cfg.DatabaseURL, logger)
	} else {
		store, err = repo.NewSQLite(ctx, cfg.DatabasePath, logger)
	}
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", "error", err)
		}
	}

	events := analytics.NewLogger(analytics.NewStoreSink(store), logger, metricRegistry)
	settingsSvc := settings.New(store, redisClient, logger)

	generator := llm.New(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.UpstreamTimeout,
	}, logger, metricRegistry)

	notifier := notify.New(
		notify.NewSendGrid(notify.SendGridConfig{
			APIKey:      cfg.SendGridAPIKey,
			SenderEmail: cfg.SenderEmail,
			Timeout:     cfg.UpstreamTimeout,
		}, logger),
		notify.NewTwilio(notify.TwilioConfig{
			AccountSID:  cfg.TwilioAccountSID,
			AuthToken:   cfg.TwilioAuthToken,
			PhoneNumber: cfg.TwilioPhoneNumber,
			Timeout:     cfg.UpstreamTimeout,
		}, logger),
		notify.NewOneSignal(notify.OneSignalConfig{
			AppID:      cfg.OneSignalAppID,
			RESTAPIKey: cfg.OneSignalRESTAPIKey,
			Timeout:    cfg.UpstreamTimeout,
		}, logger),
		events, metricRegistry, logger, strings.TrimRight(cfg.PublicBaseURL, "/"),
	)

	proposalSvc := proposal.New(store, settingsSvc, generator, notifier, events, metricRegistry, logger)
	offerSvc := offer.New(store, settingsSvc, events, metricRegistry, logger)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go proposalSvc.Run(workerCtx)

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Dependencies{
		Proposals: proposalSvc,
		Offers:    offerSvc,
		Settings:  settingsSvc,
		Events:    events,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}
