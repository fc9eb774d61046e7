package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spacelproject/admin-spacel-sub001/internal/application/activity"
	"github.com/spacelproject/admin-spacel-sub001/internal/application/alert"
	"github.com/spacelproject/admin-spacel-sub001/internal/application/notification"
	"github.com/spacelproject/admin-spacel-sub001/internal/application/readstate"
	"github.com/spacelproject/admin-spacel-sub001/internal/config"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/infrastructure/dynamo"
	"github.com/spacelproject/admin-spacel-sub001/internal/infrastructure/filestore"
	jwtinfra "github.com/spacelproject/admin-spacel-sub001/internal/infrastructure/jwt"
	"github.com/spacelproject/admin-spacel-sub001/internal/infrastructure/postgres"
	"github.com/spacelproject/admin-spacel-sub001/internal/infrastructure/sns"
	"github.com/spacelproject/admin-spacel-sub001/internal/metrics"
	"github.com/spacelproject/admin-spacel-sub001/internal/pkg/validate"
	transporthttp "github.com/spacelproject/admin-spacel-sub001/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := newLogger(cfg.AppEnv)
	slog.SetDefault(logger)

	if err := validate.Struct(cfg.Feed); err != nil {
		log.Fatalf("invalid feed configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := activity.DefaultPolicy()
	if cfg.PolicyFile != "" {
		p, err := activity.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			log.Fatalf("load activity policy: %v", err)
		}
		policy = p
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Marketplace Postgres: source tables plus the LISTEN change feed.
	pg, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect marketplace database: %v", err)
	}
	defer pg.Close()
	sqlDB, err := pg.DB.DB()
	if err != nil {
		log.Fatalf("resolve sql handle: %v", err)
	}

	// Without a change feed every feed is pull-only; the service still works.
	var changes activity.ChangeFeed
	changeFeed, err := postgres.NewChangeFeed(cfg.DatabaseURL, cfg.ChangeChannel, logger)
	if err != nil {
		logger.Warn("change_feed_unavailable", "error", err)
	} else {
		defer changeFeed.Close()
		changes = changeFeed
	}

	// DynamoDB: stored admin notifications, the server tier of read state.
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamo client: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	notifSvc := notification.NewService(dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications))

	localStore, err := filestore.NewReadStateStore(cfg.ReadStateDir, logger)
	if err != nil {
		log.Fatalf("read state store: %v", err)
	}
	tracker := readstate.NewTracker(notifSvc, localStore, logger)

	sourceOpts := activity.SourceOptions{
		Querier:    postgres.NewQuerier(pg.DB, logger),
		Normalizer: activity.NewNormalizer(policy),
		Timeout:    cfg.Feed.FetchTimeout,
		Logger:     logger,
		Metrics:    m,
	}
	connectors := append(activity.Sources(sourceOpts), activity.NotificationSource(notifSvc, sourceOpts))

	hub := activity.NewHub(activity.HubOptions{
		Connectors: connectors,
		Tracker:    tracker,
		Changes:    changes,
		Settings: activity.Settings{
			InitialWindow:   cfg.Feed.InitialWindow,
			WindowIncrement: cfg.Feed.WindowIncrement,
			SourceLimit:     cfg.Feed.SourceLimit,
			LoadMoreDelay:   cfg.Feed.LoadMoreDelay,
			RefreshDebounce: cfg.Feed.RefreshDebounce,
			PassTimeout:     2 * cfg.Feed.FetchTimeout,
		},
		Logger:  logger,
		Metrics: m,
	})
	defer hub.Shutdown()

	// SMS alerts for urgent events (optional).
	if len(cfg.AlertPhoneNumbers) > 0 {
		sender, err := sns.NewSender(ctx, cfg)
		if err != nil {
			log.Printf("WARN: SNS sender not available: %v", err)
		} else {
			alerter := alert.New(sender, alert.Options{
				Recipients:  cfg.AlertPhoneNumbers,
				MinPriority: domain.ParsePriority(cfg.AlertMinPriority),
				Logger:      logger,
				Metrics:     m,
			})
			detach := alerter.Attach(hub.Updates())
			defer alerter.Wait()
			defer detach()
		}
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Activity:      hub,
		Notifications: notifSvc,
		Nudge:         hub.Nudge,
		Verifier:      jwtProvider,
		DB:            sqlDB,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /v1/activity/stream holds its connection open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
