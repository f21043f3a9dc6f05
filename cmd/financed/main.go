package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/config"
	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/events/kafka"
	"github.com/dimesagro/finance-sync-go/internal/handler"
	"github.com/dimesagro/finance-sync-go/internal/infra/cache"
	"github.com/dimesagro/finance-sync-go/internal/infra/erp"
	"github.com/dimesagro/finance-sync-go/internal/infra/observability"
	"github.com/dimesagro/finance-sync-go/internal/infra/resilience"
	"github.com/dimesagro/finance-sync-go/internal/infra/storage/memory"
	"github.com/dimesagro/finance-sync-go/internal/infra/storage/postgres"
	"github.com/dimesagro/finance-sync-go/internal/port"
	"github.com/dimesagro/finance-sync-go/internal/scheduler"
	"github.com/dimesagro/finance-sync-go/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("base_currency", cfg.BaseCurrency),
		zap.String("erp_api_url", cfg.ERPAPIURL),
		zap.Bool("auto_sync", cfg.AutoSync),
		zap.String("sync_schedule", cfg.SyncSchedule),
		zap.Int("sync_max_concurrency", cfg.SyncMaxConcurrency),
		zap.Duration("sync_record_timeout", cfg.SyncRecordTimeout),
		zap.Bool("use_postgres", cfg.UsePostgres),
		zap.Bool("use_kafka", cfg.UseKafka),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finance-sync")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var store port.LedgerStore
	if cfg.UsePostgres && cfg.PostgresDSN != "" {
		pgStore, err := postgres.Open(context.Background(), cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pgStore.Close()
		store = pgStore
		logger.Info("using PostgreSQL ledger store")
	} else {
		store = memory.NewStore()
		logger.Warn("using in-memory ledger store, data will not survive restarts")
	}

	// --- Remote ledger client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	cb := resilience.NewCircuitBreaker("erp")
	erpClient := erp.NewClient(httpClient, cfg.ERPAPIURL, cfg.ERPAPIKey, cb, resilienceCfg)

	// --- Events ---
	var publisher port.EventPublisher
	if cfg.UseKafka && len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("kafka sync events enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	// --- Services ---
	statusCache := cache.New[domain.RemoteStatus](cfg.StatusCacheTTL)
	syncSvc := service.NewSyncService(store, erpClient, publisher, statusCache,
		service.SyncOptions{
			MaxConcurrency: cfg.SyncMaxConcurrency,
			RecordTimeout:  cfg.SyncRecordTimeout,
		},
		metrics, logger)
	reportSvc := service.NewReportingService(store, metrics, logger)
	ledgerSvc := service.NewLedgerService(store, cfg.BaseCurrency, logger)

	// --- Scheduler ---
	sched := scheduler.New(logger)
	if cfg.AutoSync {
		job := scheduler.NewSyncJob(syncSvc, cfg.HTTPTimeout*10, logger)
		if err := sched.AddJob(cfg.SyncSchedule, job); err != nil {
			logger.Fatal("failed to register sync job", zap.Error(err))
		}
	}
	sched.Start()
	defer sched.Stop()

	// --- Router ---
	router := handler.NewRouter(syncSvc, reportSvc, ledgerSvc, store, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
