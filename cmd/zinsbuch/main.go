package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/zinsbuch/zinsbuch/internal/app"
	"github.com/zinsbuch/zinsbuch/internal/billing"
	"github.com/zinsbuch/zinsbuch/internal/ledger"
	"github.com/zinsbuch/zinsbuch/internal/observability"
	"github.com/zinsbuch/zinsbuch/internal/payments"
	"github.com/zinsbuch/zinsbuch/internal/platform/cache"
	"github.com/zinsbuch/zinsbuch/internal/platform/db"
	"github.com/zinsbuch/zinsbuch/internal/settlement"
	"github.com/zinsbuch/zinsbuch/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	rules := billing.DefaultRules()
	rules.DueDay = cfg.BillingDueDay
	rules.LineBatchSize = cfg.BillingLineBatchSize
	rules.MaxStepsFactor = cfg.BillingMaxStepsFactor
	rules.DryRunWorkers = cfg.BillingDryRunWorkers

	billingRepo := billing.NewRepository(dbpool)
	billingService := billing.NewService(billingRepo, rules, metrics, logger)
	billingHandler := billing.NewHandler(logger, billingService)

	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(paymentsRepo, metrics, logger)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	settlementRepo := settlement.NewRepository(dbpool)
	settlementService := settlement.NewService(settlementRepo, logger)
	settlementHandler := settlement.NewHandler(logger, settlementService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerCache := ledger.NewCache(redisClient, cfg.LedgerCacheTTL)
	ledgerService := ledger.NewService(ledgerRepo, ledgerCache, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	billingService.SetCacheInvalidator(ledgerService)
	paymentsService.SetCacheInvalidator(ledgerService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		BillingHandler:    billingHandler,
		PaymentsHandler:   paymentsHandler,
		SettlementHandler: settlementHandler,
		LedgerHandler:     ledgerHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
