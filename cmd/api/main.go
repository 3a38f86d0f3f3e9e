package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orbitrade/finance-backend/internal/config"
	"github.com/orbitrade/finance-backend/internal/fx"
	"github.com/orbitrade/finance-backend/internal/handler"
	"github.com/orbitrade/finance-backend/internal/logging"
	"github.com/orbitrade/finance-backend/internal/middleware"
	"github.com/orbitrade/finance-backend/internal/repository"
	"github.com/orbitrade/finance-backend/internal/service"
	"github.com/orbitrade/finance-backend/internal/service/allocation"
	"github.com/orbitrade/finance-backend/internal/service/balance"
	"github.com/orbitrade/finance-backend/internal/service/ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("finance-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	advisor, err := fx.Parse(cfg.AdvisoryRates)
	if err != nil {
		slog.Error("failed to parse advisory rates", "error", err)
		os.Exit(1)
	}

	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	counterpartRepo := repository.NewCounterpartRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	writer := allocation.NewWriter(invoiceRepo, paymentRepo, allocationRepo, activityRepo, outboxRepo, advisor, db)
	resolver := balance.NewResolver(invoiceRepo, allocationRepo)
	projector := ledger.NewProjector(invoiceRepo, paymentRepo, allocationRepo, counterpartRepo)

	paymentHandler := handler.NewPaymentHandler(writer)
	balanceHandler := handler.NewBalanceHandler(resolver)
	ledgerHandler := handler.NewLedgerHandler(projector)
	healthHandler := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	idempotent := middleware.Idempotency(idempotencyRepo)
	mux.Handle("POST /api/v1/payments", idempotent(http.HandlerFunc(paymentHandler.Create)))
	mux.Handle("POST /api/v1/payments/{id}/void", idempotent(http.HandlerFunc(paymentHandler.Void)))
	mux.HandleFunc("GET /api/v1/payments/{id}", paymentHandler.Get)
	mux.HandleFunc("GET /api/v1/{kind}/{id}/unpaid-invoices", balanceHandler.UnpaidInvoices)
	mux.HandleFunc("GET /api/v1/{kind}/{id}/ledger", ledgerHandler.Get)

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()

	notifyClient := service.NewNotifyClient(cfg.NotifyURL, time.Duration(cfg.NotifyTimeoutS)*time.Second)
	dispatcher := service.NewOutboxDispatcher(
		outboxRepo,
		notifyClient,
		slog.Default(),
		time.Duration(cfg.OutboxIntervalS)*time.Second,
		cfg.OutboxBatchSize,
		cfg.OutboxMaxAttempts,
	)
	go dispatcher.Start(dispatcherCtx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopDispatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, dbErr := repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if dbErr == nil {
			return db, nil
		}
		err = dbErr
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
