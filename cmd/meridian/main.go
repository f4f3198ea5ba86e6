package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-his/meridian-his/internal/app"
	"github.com/meridian-his/meridian-his/internal/closing"
	closinghttp "github.com/meridian-his/meridian-his/internal/closing/http"
	"github.com/meridian-his/meridian-his/internal/ledger/accounts"
	"github.com/meridian-his/meridian-his/internal/ledger/journals"
	"github.com/meridian-his/meridian-his/internal/ledger/reports"
	"github.com/meridian-his/meridian-his/internal/notify"
	"github.com/meridian-his/meridian-his/internal/platform/db"
	"github.com/meridian-his/meridian-his/internal/shared"
	"github.com/meridian-his/meridian-his/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{
		MaxConns:        cfg.PGMaxConns,
		MinConns:        cfg.PGMinConns,
		MaxConnLifetime: cfg.PGConnMaxLifetime,
		MaxConnIdleTime: cfg.PGConnMaxIdleTime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	notifier := notify.NewQueueNotifier(jobClient)

	audit := shared.NewAuditLogger(pool, logger)
	approvals := shared.NewApprovalRecorder(pool, logger)

	closingRepo := closing.NewRepository(pool)
	closingService := closing.NewService(closingRepo, audit, approvals, closing.Policy{
		RequireApproval:   cfg.ClosingRequireApproval,
		RequireSequential: cfg.ClosingRequireSequential,
	}, logger)
	closingService.WithNotifier(notifier)

	accountRepo := accounts.NewRepository(pool)
	accountService := accounts.NewService(accountRepo, audit)

	journalRepo := journals.NewRepository(pool)
	journalService := journals.NewService(journalRepo, audit, approvals, closingService, notifier, logger)
	journalService.WithNumberPad(cfg.JournalNumberPad)

	// Draft entries in a month block its closing.
	closingService.RegisterPendingSource(journals.NewPendingDrafts(journalRepo))

	reportRepo := reports.NewRepository(pool)
	reportService := reports.NewService(reportRepo, accountService)
	reportService.WithCache(reports.NewCache(redisClient, cfg.ReportCacheTTL))

	// Posting, unposting, and reversal all move report balances.
	journalService.WithBalanceInvalidator(reportService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accounts.NewHandler(logger, accountService),
		JournalsHandler: journals.NewHandler(logger, journalService),
		ReportsHandler:  reports.NewHandler(logger, reportService),
		ClosingHandler:  closinghttp.NewHandler(logger, closingService),
		JobHandler:      jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
