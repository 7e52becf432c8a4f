package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/abonbill/abonbill/cmd/abonbill/cli"
	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/accrual"
	"github.com/abonbill/abonbill/internal/app"
	"github.com/abonbill/abonbill/internal/debt"
	"github.com/abonbill/abonbill/internal/ledger"
	"github.com/abonbill/abonbill/internal/observability"
	"github.com/abonbill/abonbill/internal/platform/cache"
	"github.com/abonbill/abonbill/internal/platform/db"
	"github.com/abonbill/abonbill/internal/refdata"
	"github.com/abonbill/abonbill/internal/report"
	"github.com/abonbill/abonbill/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	abonentRepo := abonent.NewRepository(pool)
	abonentService := abonent.NewService(logger, abonentRepo)

	refdataRepo := refdata.NewRepository(pool)
	refdataService := refdata.NewService(logger, refdataRepo)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo)

	debtService := debt.NewService(abonentService, refdataService, ledgerService)
	accrualService := accrual.NewService(logger, abonentService, refdataService, ledgerService)

	requisitesRepo := report.NewRequisitesRepository(pool)
	requisitesService := report.NewRequisitesService(requisitesRepo)
	certBuilder := report.NewBuilder(debtService, abonentService, requisitesService)

	// Operator subcommands run synchronously and exit.
	if len(os.Args) > 1 {
		if err := cli.Run(ctx, os.Args[1:], cli.Deps{
			Logger:    logger,
			Debt:      debtService,
			Accrual:   accrualService,
			RedisAddr: cfg.RedisAddr,
			Out:       os.Stdout,
		}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	rdb, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	abonentHandler := abonent.NewHandler(logger, abonentService)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)
	refdataHandler := refdata.NewHandler(logger, refdataService)
	debtHandler := debt.NewHandler(logger, debtService)
	reportHandler := report.NewHandler(logger, certBuilder, requisitesService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AbonentHandler: abonentHandler,
		LedgerHandler:  ledgerHandler,
		RefdataHandler: refdataHandler,
		DebtHandler:    debtHandler,
		ReportHandler:  reportHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
