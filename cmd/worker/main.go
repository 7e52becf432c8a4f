package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/accrual"
	"github.com/abonbill/abonbill/internal/app"
	jobmetrics "github.com/abonbill/abonbill/internal/jobs"
	"github.com/abonbill/abonbill/internal/ledger"
	"github.com/abonbill/abonbill/internal/platform/db"
	"github.com/abonbill/abonbill/internal/refdata"
	"github.com/abonbill/abonbill/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	abonentService := abonent.NewService(logger, abonent.NewRepository(pool))
	refdataService := refdata.NewService(logger, refdata.NewRepository(pool))
	ledgerService := ledger.NewService(ledger.NewRepository(pool))
	accrualService := accrual.NewService(logger, abonentService, refdataService, ledgerService)

	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)
	recalcJob := jobs.NewAccrualRecalcJob(accrualService, logger, metrics)

	recalcAllTask, err := jobs.NewAccrualRecalcAllTask()
	if err != nil {
		logger.Error("build cron task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAccrualRecalc, Handler: recalcJob.Handle},
			{Type: jobs.TaskAccrualRecalcAll, Handler: recalcJob.HandleAll},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RecalcCron, Task: recalcAllTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker",
		slog.String("redis", cfg.RedisAddr),
		slog.String("recalc_cron", cfg.RecalcCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker", slog.Any("error", err))
		os.Exit(1)
	}
}
