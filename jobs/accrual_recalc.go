package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/abonbill/abonbill/internal/accrual"
	jobmetrics "github.com/abonbill/abonbill/internal/jobs"
)

// RecalcService is the slice of the accrual service the job needs.
type RecalcService interface {
	RecalcAbonent(ctx context.Context, abonentID int64) (accrual.Result, error)
	RecalcAll(ctx context.Context) ([]accrual.Result, error)
}

// AccrualRecalcJob processes accrual recalculation tasks.
type AccrualRecalcJob struct {
	service RecalcService
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAccrualRecalcJob constructs a job handler.
func NewAccrualRecalcJob(service RecalcService, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccrualRecalcJob {
	return &AccrualRecalcJob{service: service, logger: logger, metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract for a single account.
func (j *AccrualRecalcJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload AccrualRecalcPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.AbonentID <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track("accrual_recalc")
	result, err := j.service.RecalcAbonent(ctx, payload.AbonentID)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("accrual recalc", slog.Int64("abonent_id", payload.AbonentID), slog.Any("error", err))
		}
		return tracker.End(err)
	}
	changed := 0
	if result.Changed {
		changed = 1
	}
	j.metrics.AddRecalcs(1, changed)
	return tracker.End(nil)
}

// HandleAll fulfils the asynq.HandlerFunc contract for the full pass.
func (j *AccrualRecalcJob) HandleAll(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track("accrual_recalc_all")
	results, err := j.service.RecalcAll(ctx)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("accrual recalc all", slog.Any("error", err))
		}
		return tracker.End(err)
	}
	changed := 0
	skipped := 0
	for _, r := range results {
		if r.Changed {
			changed++
		}
		if r.Skipped {
			skipped++
		}
	}
	j.metrics.AddRecalcs(len(results), changed)
	if j.logger != nil {
		j.logger.Info("accrual recalc all done",
			slog.Int("accounts", len(results)),
			slog.Int("changed", changed),
			slog.Int("skipped", skipped))
	}
	return tracker.End(nil)
}
