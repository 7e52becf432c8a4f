package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/abonbill/abonbill/internal/accrual"
)

type fakeRecalcService struct {
	recalced []int64
	results  []accrual.Result
	err      error
}

func (f *fakeRecalcService) RecalcAbonent(_ context.Context, abonentID int64) (accrual.Result, error) {
	f.recalced = append(f.recalced, abonentID)
	if f.err != nil {
		return accrual.Result{}, f.err
	}
	return accrual.Result{AbonentID: abonentID, Changed: true}, nil
}

func (f *fakeRecalcService) RecalcAll(_ context.Context) ([]accrual.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAccrualRecalcHandle(t *testing.T) {
	svc := &fakeRecalcService{}
	job := NewAccrualRecalcJob(svc, testLogger(), nil)

	task, err := NewAccrualRecalcTask(7)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{7}, svc.recalced)
}

func TestAccrualRecalcHandleBadPayload(t *testing.T) {
	svc := &fakeRecalcService{}
	job := NewAccrualRecalcJob(svc, testLogger(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskAccrualRecalc, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, svc.recalced)

	err = job.Handle(context.Background(), asynq.NewTask(TaskAccrualRecalc, []byte(`{"abonent_id":0}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAccrualRecalcHandlePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	job := NewAccrualRecalcJob(&fakeRecalcService{err: boom}, testLogger(), nil)

	task, err := NewAccrualRecalcTask(7)
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestAccrualRecalcHandleAll(t *testing.T) {
	svc := &fakeRecalcService{results: []accrual.Result{
		{AbonentID: 1, Changed: true},
		{AbonentID: 2},
		{AbonentID: 3, Skipped: true},
	}}
	job := NewAccrualRecalcJob(svc, testLogger(), nil)

	task, err := NewAccrualRecalcAllTask()
	require.NoError(t, err)
	require.NoError(t, job.HandleAll(context.Background(), task))
}
