// Package jobs wires background work onto asynq: nightly auto-accrual
// recalculation plus on-demand recalc of a single account.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAccrualRecalc recalculates auto-accruals for one account.
	TaskAccrualRecalc = "accrual:recalc"
	// TaskAccrualRecalcAll recalculates auto-accruals for every account.
	TaskAccrualRecalcAll = "accrual:recalc_all"
)

// AccrualRecalcPayload identifies the account to recalculate.
type AccrualRecalcPayload struct {
	AbonentID int64 `json:"abonent_id"`
}

// NewAccrualRecalcTask constructs a single-account recalc task.
func NewAccrualRecalcTask(abonentID int64) (*asynq.Task, error) {
	data, err := json.Marshal(AccrualRecalcPayload{AbonentID: abonentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccrualRecalc, data), nil
}

// NewAccrualRecalcAllTask constructs the full-pass recalc task.
func NewAccrualRecalcAllTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskAccrualRecalcAll, nil), nil
}
