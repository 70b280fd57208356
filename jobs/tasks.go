package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerDailyChecks runs the nightly ledger consistency pass.
	TaskLedgerDailyChecks = "ledger:daily_checks"
)

// LedgerChecksPayload scopes a ledger check run to one organization.
type LedgerChecksPayload struct {
	OrgID int64 `json:"org_id"`
}

// NewLedgerChecksTask constructs an Asynq task.
func NewLedgerChecksTask(payload LedgerChecksPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerDailyChecks, data), nil
}
