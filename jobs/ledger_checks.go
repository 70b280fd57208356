package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/zinsbuch/zinsbuch/internal/jobs"
	"github.com/zinsbuch/zinsbuch/internal/ledger"
)

// LedgerChecker runs the ledger daily checks for one organization per task.
type LedgerChecker struct {
	service *ledger.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLedgerChecker constructs the task handler. metrics may be nil.
func NewLedgerChecker(service *ledger.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerChecker {
	return &LedgerChecker{service: service, logger: logger, metrics: metrics}
}

// Handle processes TaskLedgerDailyChecks tasks. A malformed payload is
// dropped instead of retried; check findings are logged, not errors.
func (c *LedgerChecker) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LedgerChecksPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OrgID <= 0 {
		return asynq.SkipRetry
	}

	tracker := c.metrics.Track("ledger_daily_checks")
	report, err := c.service.DailyChecks(ctx, payload.OrgID)
	if err != nil {
		return tracker.End(err)
	}
	c.metrics.AddFindings("unbalanced_entry", payload.OrgID, len(report.UnbalancedEntries))
	c.metrics.AddFindings("negative_asset", payload.OrgID, len(report.NegativeAssets))

	if report.Clean() {
		c.logger.Info("ledger daily checks clean", "org_id", payload.OrgID)
	} else {
		c.logger.Warn("ledger daily checks reported issues",
			"org_id", payload.OrgID,
			"unbalanced_entries", len(report.UnbalancedEntries),
			"negative_assets", len(report.NegativeAssets))
	}
	return tracker.End(nil)
}
