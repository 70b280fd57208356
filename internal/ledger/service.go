package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// Service answers trial-balance and consistency-check queries.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a ledger service. cache may be nil, in which case
// every query recomputes.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// TrialBalance aggregates the scoped ledger and flags imbalance.
func (s *Service) TrialBalance(ctx context.Context, q Query) (*TrialBalance, error) {
	if q.OrgID <= 0 {
		return nil, fmt.Errorf("%w: org id required", shared.ErrValidation)
	}
	return s.cache.TrialBalance(ctx, q, func(ctx context.Context) (*TrialBalance, error) {
		totals, err := s.repo.AccountTotals(ctx, q)
		if err != nil {
			return nil, err
		}
		tb := BuildTrialBalance(totals)
		if tb.Unbalanced {
			s.logger.Warn("trial balance unbalanced",
				"org_id", q.OrgID,
				"debit", tb.TotalDebit.String(),
				"credit", tb.TotalCredit.String())
		}
		return tb, nil
	})
}

// DailyChecks runs the extended consistency pass: per-entry imbalance
// plus negative asset balances.
func (s *Service) DailyChecks(ctx context.Context, orgID int64) (*DailyCheckReport, error) {
	if orgID <= 0 {
		return nil, fmt.Errorf("%w: org id required", shared.ErrValidation)
	}
	imbalances, err := s.repo.EntryImbalances(ctx, orgID)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.AccountTotals(ctx, Query{OrgID: orgID})
	if err != nil {
		return nil, err
	}
	tb := BuildTrialBalance(totals)

	report := &DailyCheckReport{
		OrgID:             orgID,
		RanAt:             s.now(),
		UnbalancedEntries: imbalances,
		NegativeAssets:    negativeAssets(tb.Accounts),
	}
	if !report.Clean() {
		s.logger.Warn("ledger daily checks found issues",
			"org_id", orgID,
			"unbalanced_entries", len(report.UnbalancedEntries),
			"negative_assets", len(report.NegativeAssets))
	}
	return report, nil
}

// Invalidate drops the org's cached trial balances after ledger writes.
func (s *Service) Invalidate(ctx context.Context, orgID int64) error {
	return s.cache.Invalidate(ctx, orgID)
}
