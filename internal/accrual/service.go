package accrual

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/ledger"
	"github.com/abonbill/abonbill/internal/refdata"
)

// RegistryPort is what the engine needs from the account registry.
type RegistryPort interface {
	GetAbonent(ctx context.Context, id int64) (abonent.Abonent, error)
	ListAbonentIDs(ctx context.Context) ([]int64, error)
	ResponsibilityRange(ctx context.Context, id int64) (*calc.Range, error)
	PremiseHistory(ctx context.Context, id int64) (abonent.Premise, []abonent.OwnershipLink, error)
}

// RefdataPort is what the engine needs from reference data.
type RefdataPort interface {
	TariffSchedule(ctx context.Context) ([]refdata.Tariff, bool, error)
	FixedCharges(ctx context.Context) ([]refdata.FixedCharge, error)
}

// LedgerPort is what the engine needs from the ledger.
type LedgerPort interface {
	ListRows(ctx context.Context, abonentID int64) ([]ledger.Row, error)
	ApplyAccruals(ctx context.Context, updates []ledger.Row, appends []ledger.RowInput) error
}

// Result summarises one account's recalculation.
type Result struct {
	AbonentID int64  `json:"abonent_id"`
	Changed   bool   `json:"changed"`
	Months    int    `json:"months"`
	Skipped   bool   `json:"skipped,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Service runs the auto-accrual engine over accounts.
type Service struct {
	logger   *slog.Logger
	registry RegistryPort
	refdata  RefdataPort
	ledger   LedgerPort
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, registry RegistryPort, ref RefdataPort, led LedgerPort) *Service {
	return &Service{logger: logger, registry: registry, refdata: ref, ledger: led}
}

// RecalcAbonent recomputes and writes the account's monthly accruals.
// Accounts without a responsibility range are skipped, not failed.
func (s *Service) RecalcAbonent(ctx context.Context, abonentID int64) (Result, error) {
	result := Result{AbonentID: abonentID}

	a, err := s.registry.GetAbonent(ctx, abonentID)
	if err != nil {
		return result, err
	}
	rng, err := s.registry.ResponsibilityRange(ctx, abonentID)
	if err != nil {
		return result, err
	}
	if rng == nil {
		result.Skipped = true
		result.Reason = "no responsibility range"
		return result, nil
	}
	months := calc.MonthKeys(rng.From, rng.To)
	if len(months) == 0 {
		result.Skipped = true
		result.Reason = "empty month range"
		return result, nil
	}
	result.Months = len(months)

	tariffs, usedFallback, err := s.refdata.TariffSchedule(ctx)
	if err != nil {
		return result, err
	}
	if usedFallback {
		s.logger.Warn("accrual uses default tariff schedule", slog.Int64("abonent_id", abonentID))
	}
	charges, err := s.refdata.FixedCharges(ctx)
	if err != nil {
		return result, err
	}

	premise, history, err := s.registry.PremiseHistory(ctx, abonentID)
	if err != nil {
		return result, err
	}
	square := a.Square
	if square.Sign() <= 0 {
		square = premise.Square
	}

	amounts := make(map[string]decimal.Decimal, len(months))
	for _, key := range months {
		year, month, ok := calc.SplitMonthKey(key)
		if !ok {
			continue
		}
		amounts[key] = s.monthAmount(abonentID, year, month, square, tariffs, charges, history)
	}

	rows, err := s.ledger.ListRows(ctx, abonentID)
	if err != nil {
		return result, err
	}
	plan := BuildPlan(abonentID, rows, months, amounts)
	if plan.Empty() {
		return result, nil
	}
	if err := s.ledger.ApplyAccruals(ctx, plan.Updates, plan.Appends); err != nil {
		return result, err
	}
	result.Changed = true
	s.logger.Info("accruals recalculated",
		slog.Int64("abonent_id", abonentID),
		slog.Int("months", len(months)),
		slog.Int("updated", len(plan.Updates)),
		slog.Int("appended", len(plan.Appends)))
	return result, nil
}

// monthAmount computes the account's share of one month's charge. With
// no ownership history the whole charge belongs to the account.
func (s *Service) monthAmount(abonentID int64, year int, month time.Month, square decimal.Decimal, tariffs []refdata.Tariff, charges []refdata.FixedCharge, history []abonent.OwnershipLink) decimal.Decimal {
	total := MonthCharge(year, month, square, tariffs, charges)
	if total.Sign() <= 0 || len(history) == 0 {
		return total
	}
	own := decimal.Zero
	for _, share := range SplitByOwnership(total, year, month, history) {
		if share.AbonentID == abonentID {
			own = calc.Round2(own.Add(share.Amount))
		}
	}
	return own
}

// RecalcAll recomputes every account, continuing past per-account errors.
func (s *Service) RecalcAll(ctx context.Context) ([]Result, error) {
	ids, err := s.registry.ListAbonentIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		result, err := s.RecalcAbonent(ctx, id)
		if err != nil {
			s.logger.Error("recalc abonent", slog.Any("error", err), slog.Int64("abonent_id", id))
			result.Skipped = true
			result.Reason = err.Error()
		}
		out = append(out, result)
	}
	return out, nil
}
