package refdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abonbill/abonbill/internal/calc"
)

// defaultTariffs is the conservative fallback used when no schedule is
// stored, so dependent screens don't show a silent zero accrual. It is
// returned with a warning and never written back.
var defaultTariffs = []Tariff{
	{From: calc.Day(2023, time.January, 1), Content: decimal.NewFromInt(35), Repair: decimal.NewFromInt(10)},
	{From: calc.Day(2024, time.January, 1), Content: decimal.RequireFromString("38.5"), Repair: decimal.NewFromInt(12)},
}

// RepositoryPort defines data access methods for reference data.
type RepositoryPort interface {
	ListRates(ctx context.Context, kind RateKind) ([]RefinancingRate, error)
	CreateRate(ctx context.Context, rate RefinancingRate) (int64, error)
	DeleteRate(ctx context.Context, id int64) error
	ListExclusions(ctx context.Context, abonentID int64) ([]ExcludedPeriod, error)
	CreateExclusion(ctx context.Context, p ExcludedPeriod) (int64, error)
	DeleteExclusion(ctx context.Context, id int64) error
	ListTariffs(ctx context.Context) ([]Tariff, error)
	CreateTariff(ctx context.Context, t Tariff) (int64, error)
	DeleteTariff(ctx context.Context, id int64) error
	ListFixedCharges(ctx context.Context) ([]FixedCharge, error)
	CreateFixedCharge(ctx context.Context, c FixedCharge) (int64, error)
	DeleteFixedCharge(ctx context.Context, id int64) error
}

// Service selects and shapes reference data for the calculation core.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo}
}

// RatesFor returns the rate timeline in calculation form, selected by
// the account's moratorium flag.
func (s *Service) RatesFor(ctx context.Context, moratorium bool) ([]calc.Rate, error) {
	kind := RateNormal
	if moratorium {
		kind = RateMoratorium
	}
	rates, err := s.repo.ListRates(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]calc.Rate, 0, len(rates))
	for _, r := range rates {
		out = append(out, calc.Rate{From: r.From, Rate: r.Rate})
	}
	return out, nil
}

// Exclusions returns the account's excluded periods in calculation form.
func (s *Service) Exclusions(ctx context.Context, abonentID int64) ([]calc.Period, error) {
	periods, err := s.repo.ListExclusions(ctx, abonentID)
	if err != nil {
		return nil, err
	}
	out := make([]calc.Period, 0, len(periods))
	for _, p := range periods {
		out = append(out, calc.Period{From: p.From, To: p.To})
	}
	return out, nil
}

// TariffSchedule returns the stored tariff schedule. When none exists it
// returns the conservative defaults and reports that through the second
// return value; the fallback is logged, never persisted.
func (s *Service) TariffSchedule(ctx context.Context) ([]Tariff, bool, error) {
	tariffs, err := s.repo.ListTariffs(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(tariffs) > 0 {
		return tariffs, false, nil
	}
	s.logger.Warn("no tariff schedule stored, using conservative defaults")
	return defaultTariffs, true, nil
}

// FixedCharges returns the active fixed monthly add-ons.
func (s *Service) FixedCharges(ctx context.Context) ([]FixedCharge, error) {
	charges, err := s.repo.ListFixedCharges(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FixedCharge, 0, len(charges))
	for _, c := range charges {
		if c.Active && len(c.Rates) > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListRates exposes one raw timeline for the CRUD surface.
func (s *Service) ListRates(ctx context.Context, kind RateKind) ([]RefinancingRate, error) {
	return s.repo.ListRates(ctx, kind)
}

// AddRate appends a timeline point.
func (s *Service) AddRate(ctx context.Context, rate RefinancingRate) (int64, error) {
	return s.repo.CreateRate(ctx, rate)
}

// RemoveRate deletes a timeline point.
func (s *Service) RemoveRate(ctx context.Context, id int64) error {
	return s.repo.DeleteRate(ctx, id)
}

// ListExclusions exposes raw excluded periods for the CRUD surface.
func (s *Service) ListExclusions(ctx context.Context, abonentID int64) ([]ExcludedPeriod, error) {
	return s.repo.ListExclusions(ctx, abonentID)
}

// AddExclusion adds an excluded period.
func (s *Service) AddExclusion(ctx context.Context, p ExcludedPeriod) (int64, error) {
	return s.repo.CreateExclusion(ctx, p)
}

// RemoveExclusion deletes an excluded period.
func (s *Service) RemoveExclusion(ctx context.Context, id int64) error {
	return s.repo.DeleteExclusion(ctx, id)
}

// AddTariff appends a schedule point.
func (s *Service) AddTariff(ctx context.Context, t Tariff) (int64, error) {
	return s.repo.CreateTariff(ctx, t)
}

// RemoveTariff deletes a schedule point.
func (s *Service) RemoveTariff(ctx context.Context, id int64) error {
	return s.repo.DeleteTariff(ctx, id)
}

// AddFixedCharge inserts an add-on with its rates.
func (s *Service) AddFixedCharge(ctx context.Context, c FixedCharge) (int64, error) {
	return s.repo.CreateFixedCharge(ctx, c)
}

// RemoveFixedCharge deletes an add-on and its rate timeline.
func (s *Service) RemoveFixedCharge(ctx context.Context, id int64) error {
	return s.repo.DeleteFixedCharge(ctx, id)
}
