package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/platform/httpx"
)

// ErrLocked is returned when a mutation targets an imported row.
var ErrLocked = fmt.Errorf("ledger: row is locked: %w", httpx.ErrLocked)

// RepositoryPort defines data access methods for ledger rows.
type RepositoryPort interface {
	ListByAbonent(ctx context.Context, abonentID int64) ([]Row, error)
	Get(ctx context.Context, id int64) (Row, error)
	Create(ctx context.Context, in RowInput) (Row, error)
	Update(ctx context.Context, id int64, in RowInput) error
	Delete(ctx context.Context, id int64) error
	ReplaceImported(ctx context.Context, abonentID int64, inputs []RowInput) error
	SaveAccruals(ctx context.Context, updates []Row, appends []RowInput) error
}

// Service handles ledger business logic: CRUD guarded by lock rules and
// the snapshot read path for the calculation core.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRows returns all rows of an account.
func (s *Service) ListRows(ctx context.Context, abonentID int64) ([]Row, error) {
	return s.repo.ListByAbonent(ctx, abonentID)
}

// CreateRow adds a manually entered row.
func (s *Service) CreateRow(ctx context.Context, in RowInput) (Row, error) {
	if err := validateInput(in); err != nil {
		return Row{}, err
	}
	if in.Source == "" {
		in.Source = SourceManual
	}
	return s.repo.Create(ctx, in)
}

// UpdateRow rewrites a row. Imported rows are locked and reject the change.
func (s *Service) UpdateRow(ctx context.Context, id int64, in RowInput) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Locked {
		return ErrLocked
	}
	if err := validateInput(in); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, in)
}

// DeleteRow removes a row. Imported rows are locked and reject deletion.
func (s *Service) DeleteRow(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Locked {
		return ErrLocked
	}
	return s.repo.Delete(ctx, id)
}

// ReplaceImported swaps the account's imported rows for a new set.
func (s *Service) ReplaceImported(ctx context.Context, abonentID int64, inputs []RowInput) error {
	return s.repo.ReplaceImported(ctx, abonentID, inputs)
}

// ApplyAccruals persists an accrual run's mutations in one transaction.
func (s *Service) ApplyAccruals(ctx context.Context, updates []Row, appends []RowInput) error {
	return s.repo.SaveAccruals(ctx, updates, appends)
}

// Snapshot returns the account's rows in calculation form. The core
// operates on this value and never touches storage.
func (s *Service) Snapshot(ctx context.Context, abonentID int64) ([]calc.Row, error) {
	rows, err := s.repo.ListByAbonent(ctx, abonentID)
	if err != nil {
		return nil, err
	}
	return ToCalcRows(rows), nil
}

// ToCalcRows converts persisted rows to the core's input shape.
func ToCalcRows(rows []Row) []calc.Row {
	out := make([]calc.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, calc.Row{
			ID:         r.ID,
			Year:       r.Year,
			Month:      r.Month,
			Accrued:    r.Accrued,
			Paid:       r.Paid,
			PaidDate:   r.PaidDate,
			UsePeriod:  r.UsePeriod,
			PeriodFrom: r.PeriodFrom,
			PeriodTo:   r.PeriodTo,
		})
	}
	return out
}

func validateInput(in RowInput) error {
	if in.AbonentID == 0 {
		return errors.New("abonent ID required")
	}
	if in.Month < 1 || in.Month > 12 {
		return fmt.Errorf("month out of range: %d", in.Month)
	}
	if in.Year < 1990 || in.Year > 2100 {
		return fmt.Errorf("year out of range: %d", in.Year)
	}
	if in.Accrued.Sign() < 0 || in.Paid.Sign() < 0 {
		return errors.New("amounts must not be negative")
	}
	if in.Paid.Sign() > 0 && in.PaidDate.IsZero() {
		return errors.New("paid date required for a payment")
	}
	return nil
}
