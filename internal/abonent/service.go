package abonent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abonbill/abonbill/internal/calc"
)

// RepositoryPort defines data access methods for the registry.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Abonent, error)
	List(ctx context.Context) ([]Abonent, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Create(ctx context.Context, in AbonentInput) (Abonent, error)
	Update(ctx context.Context, id int64, in AbonentInput) error
	GetPremise(ctx context.Context, regnum string) (Premise, error)
	UpsertPremise(ctx context.Context, p Premise) error
	ListLinksByAbonent(ctx context.Context, abonentID int64) ([]OwnershipLink, error)
	ListLinksByRegnum(ctx context.Context, regnum string) ([]OwnershipLink, error)
	CreateLink(ctx context.Context, in LinkInput) (OwnershipLink, error)
	DeleteLink(ctx context.Context, id int64) error
}

// Service handles registry business logic.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo}
}

// GetAbonent returns one account.
func (s *Service) GetAbonent(ctx context.Context, id int64) (Abonent, error) {
	return s.repo.Get(ctx, id)
}

// ListAbonents returns all accounts.
func (s *Service) ListAbonents(ctx context.Context) ([]Abonent, error) {
	return s.repo.List(ctx)
}

// ListAbonentIDs returns every account id.
func (s *Service) ListAbonentIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListIDs(ctx)
}

// CreateAbonent registers a new account.
func (s *Service) CreateAbonent(ctx context.Context, in AbonentInput) (Abonent, error) {
	if in.Account == "" {
		return Abonent{}, errors.New("account number required")
	}
	if in.FIO == "" {
		return Abonent{}, errors.New("fio required")
	}
	if in.Square.Sign() < 0 {
		return Abonent{}, errors.New("square must not be negative")
	}
	return s.repo.Create(ctx, in)
}

// UpdateAbonent rewrites an account's fields.
func (s *Service) UpdateAbonent(ctx context.Context, id int64, in AbonentInput) error {
	if in.Square.Sign() < 0 {
		return errors.New("square must not be negative")
	}
	return s.repo.Update(ctx, id, in)
}

// ResponsibilityRange resolves the account's responsibility range from
// its ownership links and overrides. A nil range means no month filter
// applies; that case is logged so operators can fix the registry data.
func (s *Service) ResponsibilityRange(ctx context.Context, id int64) (*calc.Range, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	links, err := s.repo.ListLinksByAbonent(ctx, id)
	if err != nil {
		return nil, err
	}
	rng := ResolveRange(a, links, time.Now())
	if rng == nil {
		s.logger.Warn("no responsibility range, calculating without month filter",
			slog.Int64("abonent_id", id), slog.String("account", a.Account))
	}
	return rng, nil
}

// PremiseHistory returns the ownership history of the account's premise,
// with the premise record itself when one exists.
func (s *Service) PremiseHistory(ctx context.Context, id int64) (Premise, []OwnershipLink, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Premise{}, nil, err
	}
	if a.PremiseRegnum == "" {
		return Premise{}, nil, nil
	}
	premise, err := s.repo.GetPremise(ctx, a.PremiseRegnum)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Premise{}, nil, err
	}
	links, err := s.repo.ListLinksByRegnum(ctx, a.PremiseRegnum)
	if err != nil {
		return Premise{}, nil, err
	}
	return premise, OwnershipHistory(a.PremiseRegnum, links), nil
}

// AddLink attaches an ownership link.
func (s *Service) AddLink(ctx context.Context, in LinkInput) (OwnershipLink, error) {
	if in.AbonentID == 0 {
		return OwnershipLink{}, errors.New("abonent ID required")
	}
	if in.Regnum == "" {
		return OwnershipLink{}, errors.New("regnum required")
	}
	if in.From.IsZero() {
		return OwnershipLink{}, errors.New("start date required")
	}
	if !in.To.IsZero() && in.To.Before(in.From) {
		return OwnershipLink{}, errors.New("end date before start date")
	}
	return s.repo.CreateLink(ctx, in)
}

// RemoveLink deletes an ownership link.
func (s *Service) RemoveLink(ctx context.Context, id int64) error {
	return s.repo.DeleteLink(ctx, id)
}
