// Package report builds the court debt certificate: organization header,
// per-month debt rows and footer totals that match the account card.
package report

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abonbill/abonbill/internal/platform/db"
)

// Requisites is the organization header printed on certificates.
type Requisites struct {
	FullName      string
	ShortName     string
	Form          string
	INN           string
	OGRN          string
	LegalAddress  string
	PostalAddress string
	Phone         string
	Email         string
}

// Signer is a person authorized to sign certificates. Basis is the
// document the authority rests on (charter, protocol, power of attorney).
type Signer struct {
	ID        int64
	FIO       string
	Position  string
	Basis     string
	IsDefault bool
	Active    bool
}

const defaultSignerPosition = "Председатель правления"

// RequisitesRepository persists the single organization record and its
// signer list.
type RequisitesRepository struct {
	pool *pgxpool.Pool
}

// NewRequisitesRepository builds RequisitesRepository instance.
func NewRequisitesRepository(pool *pgxpool.Pool) *RequisitesRepository {
	return &RequisitesRepository{pool: pool}
}

// Requisites loads the organization record. A missing record yields the
// zero value rather than an error: a fresh install has nothing saved yet.
func (r *RequisitesRepository) Requisites(ctx context.Context) (Requisites, error) {
	const query = `SELECT full_name, short_name, form, inn, ogrn, legal_address, postal_address, phone, email
FROM organization_requisites WHERE id = 1`
	var req Requisites
	err := r.pool.QueryRow(ctx, query).Scan(
		&req.FullName, &req.ShortName, &req.Form, &req.INN, &req.OGRN,
		&req.LegalAddress, &req.PostalAddress, &req.Phone, &req.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Requisites{}, nil
	}
	if err != nil {
		return Requisites{}, err
	}
	return req, nil
}

// SaveRequisites upserts the organization record.
func (r *RequisitesRepository) SaveRequisites(ctx context.Context, req Requisites) error {
	const query = `INSERT INTO organization_requisites (id, full_name, short_name, form, inn, ogrn, legal_address, postal_address, phone, email, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
ON CONFLICT (id) DO UPDATE SET
  full_name = EXCLUDED.full_name, short_name = EXCLUDED.short_name, form = EXCLUDED.form,
  inn = EXCLUDED.inn, ogrn = EXCLUDED.ogrn, legal_address = EXCLUDED.legal_address,
  postal_address = EXCLUDED.postal_address, phone = EXCLUDED.phone, email = EXCLUDED.email,
  updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query,
		req.FullName, req.ShortName, req.Form, req.INN, req.OGRN,
		req.LegalAddress, req.PostalAddress, req.Phone, req.Email,
	)
	return err
}

// ListSigners returns all signers ordered with the default first.
func (r *RequisitesRepository) ListSigners(ctx context.Context) ([]Signer, error) {
	const query = `SELECT id, fio, position, basis, is_default, active
FROM signers ORDER BY is_default DESC, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var signers []Signer
	for rows.Next() {
		var s Signer
		if err := rows.Scan(&s.ID, &s.FIO, &s.Position, &s.Basis, &s.IsDefault, &s.Active); err != nil {
			return nil, err
		}
		signers = append(signers, s)
	}
	return signers, rows.Err()
}

// ReplaceSigners stores the signer list after normalization.
func (r *RequisitesRepository) ReplaceSigners(ctx context.Context, signers []Signer) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM signers`); err != nil {
			return err
		}
		const insert = `INSERT INTO signers (fio, position, basis, is_default, active)
VALUES ($1, $2, $3, $4, $5)`
		for _, s := range signers {
			if _, err := tx.Exec(ctx, insert, s.FIO, s.Position, s.Basis, s.IsDefault, s.Active); err != nil {
				return err
			}
		}
		return nil
	})
}

// RequisitesPort is what the requisites service needs from storage.
type RequisitesPort interface {
	Requisites(ctx context.Context) (Requisites, error)
	SaveRequisites(ctx context.Context, req Requisites) error
	ListSigners(ctx context.Context) ([]Signer, error)
	ReplaceSigners(ctx context.Context, signers []Signer) error
}

// RequisitesService owns signer-list normalization and default selection.
type RequisitesService struct {
	repo RequisitesPort
}

// NewRequisitesService builds RequisitesService instance.
func NewRequisitesService(repo RequisitesPort) *RequisitesService {
	return &RequisitesService{repo: repo}
}

// Requisites returns the organization record.
func (s *RequisitesService) Requisites(ctx context.Context) (Requisites, error) {
	return s.repo.Requisites(ctx)
}

// SaveRequisites stores the organization record.
func (s *RequisitesService) SaveRequisites(ctx context.Context, req Requisites) error {
	return s.repo.SaveRequisites(ctx, req)
}

// ListSigners returns the stored signer list.
func (s *RequisitesService) ListSigners(ctx context.Context) ([]Signer, error) {
	return s.repo.ListSigners(ctx)
}

// SaveSigners normalizes and stores the signer list: completely empty
// entries are dropped and exactly one signer ends up marked default.
func (s *RequisitesService) SaveSigners(ctx context.Context, signers []Signer) error {
	return s.repo.ReplaceSigners(ctx, NormalizeSigners(signers))
}

// DefaultSigner picks the signer printed on certificates: the default
// among active signers, else the first active one. When nobody is set up
// the certificate falls back to the bare position title with no name.
func (s *RequisitesService) DefaultSigner(ctx context.Context) (Signer, error) {
	signers, err := s.repo.ListSigners(ctx)
	if err != nil {
		return Signer{}, err
	}
	return PickSigner(signers), nil
}

// NormalizeSigners drops empty entries and enforces a single default.
func NormalizeSigners(signers []Signer) []Signer {
	out := make([]Signer, 0, len(signers))
	for _, s := range signers {
		if s.FIO == "" && s.Position == "" && s.Basis == "" {
			continue
		}
		out = append(out, s)
	}
	defaultSeen := false
	for i := range out {
		if out[i].IsDefault && !defaultSeen {
			defaultSeen = true
			continue
		}
		out[i].IsDefault = false
	}
	if !defaultSeen && len(out) > 0 {
		out[0].IsDefault = true
	}
	return out
}

// PickSigner selects the active default, else the first active signer.
// A signer without a position gets the standard chairman title.
func PickSigner(signers []Signer) Signer {
	chosen := Signer{Position: defaultSignerPosition}
	found := false
	for i := range signers {
		if !signers[i].Active {
			continue
		}
		if signers[i].IsDefault {
			chosen, found = signers[i], true
			break
		}
		if !found {
			chosen, found = signers[i], true
		}
	}
	if chosen.Position == "" {
		chosen.Position = defaultSignerPosition
	}
	return chosen
}
