package abonent

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the account does not exist.
var (
	ErrNotFound         = errors.New("abonent: not found")
	ErrDuplicateAccount = errors.New("abonent: account already exists")
)

// Repository provides PostgreSQL backed persistence for the registry.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const abonentColumns = `id, account, fio, address, square, rooms, share, premise_regnum, moratorium, calc_start, calc_end, created_at, updated_at`

func scanAbonent(scan func(...any) error) (Abonent, error) {
	var a Abonent
	var calcStart, calcEnd *time.Time
	err := scan(&a.ID, &a.Account, &a.FIO, &a.Address, &a.Square, &a.Rooms, &a.Share,
		&a.PremiseRegnum, &a.Moratorium, &calcStart, &calcEnd, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Abonent{}, err
	}
	if calcStart != nil {
		a.CalcStart = *calcStart
	}
	if calcEnd != nil {
		a.CalcEnd = *calcEnd
	}
	return a, nil
}

func nullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Get returns one account by id.
func (r *Repository) Get(ctx context.Context, id int64) (Abonent, error) {
	a, err := scanAbonent(r.pool.QueryRow(ctx, `SELECT `+abonentColumns+` FROM abonents WHERE id=$1`, id).Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return Abonent{}, ErrNotFound
	}
	return a, err
}

// List returns all accounts ordered by account number.
func (r *Repository) List(ctx context.Context) ([]Abonent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+abonentColumns+` FROM abonents ORDER BY account`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Abonent
	for rows.Next() {
		a, err := scanAbonent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListIDs returns every account id, for bulk recalculation.
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM abonents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts an account and returns it.
func (r *Repository) Create(ctx context.Context, in AbonentInput) (Abonent, error) {
	now := time.Now()
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO abonents (account, fio, address, square, rooms, share, premise_regnum, moratorium, calc_start, calc_end, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11) RETURNING id`,
		in.Account, in.FIO, in.Address, in.Square, in.Rooms, in.Share,
		in.PremiseRegnum, in.Moratorium, nullable(in.CalcStart), nullable(in.CalcEnd), now).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Abonent{}, ErrDuplicateAccount
		}
		return Abonent{}, err
	}
	return Abonent{
		ID: id, Account: in.Account, FIO: in.FIO, Address: in.Address,
		Square: in.Square, Rooms: in.Rooms, Share: in.Share,
		PremiseRegnum: in.PremiseRegnum, Moratorium: in.Moratorium,
		CalcStart: in.CalcStart, CalcEnd: in.CalcEnd,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

// Update rewrites an account's fields.
func (r *Repository) Update(ctx context.Context, id int64, in AbonentInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE abonents SET account=$1, fio=$2, address=$3, square=$4, rooms=$5, share=$6, premise_regnum=$7, moratorium=$8, calc_start=$9, calc_end=$10, updated_at=now() WHERE id=$11`,
		in.Account, in.FIO, in.Address, in.Square, in.Rooms, in.Share,
		in.PremiseRegnum, in.Moratorium, nullable(in.CalcStart), nullable(in.CalcEnd), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPremise returns a premise by registration number.
func (r *Repository) GetPremise(ctx context.Context, regnum string) (Premise, error) {
	var p Premise
	err := r.pool.QueryRow(ctx, `SELECT regnum, address, square FROM premises WHERE regnum=$1`, regnum).
		Scan(&p.Regnum, &p.Address, &p.Square)
	if errors.Is(err, pgx.ErrNoRows) {
		return Premise{}, ErrNotFound
	}
	return p, err
}

// UpsertPremise creates or updates a premise record.
func (r *Repository) UpsertPremise(ctx context.Context, p Premise) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO premises (regnum, address, square) VALUES ($1, $2, $3)
ON CONFLICT (regnum) DO UPDATE SET address=EXCLUDED.address, square=EXCLUDED.square`,
		p.Regnum, p.Address, p.Square)
	return err
}

// ListLinksByAbonent returns the account's ownership links.
func (r *Repository) ListLinksByAbonent(ctx context.Context, abonentID int64) ([]OwnershipLink, error) {
	return r.listLinks(ctx, `SELECT id, abonent_id, regnum, date_from, date_to FROM ownership_links WHERE abonent_id=$1 ORDER BY date_from`, abonentID)
}

// ListLinksByRegnum returns the premise's full ownership history.
func (r *Repository) ListLinksByRegnum(ctx context.Context, regnum string) ([]OwnershipLink, error) {
	return r.listLinks(ctx, `SELECT id, abonent_id, regnum, date_from, date_to FROM ownership_links WHERE regnum=$1 ORDER BY date_from`, regnum)
}

func (r *Repository) listLinks(ctx context.Context, query string, arg any) ([]OwnershipLink, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OwnershipLink
	for rows.Next() {
		var l OwnershipLink
		var to *time.Time
		if err := rows.Scan(&l.ID, &l.AbonentID, &l.Regnum, &l.From, &to); err != nil {
			return nil, err
		}
		if to != nil {
			l.To = *to
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLink inserts an ownership link.
func (r *Repository) CreateLink(ctx context.Context, in LinkInput) (OwnershipLink, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO ownership_links (abonent_id, regnum, date_from, date_to) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.AbonentID, in.Regnum, in.From, nullable(in.To)).Scan(&id)
	if err != nil {
		return OwnershipLink{}, err
	}
	return OwnershipLink{ID: id, AbonentID: in.AbonentID, Regnum: in.Regnum, From: in.From, To: in.To}, nil
}

// DeleteLink removes an ownership link.
func (r *Repository) DeleteLink(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ownership_links WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
