package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abonbill/abonbill/internal/platform/db"
)

// ErrNotFound indicates the row does not exist.
var ErrNotFound = errors.New("ledger: row not found")

// Repository provides PostgreSQL backed persistence for ledger rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const rowColumns = `id, abonent_id, year, month, accrued, paid, paid_date, use_period, period_from, period_to, source, note, locked, created_at, updated_at`

func scanRow(scan func(...any) error) (Row, error) {
	var row Row
	var paidDate *time.Time
	err := scan(&row.ID, &row.AbonentID, &row.Year, &row.Month, &row.Accrued, &row.Paid, &paidDate,
		&row.UsePeriod, &row.PeriodFrom, &row.PeriodTo, &row.Source, &row.Note, &row.Locked,
		&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return Row{}, err
	}
	if paidDate != nil {
		row.PaidDate = *paidDate
	}
	return row, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ListByAbonent returns the account's rows ordered by service month, then id.
func (r *Repository) ListByAbonent(ctx context.Context, abonentID int64) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rowColumns+` FROM ledger_rows WHERE abonent_id=$1 ORDER BY year, month, id`, abonentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		row, err := scanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single row by id.
func (r *Repository) Get(ctx context.Context, id int64) (Row, error) {
	row, err := scanRow(r.pool.QueryRow(ctx, `SELECT `+rowColumns+` FROM ledger_rows WHERE id=$1`, id).Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	return row, err
}

// Create inserts a new row and returns it.
func (r *Repository) Create(ctx context.Context, in RowInput) (Row, error) {
	now := time.Now()
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO ledger_rows (abonent_id, year, month, accrued, paid, paid_date, use_period, period_from, period_to, source, note, locked, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13) RETURNING id`,
		in.AbonentID, in.Year, in.Month, in.Accrued, in.Paid, nullableDate(in.PaidDate),
		in.UsePeriod, in.PeriodFrom, in.PeriodTo, in.Source, in.Note, in.Locked, now).Scan(&id)
	if err != nil {
		return Row{}, err
	}
	return Row{
		ID: id, AbonentID: in.AbonentID, Year: in.Year, Month: in.Month,
		Accrued: in.Accrued, Paid: in.Paid, PaidDate: in.PaidDate,
		UsePeriod: in.UsePeriod, PeriodFrom: in.PeriodFrom, PeriodTo: in.PeriodTo,
		Source: in.Source, Note: in.Note, Locked: in.Locked,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

// Update rewrites the mutable fields of a row.
func (r *Repository) Update(ctx context.Context, id int64, in RowInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE ledger_rows SET year=$1, month=$2, accrued=$3, paid=$4, paid_date=$5, use_period=$6, period_from=$7, period_to=$8, note=$9, updated_at=now() WHERE id=$10`,
		in.Year, in.Month, in.Accrued, in.Paid, nullableDate(in.PaidDate),
		in.UsePeriod, in.PeriodFrom, in.PeriodTo, in.Note, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ledger_rows WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceImported swaps the account's imported rows for the given set in
// one transaction. Manually entered and accrual rows are untouched.
func (r *Repository) ReplaceImported(ctx context.Context, abonentID int64, inputs []RowInput) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM ledger_rows WHERE abonent_id=$1 AND source=$2`, abonentID, SourceImport); err != nil {
			return err
		}
		now := time.Now()
		for _, in := range inputs {
			if _, err := tx.Exec(ctx, `INSERT INTO ledger_rows (abonent_id, year, month, accrued, paid, paid_date, use_period, period_from, period_to, source, note, locked, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
				abonentID, in.Year, in.Month, in.Accrued, in.Paid, nullableDate(in.PaidDate),
				in.UsePeriod, in.PeriodFrom, in.PeriodTo, SourceImport, in.Note, true, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveAccruals applies the auto-accrual writer's mutations in one
// transaction: amount updates on existing rows plus appended months.
func (r *Repository) SaveAccruals(ctx context.Context, updates []Row, appends []RowInput) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, row := range updates {
			if _, err := tx.Exec(ctx, `UPDATE ledger_rows SET accrued=$1, updated_at=now() WHERE id=$2`, row.Accrued, row.ID); err != nil {
				return err
			}
		}
		now := time.Now()
		for _, in := range appends {
			if _, err := tx.Exec(ctx, `INSERT INTO ledger_rows (abonent_id, year, month, accrued, paid, paid_date, use_period, period_from, period_to, source, note, locked, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULL, false, '', '', $6, $7, false, $8, $8)`,
				in.AbonentID, in.Year, in.Month, in.Accrued, in.Paid, SourceAccrual, in.Note, now); err != nil {
				return err
			}
		}
		return nil
	})
}
