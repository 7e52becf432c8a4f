package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/abonbill/abonbill/internal/calc"
)

type memoryLedgerRepo struct {
	rows   map[int64]*Row
	nextID int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{rows: make(map[int64]*Row)}
}

func (r *memoryLedgerRepo) ListByAbonent(ctx context.Context, abonentID int64) ([]Row, error) {
	var out []Row
	for id := int64(1); id <= r.nextID; id++ {
		if row, ok := r.rows[id]; ok && row.AbonentID == abonentID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) Get(ctx context.Context, id int64) (Row, error) {
	row, ok := r.rows[id]
	if !ok {
		return Row{}, ErrNotFound
	}
	return *row, nil
}

func (r *memoryLedgerRepo) Create(ctx context.Context, in RowInput) (Row, error) {
	r.nextID++
	row := Row{
		ID: r.nextID, AbonentID: in.AbonentID, Year: in.Year, Month: in.Month,
		Accrued: in.Accrued, Paid: in.Paid, PaidDate: in.PaidDate,
		UsePeriod: in.UsePeriod, PeriodFrom: in.PeriodFrom, PeriodTo: in.PeriodTo,
		Source: in.Source, Note: in.Note, Locked: in.Locked,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	r.rows[row.ID] = &row
	return row, nil
}

func (r *memoryLedgerRepo) Update(ctx context.Context, id int64, in RowInput) error {
	row, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Year, row.Month = in.Year, in.Month
	row.Accrued, row.Paid, row.PaidDate = in.Accrued, in.Paid, in.PaidDate
	row.UsePeriod, row.PeriodFrom, row.PeriodTo = in.UsePeriod, in.PeriodFrom, in.PeriodTo
	row.Note = in.Note
	return nil
}

func (r *memoryLedgerRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryLedgerRepo) ReplaceImported(ctx context.Context, abonentID int64, inputs []RowInput) error {
	for id, row := range r.rows {
		if row.AbonentID == abonentID && row.Source == SourceImport {
			delete(r.rows, id)
		}
	}
	for _, in := range inputs {
		in.Source = SourceImport
		in.Locked = true
		if _, err := r.Create(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryLedgerRepo) SaveAccruals(ctx context.Context, updates []Row, appends []RowInput) error {
	for _, u := range updates {
		row, ok := r.rows[u.ID]
		if !ok {
			return ErrNotFound
		}
		row.Accrued = u.Accrued
	}
	for _, in := range appends {
		if _, err := r.Create(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

func TestCreateRowDefaultsToManual(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := NewService(repo)

	row, err := svc.CreateRow(ctx, RowInput{
		AbonentID: 7,
		Year:      2025,
		Month:     3,
		Accrued:   decimal.RequireFromString("1543.20"),
	})
	require.NoError(t, err)
	require.Equal(t, SourceManual, row.Source)
	require.False(t, row.Locked)
}

func TestCreateRowRejectsPaymentWithoutDate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryLedgerRepo())

	_, err := svc.CreateRow(ctx, RowInput{
		AbonentID: 7,
		Year:      2025,
		Month:     3,
		Paid:      decimal.RequireFromString("100"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "paid date required")
}

func TestCreateRowRejectsBadMonth(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryLedgerRepo())

	_, err := svc.CreateRow(ctx, RowInput{AbonentID: 7, Year: 2025, Month: 13})
	require.Error(t, err)
	require.Contains(t, err.Error(), "month out of range")
}

func TestUpdateRowRejectsLocked(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := NewService(repo)

	row, err := svc.CreateRow(ctx, RowInput{
		AbonentID: 7, Year: 2025, Month: 1,
		Accrued: decimal.RequireFromString("200"),
		Source:  SourceImport,
		Locked:  true,
	})
	require.NoError(t, err)

	err = svc.UpdateRow(ctx, row.ID, RowInput{AbonentID: 7, Year: 2025, Month: 1})
	require.ErrorIs(t, err, ErrLocked)

	err = svc.DeleteRow(ctx, row.ID)
	require.ErrorIs(t, err, ErrLocked)
}

func TestUpdateRowMutatesUnlocked(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := NewService(repo)

	row, err := svc.CreateRow(ctx, RowInput{
		AbonentID: 7, Year: 2025, Month: 1,
		Accrued: decimal.RequireFromString("200"),
	})
	require.NoError(t, err)

	err = svc.UpdateRow(ctx, row.ID, RowInput{
		AbonentID: 7, Year: 2025, Month: 1,
		Accrued: decimal.RequireFromString("250"),
	})
	require.NoError(t, err)

	updated, err := repo.Get(ctx, row.ID)
	require.NoError(t, err)
	require.True(t, updated.Accrued.Equal(decimal.RequireFromString("250")))
}

func TestReplaceImportedKeepsManualRows(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := NewService(repo)

	manual, err := svc.CreateRow(ctx, RowInput{
		AbonentID: 7, Year: 2025, Month: 1,
		Accrued: decimal.RequireFromString("200"),
	})
	require.NoError(t, err)
	_, err = svc.CreateRow(ctx, RowInput{
		AbonentID: 7, Year: 2025, Month: 2,
		Accrued: decimal.RequireFromString("300"),
		Source:  SourceImport, Locked: true,
	})
	require.NoError(t, err)

	err = svc.ReplaceImported(ctx, 7, []RowInput{
		{AbonentID: 7, Year: 2025, Month: 3, Accrued: decimal.RequireFromString("400")},
	})
	require.NoError(t, err)

	rows, err := svc.ListRows(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, manual.ID, rows[0].ID)
	require.Equal(t, 3, rows[1].Month)
	require.True(t, rows[1].Locked)
}

func TestSnapshotMapsToCalcRows(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := NewService(repo)

	paidAt := calc.Day(2025, time.February, 5)
	_, err := svc.CreateRow(ctx, RowInput{
		AbonentID: 7, Year: 2025, Month: 1,
		Accrued:   decimal.RequireFromString("200"),
		Paid:      decimal.RequireFromString("150"),
		PaidDate:  paidAt,
		UsePeriod: true, PeriodFrom: "2024-11", PeriodTo: "2025-01",
	})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, 7)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	require.Equal(t, 2025, snap[0].Year)
	require.Equal(t, 1, snap[0].Month)
	require.True(t, snap[0].Paid.Equal(decimal.RequireFromString("150")))
	require.True(t, snap[0].UsePeriod)
	require.Equal(t, "2024-11", snap[0].PeriodFrom)
	require.True(t, snap[0].PaidDate.Equal(paidAt))
}
