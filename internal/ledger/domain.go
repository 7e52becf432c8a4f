// Package ledger manages per-account monthly rows: accruals, payments
// and their applicability periods. It is the persistence boundary for
// everything the calculation core consumes.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// RowSource marks where a ledger row came from.
type RowSource string

const (
	SourceManual  RowSource = "MANUAL"
	SourceImport  RowSource = "IMPORT"
	SourceAccrual RowSource = "ACCRUAL"
)

// Row is one ledger line: a month's accrual, a payment, or both.
// Imported rows are locked and reject mutation through the service.
type Row struct {
	ID         int64
	AbonentID  int64
	Year       int
	Month      int
	Accrued    decimal.Decimal
	Paid       decimal.Decimal
	PaidDate   time.Time
	UsePeriod  bool
	PeriodFrom string
	PeriodTo   string
	Source     RowSource
	Note       string
	Locked     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RowInput carries the mutable fields of a row for create/update.
type RowInput struct {
	AbonentID  int64
	Year       int    `validate:"required,gte=1990,lte=2100"`
	Month      int    `validate:"required,gte=1,lte=12"`
	Accrued    decimal.Decimal
	Paid       decimal.Decimal
	PaidDate   time.Time
	UsePeriod  bool
	PeriodFrom string
	PeriodTo   string
	Source     RowSource
	Note       string
	Locked     bool
}
