package calc

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is one line of an account's monthly ledger. A month may hold several
// rows: one accrual row plus any number of payment rows. Rows reach the
// core already normalized; field-name aliasing never crosses this boundary.
type Row struct {
	ID      int64
	Year    int
	Month   int
	Accrued decimal.Decimal
	Paid    decimal.Decimal
	// PaidDate is the actual payment date; zero when the row carries no
	// payment. It is never rewritten retroactively.
	PaidDate time.Time
	// UsePeriod marks an explicit pay-for-period designation. PeriodFrom
	// and PeriodTo are inclusive "YYYY-MM" bounds; they affect only the
	// penalty allocation, never the payment date.
	UsePeriod  bool
	PeriodFrom string
	PeriodTo   string
}

// Range bounds the months an account is responsible for. A zero To means
// open-ended ("to present").
type Range struct {
	From time.Time
	To   time.Time
}

// Rate is a refinancing rate effective from a date until superseded.
type Rate struct {
	From time.Time
	Rate decimal.Decimal
}

// Period is an inclusive date range during which penalty does not accrue.
// Exclusions gate only the penalty; principal is unaffected.
type Period struct {
	From time.Time
	To   time.Time
}

// Options control how totals are reported.
type Options struct {
	// ApplyAdvanceOffset subtracts unapplied advance from principal.
	ApplyAdvanceOffset bool
	// AllowNegativePrincipal surfaces residual advance as negative
	// principal instead of clamping it to zero.
	AllowNegativePrincipal bool
	// CalcPeriod widens the applicability window of payments that carry
	// no per-row designation (the account-level "pay for period" toggle).
	// Bounds are "YYYY-MM" month keys; empty strings leave the default.
	CalcPeriodFrom string
	CalcPeriodTo   string
}

// Input is the complete snapshot a calculation runs over. Callers gather
// it once per calculation; the core itself never reads shared state.
type Input struct {
	Rows       []Row
	AsOf       time.Time
	Range      *Range
	Rates      []Rate
	Exclusions []Period
	Options    Options
}

// AllowedMonths derives the month-key filter from the responsibility
// range. Nil means no filter: a missing range degrades to considering
// every month rather than failing (operators see a warning upstream).
func (in Input) AllowedMonths() map[string]struct{} {
	if in.Range == nil || in.Range.From.IsZero() {
		return nil
	}
	to := in.Range.To
	if to.IsZero() {
		to = in.AsOf
	}
	keys := MonthKeys(in.Range.From, to)
	if keys == nil {
		return nil
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
