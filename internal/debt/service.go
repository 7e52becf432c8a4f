// Package debt is the façade over the calculation core: it gathers the
// ledger snapshot, responsibility range, rate timeline and exclusions
// for an account and runs the core. Every user-facing surface (card,
// court certificate, API) goes through this package, which is the only
// place reference data is assembled into a calculation input.
package debt

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/ledger"
)

// RegistryPort is what the façade needs from the account registry.
type RegistryPort interface {
	GetAbonent(ctx context.Context, id int64) (abonent.Abonent, error)
	ResponsibilityRange(ctx context.Context, id int64) (*calc.Range, error)
}

// RefdataPort is what the façade needs from reference data.
type RefdataPort interface {
	RatesFor(ctx context.Context, moratorium bool) ([]calc.Rate, error)
	Exclusions(ctx context.Context, abonentID int64) ([]calc.Period, error)
}

// LedgerPort is what the façade needs from the ledger.
type LedgerPort interface {
	ListRows(ctx context.Context, abonentID int64) ([]ledger.Row, error)
}

// Service assembles calculation inputs and runs the core.
type Service struct {
	registry RegistryPort
	refdata  RefdataPort
	ledger   LedgerPort
}

// NewService builds Service instance.
func NewService(registry RegistryPort, ref RefdataPort, led LedgerPort) *Service {
	return &Service{registry: registry, refdata: ref, ledger: led}
}

// BuildInput gathers everything the core needs for one account.
func (s *Service) BuildInput(ctx context.Context, abonentID int64, asOf time.Time, opts calc.Options) (calc.Input, error) {
	a, err := s.registry.GetAbonent(ctx, abonentID)
	if err != nil {
		return calc.Input{}, err
	}
	rng, err := s.registry.ResponsibilityRange(ctx, abonentID)
	if err != nil {
		return calc.Input{}, err
	}
	rates, err := s.refdata.RatesFor(ctx, a.Moratorium)
	if err != nil {
		return calc.Input{}, err
	}
	exclusions, err := s.refdata.Exclusions(ctx, abonentID)
	if err != nil {
		return calc.Input{}, err
	}
	rows, err := s.ledger.ListRows(ctx, abonentID)
	if err != nil {
		return calc.Input{}, err
	}
	return calc.Input{
		Rows:       ledger.ToCalcRows(rows),
		AsOf:       calc.DayStart(asOf),
		Range:      rng,
		Rates:      rates,
		Exclusions: exclusions,
		Options:    opts,
	}, nil
}

// PeriodInput gathers a calculation input restricted to the months of a
// reporting period. Rows outside the period's months are dropped before
// allocation, so the certificate starts from zero at the period start;
// the as-of date is the end of the period's last month, matching the
// account card for the same period.
func (s *Service) PeriodInput(ctx context.Context, abonentID int64, from, to time.Time, opts calc.Options) (calc.Input, error) {
	in, err := s.BuildInput(ctx, abonentID, calc.EndOfMonth(to), opts)
	if err != nil {
		return calc.Input{}, err
	}
	fromKey := calc.MonthKeyOf(from)
	toKey := calc.MonthKeyOf(to)
	kept := make([]calc.Row, 0, len(in.Rows))
	for _, row := range in.Rows {
		if row.Month < 1 || row.Month > 12 || row.Year <= 0 {
			continue
		}
		key := calc.MonthKey(row.Year, time.Month(row.Month))
		if key >= fromKey && key <= toKey {
			kept = append(kept, row)
		}
	}
	in.Rows = kept
	return in, nil
}

// Totals returns the adjusted totals for an account as of a date.
func (s *Service) Totals(ctx context.Context, abonentID int64, asOf time.Time, opts calc.Options) (calc.AdjustedTotals, error) {
	in, err := s.BuildInput(ctx, abonentID, asOf, opts)
	if err != nil {
		return calc.AdjustedTotals{}, err
	}
	return calc.TotalsAdjusted(in), nil
}

// CoreTotals returns the raw totals before the advance rule.
func (s *Service) CoreTotals(ctx context.Context, abonentID int64, asOf time.Time, opts calc.Options) (calc.CoreTotals, error) {
	in, err := s.BuildInput(ctx, abonentID, asOf, opts)
	if err != nil {
		return calc.CoreTotals{}, err
	}
	return calc.TotalsCore(in), nil
}

// PenaltyBreakdown attributes the accrued penalty to source months.
func (s *Service) PenaltyBreakdown(ctx context.Context, abonentID int64, asOf time.Time) (map[string]decimal.Decimal, error) {
	in, err := s.BuildInput(ctx, abonentID, asOf, calc.Options{})
	if err != nil {
		return nil, err
	}
	return calc.PenaltyBySourceMonth(in), nil
}

// CourtRows builds the per-month certificate rows for a period.
func (s *Service) CourtRows(ctx context.Context, abonentID int64, from, to time.Time) ([]calc.CourtViewRow, error) {
	rows, err := s.ledger.ListRows(ctx, abonentID)
	if err != nil {
		return nil, err
	}
	return calc.BuildCourtViewRows(ledger.ToCalcRows(rows), from, to), nil
}

// CardRow is one account-card line: the ledger row plus the debt state
// as of that row's date.
type CardRow struct {
	Row        ledger.Row
	AsOf       time.Time
	PayMain    decimal.Decimal
	PayPenalty decimal.Decimal
	TotalDebt  decimal.Decimal
}

// CardRows returns the account's ledger with running debt columns: for
// each row, principal and penalty as of the row's date. A payment row
// is evaluated on its payment date; a pure accrual row on the end of
// its month, so monthly history stays correct between payments.
func (s *Service) CardRows(ctx context.Context, abonentID int64) ([]CardRow, error) {
	in, err := s.BuildInput(ctx, abonentID, time.Now(), calc.Options{ApplyAdvanceOffset: true})
	if err != nil {
		return nil, err
	}
	rows, err := s.ledger.ListRows(ctx, abonentID)
	if err != nil {
		return nil, err
	}

	out := make([]CardRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, CardRow{Row: row, AsOf: rowAsOf(row)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AsOf.Equal(out[j].AsOf) {
			return out[i].AsOf.Before(out[j].AsOf)
		}
		return out[i].Row.ID < out[j].Row.ID
	})

	for i := range out {
		rowIn := in
		rowIn.AsOf = out[i].AsOf
		core := calc.TotalsCore(rowIn)
		out[i].PayMain = core.PrincipalAdj
		out[i].PayPenalty = core.PenaltyAccruedTotal
		out[i].TotalDebt = calc.Round2(core.PrincipalAdj.Add(core.PenaltyAccruedTotal))
	}
	return out, nil
}

// rowAsOf picks the evaluation date for a card row: the payment date
// when the row actually carries a payment, else the end of its month.
func rowAsOf(row ledger.Row) time.Time {
	if row.Paid.Sign() > 0 && !row.PaidDate.IsZero() {
		return calc.DayStart(row.PaidDate)
	}
	if row.Month >= 1 && row.Month <= 12 && row.Year > 0 {
		return calc.EndOfMonth(calc.Day(row.Year, time.Month(row.Month), 1))
	}
	return calc.DayStart(time.Now())
}
