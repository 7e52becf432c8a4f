package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/calc"
)

// monthNamesRU are nominative month names for the period column.
var monthNamesRU = [...]string{"", "январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь"}

// monthNamesRUGenitive are genitive month names for long date spelling.
var monthNamesRUGenitive = [...]string{"", "января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря"}

// MonthNameRU returns the nominative Russian month name, "" out of range.
func MonthNameRU(m time.Month) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNamesRU[m]
}

// FormatDateRU spells a date the way court documents do: "2 марта 2025 года".
func FormatDateRU(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d года", d.Day(), monthNamesRUGenitive[d.Month()], d.Year())
}

// CertificateRow is one printed line. A month's first row carries the
// accrual and may merge the first payment; further payments of the same
// month come as separate rows. MonthDebtMain is the remaining debt of
// that month alone after the row's payment, never a running total.
// MonthDebtPenalty appears only on the month's first row and is the full
// penalty attributed to that month as the debt source, as of the
// certificate's state date.
type CertificateRow struct {
	Year             int
	Month            int
	PeriodLabel      string
	Accrued          decimal.Decimal
	Paid             decimal.Decimal
	PaidDate         string
	MonthDebtMain    decimal.Decimal
	MonthDebtPenalty decimal.Decimal
	MonthDebtTotal   decimal.Decimal
}

// Certificate is the complete court certificate document model.
type Certificate struct {
	Requisites Requisites
	Signer     Signer

	Account string
	FIO     string
	Address string
	Square  string
	Rooms   int
	Share   string

	PeriodFrom time.Time
	PeriodTo   time.Time
	// StateDate is the end of the period's last month: the footer totals
	// are computed on it and must match the account card for that date.
	StateDate time.Time
	DocDate   time.Time

	Rows       []CertificateRow
	SumAccrued decimal.Decimal
	SumPaid    decimal.Decimal
	Totals     calc.AdjustedTotals
}

// CalcPort is the slice of the calculation façade the builder needs.
type CalcPort interface {
	PeriodInput(ctx context.Context, abonentID int64, from, to time.Time, opts calc.Options) (calc.Input, error)
}

// RegistryPort is what the builder needs from the account registry.
type RegistryPort interface {
	GetAbonent(ctx context.Context, id int64) (abonent.Abonent, error)
	ResponsibilityRange(ctx context.Context, id int64) (*calc.Range, error)
}

// HeaderPort supplies the organization header and signer.
type HeaderPort interface {
	Requisites(ctx context.Context) (Requisites, error)
	DefaultSigner(ctx context.Context) (Signer, error)
}

// Builder assembles court certificates.
type Builder struct {
	calc       CalcPort
	registry   RegistryPort
	requisites HeaderPort
	now        func() time.Time
}

// NewBuilder builds Builder instance.
func NewBuilder(calcPort CalcPort, registry RegistryPort, requisites HeaderPort) *Builder {
	return &Builder{calc: calcPort, registry: registry, requisites: requisites, now: time.Now}
}

// Build assembles the certificate for a reporting period. A zero from
// falls back to the responsibility range start (or 2000-01-01 without
// one); a zero to falls back to today.
func (b *Builder) Build(ctx context.Context, abonentID int64, from, to time.Time) (Certificate, error) {
	a, err := b.registry.GetAbonent(ctx, abonentID)
	if err != nil {
		return Certificate{}, err
	}
	from, to, err = b.resolvePeriod(ctx, abonentID, from, to)
	if err != nil {
		return Certificate{}, err
	}

	opts := calc.Options{ApplyAdvanceOffset: true, AllowNegativePrincipal: true}
	in, err := b.calc.PeriodInput(ctx, abonentID, from, to, opts)
	if err != nil {
		return Certificate{}, err
	}
	stateDate := calc.EndOfMonth(to)

	cert := Certificate{
		Account:    a.Account,
		FIO:        a.FIO,
		Address:    a.Address,
		Square:     a.Square.String(),
		Rooms:      a.Rooms,
		Share:      a.Share,
		PeriodFrom: calc.DayStart(from),
		PeriodTo:   calc.DayStart(to),
		StateDate:  stateDate,
		DocDate:    calc.DayStart(b.now()),
	}
	if cert.Requisites, err = b.requisites.Requisites(ctx); err != nil {
		return Certificate{}, err
	}
	if cert.Signer, err = b.requisites.DefaultSigner(ctx); err != nil {
		return Certificate{}, err
	}

	penaltyByMonth := calc.PenaltyBySourceMonth(in)
	cert.Rows = buildRows(calc.BuildCourtViewRows(in.Rows, from, to), penaltyByMonth)
	for _, row := range cert.Rows {
		cert.SumAccrued = calc.Round2(cert.SumAccrued.Add(row.Accrued))
		cert.SumPaid = calc.Round2(cert.SumPaid.Add(row.Paid))
	}
	cert.Totals = calc.TotalsAdjusted(in)
	return cert, nil
}

func (b *Builder) resolvePeriod(ctx context.Context, abonentID int64, from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() {
		rng, err := b.registry.ResponsibilityRange(ctx, abonentID)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if rng != nil {
			from = rng.From
		} else {
			from = calc.Day(2000, time.January, 1)
		}
	}
	if to.IsZero() {
		to = calc.DayStart(b.now())
	}
	return from, to, nil
}

// buildRows turns view rows into printed lines, tracking per-month debt:
// within a month the remaining debt is max(accrued so far - paid so far, 0).
func buildRows(viewRows []calc.CourtViewRow, penaltyByMonth map[string]decimal.Decimal) []CertificateRow {
	out := make([]CertificateRow, 0, len(viewRows))
	curKey := ""
	monthAccrued := decimal.Zero
	monthPaid := decimal.Zero

	for _, vr := range viewRows {
		key := calc.MonthKey(vr.Year, time.Month(vr.Month))
		firstInMonth := key != curKey
		if firstInMonth {
			curKey = key
			monthAccrued = decimal.Zero
			monthPaid = decimal.Zero
		}
		monthAccrued = calc.Round2(monthAccrued.Add(vr.Accrued))
		monthPaid = calc.Round2(monthPaid.Add(vr.Paid))

		row := CertificateRow{
			Year:          vr.Year,
			Month:         vr.Month,
			PeriodLabel:   fmt.Sprintf("%d %s", vr.Year, MonthNameRU(time.Month(vr.Month))),
			Accrued:       vr.Accrued,
			Paid:          vr.Paid,
			MonthDebtMain: calc.MaxZero(monthAccrued.Sub(monthPaid)),
		}
		if vr.Paid.Sign() > 0 && vr.PaidDate != "" {
			if d, ok := calc.ParseDateAny(vr.PaidDate); ok {
				row.PaidDate = d.Format("02.01.2006")
			}
		}
		if firstInMonth {
			if p, ok := penaltyByMonth[key]; ok {
				row.MonthDebtPenalty = p
			}
		}
		row.MonthDebtTotal = calc.Round2(row.MonthDebtMain.Add(row.MonthDebtPenalty))
		out = append(out, row)
	}
	return out
}
