package calc

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CoreTotals is the raw calculation result before the advance rule.
type CoreTotals struct {
	// PrincipalAdj is total unpaid principal, minus the advance when
	// Options.ApplyAdvanceOffset is set (and may then be negative).
	PrincipalAdj decimal.Decimal
	// PenaltyAccruedTotal is the penalty accrued across all obligations.
	PenaltyAccruedTotal decimal.Decimal
	// AdvanceUpTo is the unapplied payment surplus as of the date.
	AdvanceUpTo decimal.Decimal
}

// AdjustedTotals is what every user-facing surface shows.
type AdjustedTotals struct {
	Principal           decimal.Decimal
	PenaltyDebt         decimal.Decimal
	Total               decimal.Decimal
	PenaltyAccruedTotal decimal.Decimal
	AdvanceUpTo         decimal.Decimal
}

// prepare builds obligations and runs the allocation for an input
// snapshot: obligations are limited to service months up to the as-of
// month, payments to events dated up to the as-of day.
func prepare(in Input) ([]*Obligation, []Advance, time.Time) {
	asOfDay := DayStart(in.AsOf)
	asOfKey := MonthKeyOf(in.AsOf)

	all := BuildObligations(in.Rows, in.AllowedMonths())
	obligations := make([]*Obligation, 0, len(all))
	for _, ob := range all {
		if ob.Key <= asOfKey {
			obligations = append(obligations, ob)
		}
	}

	var payments []PaymentEvent
	for _, p := range BuildPaymentEvents(in.Rows, in.Options) {
		if SameOrBefore(p.Date, asOfDay) {
			payments = append(payments, p)
		}
	}

	advances := AllocateFIFO(obligations, payments)
	return obligations, advances, asOfDay
}

// TotalsCore computes principal, accrued penalty and advance as of the
// input's date. Pure: identical inputs always yield identical results.
func TotalsCore(in Input) CoreTotals {
	obligations, advances, asOfDay := prepare(in)
	advance := SumAdvancesUpTo(advances, asOfDay)

	principal := decimal.Zero
	penalty := decimal.Zero
	for _, ob := range obligations {
		ob.sortApplications()
		principal = principal.Add(MaxZero(ob.Amount.Sub(ob.AppliedUpTo(asOfDay))))
		penalty = penalty.Add(PenaltyForObligation(ob, in.AsOf, in.Exclusions, in.Rates))
	}

	principalAdj := principal
	if in.Options.ApplyAdvanceOffset {
		principalAdj = principal.Sub(advance)
	}
	return CoreTotals{
		PrincipalAdj:        Round2(principalAdj),
		PenaltyAccruedTotal: Round2(penalty),
		AdvanceUpTo:         advance,
	}
}

// TotalsAdjusted applies the central business rule on top of TotalsCore:
// an advance (negative principal) pays off the penalty debt first, and
// only the remainder is surfaced as credit. A subscriber sitting on an
// unapplied overpayment is never shown as owing penalty.
func TotalsAdjusted(in Input) AdjustedTotals {
	core := TotalsCore(in)
	principal := core.PrincipalAdj
	penaltyDebt := core.PenaltyAccruedTotal

	if principal.Sign() < 0 {
		extra := principal.Neg()
		used := MinAmount(extra, penaltyDebt)
		penaltyDebt = MaxZero(penaltyDebt.Sub(used))
		extra = extra.Sub(used)
		if in.Options.AllowNegativePrincipal {
			principal = extra.Neg()
		} else {
			principal = decimal.Zero
		}
	}

	return AdjustedTotals{
		Principal:           Round2(principal),
		PenaltyDebt:         Round2(penaltyDebt),
		Total:               Round2(principal.Add(penaltyDebt)),
		PenaltyAccruedTotal: core.PenaltyAccruedTotal,
		AdvanceUpTo:         core.AdvanceUpTo,
	}
}

// PenaltyBySourceMonth attributes accrued penalty to the month whose
// obligation generated it, not the month the penalty day fell in. Court
// documents need each line to show the penalty "belonging to" that
// month's debt.
func PenaltyBySourceMonth(in Input) map[string]decimal.Decimal {
	obligations, _, _ := prepare(in)
	out := make(map[string]decimal.Decimal, len(obligations))
	for _, ob := range obligations {
		out[ob.Key] = Round2(PenaltyForObligation(ob, in.AsOf, in.Exclusions, in.Rates))
	}
	return out
}

// CourtViewRow is one line of the court certificate table: a month's
// accrual merged with its first payment, plus one extra row per
// additional payment in that month.
type CourtViewRow struct {
	Year     int
	Month    int
	Accrued  decimal.Decimal
	Paid     decimal.Decimal
	PaidDate string
}

// BuildCourtViewRows lists every month of [from, to] in order, merging
// each month's accrual with its first payment. Months without rows still
// appear with zero amounts.
func BuildCourtViewRows(rows []Row, from, to time.Time) []CourtViewRow {
	if from.IsZero() || to.IsZero() {
		return nil
	}

	type pay struct {
		id     int64
		amount decimal.Decimal
		date   time.Time
	}
	accrued := make(map[string]decimal.Decimal)
	pays := make(map[string][]pay)
	for _, r := range rows {
		if r.Year <= 0 || r.Month < 1 || r.Month > 12 {
			continue
		}
		key := MonthKey(r.Year, time.Month(r.Month))
		accrued[key] = accrued[key].Add(r.Accrued)
		if r.Paid.Sign() > 0 && !r.PaidDate.IsZero() {
			pays[key] = append(pays[key], pay{id: r.ID, amount: Round2(r.Paid), date: DayStart(r.PaidDate)})
		}
	}

	var out []CourtViewRow
	for _, key := range MonthKeys(from, to) {
		y, mo, _ := SplitMonthKey(key)
		monthAccrued := Round2(accrued[key])

		monthPays := pays[key]
		sort.SliceStable(monthPays, func(i, j int) bool {
			if !monthPays[i].date.Equal(monthPays[j].date) {
				return monthPays[i].date.Before(monthPays[j].date)
			}
			return monthPays[i].id < monthPays[j].id
		})

		if len(monthPays) == 0 {
			out = append(out, CourtViewRow{Year: y, Month: int(mo), Accrued: monthAccrued})
			continue
		}
		out = append(out, CourtViewRow{
			Year: y, Month: int(mo),
			Accrued:  monthAccrued,
			Paid:     monthPays[0].amount,
			PaidDate: FormatISO(monthPays[0].date),
		})
		for _, p := range monthPays[1:] {
			out = append(out, CourtViewRow{
				Year: y, Month: int(mo),
				Paid:     p.amount,
				PaidDate: FormatISO(p.date),
			})
		}
	}
	return out
}
