package calc

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentEvent is one payment extracted from a ledger row, with the
// inclusive month-key window of obligations it may satisfy.
type PaymentEvent struct {
	Date   time.Time
	Amount decimal.Decimal
	RowID  int64
	MinKey string
	MaxKey string
}

// BuildPaymentEvents extracts payment events from ledger rows. A payment
// without an explicit period designation may satisfy only its own month's
// obligation: the default window is [payment month, payment month] in both
// directions, so undesignated money never leaks into other months. A
// per-row pay-for-period window overrides the default; failing that, the
// account-level calc-period window from the options widens it. Events are
// ordered by (date, row id); rows with no parseable payment date are
// skipped rather than failing the calculation.
func BuildPaymentEvents(rows []Row, opts Options) []PaymentEvent {
	var events []PaymentEvent
	for _, r := range rows {
		if r.Paid.Sign() <= 0 || r.PaidDate.IsZero() {
			continue
		}
		payMonth := MonthKeyOf(r.PaidDate)
		minKey, maxKey := payMonth, payMonth

		switch {
		case r.UsePeriod && (r.PeriodFrom != "" || r.PeriodTo != ""):
			from := ParseMonthKey(r.PeriodFrom)
			to := ParseMonthKey(r.PeriodTo)
			if from == "" {
				from = to
			}
			if to == "" {
				to = from
			}
			if from != "" {
				minKey, maxKey = from, to
			}
		case opts.CalcPeriodFrom != "" || opts.CalcPeriodTo != "":
			from := ParseMonthKey(opts.CalcPeriodFrom)
			to := ParseMonthKey(opts.CalcPeriodTo)
			if from != "" {
				minKey = from
			}
			if to != "" {
				maxKey = to
			}
		}

		events = append(events, PaymentEvent{
			Date:   DayStart(r.PaidDate),
			Amount: Round2(r.Paid),
			RowID:  r.ID,
			MinKey: minKey,
			MaxKey: maxKey,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].RowID < events[j].RowID
	})
	return events
}

// Advance is an unapplied payment surplus left after FIFO allocation.
type Advance struct {
	Date   time.Time
	Amount decimal.Decimal
	RowID  int64
}

// AllocateFIFO applies payment events to obligations. For each payment,
// obligations are scanned in due-date order; those outside the payment's
// window or already fully paid are skipped, and among eligible obligations
// the earliest-due one fills first. The leftover of an exhausted scan
// becomes an advance. The conservation invariant — applications never
// exceed the obligation amount — is enforced here and only here.
func AllocateFIFO(obligations []*Obligation, payments []PaymentEvent) []Advance {
	var advances []Advance
	for _, p := range payments {
		left := p.Amount
		for _, ob := range obligations {
			if left.Sign() <= 0 {
				break
			}
			if ob.Key < p.MinKey || ob.Key > p.MaxKey {
				continue
			}
			rem := ob.Remaining()
			if rem.Sign() <= 0 {
				continue
			}
			take := MinAmount(rem, left)
			ob.Applications = append(ob.Applications, Application{
				Date:   p.Date,
				Amount: Round2(take),
				RowID:  p.RowID,
			})
			left = Round2(left.Sub(take))
		}
		if left.Sign() > 0 {
			advances = append(advances, Advance{Date: p.Date, Amount: Round2(left), RowID: p.RowID})
		}
	}
	return advances
}

// SumAdvancesUpTo totals advances dated on or before the given day.
func SumAdvancesUpTo(advances []Advance, day time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range advances {
		if SameOrBefore(a.Date, day) {
			sum = sum.Add(a.Amount)
		}
	}
	return Round2(sum)
}
