// Package accrual implements the auto-accrual producer: it computes each
// month's charge from the tariff schedule and fixed add-ons, splits it
// across owners, and writes the result into the ledger the calculation
// core later reads.
package accrual

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/refdata"
)

const dayLength = 24 * time.Hour

// MonthCharge computes the month's full charge: (content+repair) × area
// prorated by day across mid-month tariff changes, plus fixed monthly
// add-ons prorated the same way. Area zero is valid and contributes
// nothing from the per-square part.
func MonthCharge(year int, month time.Month, square decimal.Decimal, tariffs []refdata.Tariff, charges []refdata.FixedCharge) decimal.Decimal {
	total := decimal.Zero
	dim := decimal.NewFromInt(int64(calc.DaysInMonth(year, month)))
	monthStart := calc.Day(year, month, 1)
	monthEndExcl := monthStart.AddDate(0, 1, 0)

	if square.Sign() > 0 && len(tariffs) > 0 {
		cutPoints := make([]time.Time, 0, len(tariffs))
		for _, t := range tariffs {
			cutPoints = append(cutPoints, calc.DayStart(t.From))
		}
		for _, seg := range segments(monthStart, monthEndExcl, cutPoints) {
			t := tariffAt(tariffs, seg.start)
			if t == nil {
				continue
			}
			part := t.Sum().Mul(square).Mul(decimal.NewFromInt(int64(seg.days))).Div(dim)
			total = calc.Round2(total.Add(part))
		}
	}

	for _, charge := range charges {
		if !charge.Active || len(charge.Rates) == 0 {
			continue
		}
		cutPoints := make([]time.Time, 0, len(charge.Rates))
		for _, rate := range charge.Rates {
			cutPoints = append(cutPoints, calc.DayStart(rate.From))
		}
		for _, seg := range segments(monthStart, monthEndExcl, cutPoints) {
			value := chargeRateAt(charge.Rates, seg.start)
			if value.Sign() <= 0 {
				continue
			}
			part := value.Mul(decimal.NewFromInt(int64(seg.days))).Div(dim)
			total = calc.Round2(total.Add(part))
		}
	}
	return calc.Round2(total)
}

type segment struct {
	start time.Time
	days  int
}

// segments splits [start, endExcl) at every cut point falling strictly
// inside it, preserving chronological order.
func segments(start, endExcl time.Time, cutPoints []time.Time) []segment {
	cuts := []time.Time{start}
	for _, p := range cutPoints {
		if p.After(start) && p.Before(endExcl) {
			cuts = append(cuts, p)
		}
	}
	cuts = append(cuts, endExcl)
	sortTimes(cuts)

	var out []segment
	for i := 0; i+1 < len(cuts); i++ {
		days := daysBetween(cuts[i], cuts[i+1])
		if days > 0 {
			out = append(out, segment{start: cuts[i], days: days})
		}
	}
	return out
}

func sortTimes(ts []time.Time) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Before(ts[j-1]); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / dayLength)
}

// tariffAt picks the schedule point effective at a date: the latest
// entry whose From is not after it.
func tariffAt(tariffs []refdata.Tariff, day time.Time) *refdata.Tariff {
	var chosen *refdata.Tariff
	for i := range tariffs {
		if !calc.DayStart(tariffs[i].From).After(day) {
			chosen = &tariffs[i]
		} else {
			break
		}
	}
	return chosen
}

func chargeRateAt(rates []refdata.FixedChargeRate, day time.Time) decimal.Decimal {
	chosen := decimal.Zero
	for _, r := range rates {
		if !calc.DayStart(r.From).After(day) {
			chosen = r.Value
		} else {
			break
		}
	}
	return chosen
}

// Share is one owner's part of a month's charge.
type Share struct {
	AbonentID int64
	Amount    decimal.Decimal
	Days      int
}

// SplitByOwnership divides a month's charge across owners by day count.
// Days not covered by any link accrue to nobody, so the shares may sum
// to less than the total; rounding drift is folded into the last share.
func SplitByOwnership(total decimal.Decimal, year int, month time.Month, history []abonent.OwnershipLink) []Share {
	if len(history) == 0 {
		return nil
	}
	dim := calc.DaysInMonth(year, month)
	monthStart := calc.Day(year, month, 1)
	monthEndExcl := monthStart.AddDate(0, 1, 0)

	daysByOwner := make(map[int64]int)
	var order []int64
	for _, l := range history {
		from := calc.DayStart(l.From)
		endExcl := monthEndExcl
		if !l.Open() {
			// End dates are inclusive.
			e := calc.DayStart(l.To).AddDate(0, 0, 1)
			if e.Before(endExcl) {
				endExcl = e
			}
		}
		start := monthStart
		if from.After(start) {
			start = from
		}
		days := daysBetween(start, endExcl)
		if days <= 0 {
			continue
		}
		if _, seen := daysByOwner[l.AbonentID]; !seen {
			order = append(order, l.AbonentID)
		}
		daysByOwner[l.AbonentID] += days
	}
	if len(order) == 0 {
		return nil
	}

	dimDec := decimal.NewFromInt(int64(dim))
	out := make([]Share, 0, len(order))
	exact := decimal.Zero
	rounded := decimal.Zero
	for _, id := range order {
		days := daysByOwner[id]
		raw := total.Mul(decimal.NewFromInt(int64(days))).Div(dimDec)
		amount := calc.Round2(raw)
		exact = exact.Add(raw)
		rounded = rounded.Add(amount)
		out = append(out, Share{AbonentID: id, Amount: amount, Days: days})
	}
	// Fold rounding drift into the last share. The target is the rounded
	// sum over covered days, never the full month total.
	drift := calc.Round2(exact).Sub(rounded)
	if !drift.IsZero() {
		last := len(out) - 1
		out[last].Amount = calc.Round2(out[last].Amount.Add(drift))
	}
	return out
}
