package calc

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// graceDays is the statutory interest-free window after the due date.
	graceDays = 30
	// tierTwoDay is the overdue day index after which the higher
	// statutory fraction (1/130) applies instead of 1/300.
	tierTwoDay = 90
	// maxPenaltyDays caps the day walk per obligation at ten years.
	maxPenaltyDays = 3650
)

var (
	denomTierOne = decimal.NewFromInt(300)
	denomTierTwo = decimal.NewFromInt(130)
	hundred      = decimal.NewFromInt(100)
	// rateCap is the statutory rate ceiling in effect until 2027-01-01.
	rateCap      = decimal.NewFromFloat(9.5)
	rateCapUntil = Day(2027, time.January, 1)
)

// RateOnDate resolves the rate effective on a day: the last timeline entry
// whose From is not after the day. Rates must be sorted ascending by From.
// False when the day predates the whole timeline.
func RateOnDate(day time.Time, rates []Rate) (decimal.Decimal, bool) {
	var cur decimal.Decimal
	found := false
	for _, r := range rates {
		if SameOrBefore(r.From, day) {
			cur = r.Rate
			found = true
		} else {
			break
		}
	}
	return cur, found
}

// CapRate applies the 9.5% statutory ceiling to days strictly before
// 2027-01-01; later days use the rate uncapped.
func CapRate(day time.Time, rate decimal.Decimal) decimal.Decimal {
	if DayStart(day).Before(rateCapUntil) && rate.GreaterThan(rateCap) {
		return rateCap
	}
	return rate
}

func isExcludedDay(day time.Time, exclusions []Period) bool {
	for _, p := range exclusions {
		if !day.Before(DayStart(p.From)) && !day.After(DayStart(p.To)) {
			return true
		}
	}
	return false
}

// PenaltyForObligation walks each calendar day from dueDate+1 through
// min(asOf, dueDate+3650) and accrues the statutory penalty on the
// principal still unpaid that day. Excluded days accrue nothing and do not
// advance the overdue index, so an exclusion never consumes grace-period
// slots. Days 1..30 of the index are grace; days 31..90 use 1/300 of the
// prevailing rate, later days 1/130. The result is not rounded; callers
// round when recording.
//
// An obligation without a due date is a programming error, not a data
// problem, and panics.
func PenaltyForObligation(ob *Obligation, asOf time.Time, exclusions []Period, rates []Rate) decimal.Decimal {
	if ob.DueDate.IsZero() {
		panic("calc: obligation has no due date")
	}
	asOfDay := DayStart(asOf)
	if SameOrBefore(asOfDay, ob.DueDate) {
		return decimal.Zero
	}

	ob.sortApplications()

	end := AddDays(ob.DueDate, maxPenaltyDays)
	if asOfDay.Before(end) {
		end = asOfDay
	}

	penalty := decimal.Zero
	overdueIndex := 0
	for day := AddDays(ob.DueDate, 1); !day.After(end); day = AddDays(day, 1) {
		if isExcludedDay(day, exclusions) {
			continue
		}
		overdueIndex++
		if overdueIndex <= graceDays {
			continue
		}
		principal := MaxZero(ob.Amount.Sub(ob.AppliedUpTo(day)))
		if principal.Sign() <= 0 {
			continue
		}
		rate, ok := RateOnDate(day, rates)
		if !ok {
			continue
		}
		rate = CapRate(day, rate)
		denom := denomTierOne
		if overdueIndex > tierTwoDay {
			denom = denomTierTwo
		}
		penalty = penalty.Add(principal.Mul(rate).Div(hundred).Div(denom))
	}
	return penalty
}
