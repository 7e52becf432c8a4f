package calc

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Application records a slice of a payment applied to an obligation.
type Application struct {
	Date   time.Time
	Amount decimal.Decimal
	RowID  int64
}

// Obligation is one month's aggregate principal debt. It is rebuilt from
// the ledger snapshot on every calculation and never persisted.
type Obligation struct {
	Key          string // "YYYY-MM"
	Amount       decimal.Decimal
	DueDate      time.Time
	Applications []Application
}

// Remaining is the unpaid part of the obligation.
func (ob *Obligation) Remaining() decimal.Decimal {
	return MaxZero(ob.Amount.Sub(ob.applied()))
}

func (ob *Obligation) applied() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range ob.Applications {
		sum = sum.Add(a.Amount)
	}
	return sum
}

// AppliedUpTo sums applications dated on or before the given day.
// Applications must already be in date order.
func (ob *Obligation) AppliedUpTo(day time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range ob.Applications {
		if !SameOrBefore(a.Date, day) {
			break
		}
		sum = sum.Add(a.Amount)
	}
	return sum
}

func (ob *Obligation) sortApplications() {
	sort.SliceStable(ob.Applications, func(i, j int) bool {
		return ob.Applications[i].Date.Before(ob.Applications[j].Date)
	})
}

// BuildObligations aggregates ledger rows into one obligation per service
// month: accruals summed per (year, month), non-positive sums dropped,
// months outside the allowed set discarded, due date the 10th of the
// following month. The result is sorted by due date. Deterministic for a
// given snapshot; no side effects.
func BuildObligations(rows []Row, allowed map[string]struct{}) []*Obligation {
	sums := make(map[string]decimal.Decimal)
	for _, r := range rows {
		if r.Accrued.Sign() <= 0 {
			continue
		}
		if r.Year <= 0 || r.Month < 1 || r.Month > 12 {
			continue
		}
		key := MonthKey(r.Year, time.Month(r.Month))
		if allowed != nil {
			if _, ok := allowed[key]; !ok {
				continue
			}
		}
		sums[key] = sums[key].Add(r.Accrued)
	}

	obligations := make([]*Obligation, 0, len(sums))
	for key, amount := range sums {
		if amount.Sign() <= 0 {
			continue
		}
		y, mo, ok := SplitMonthKey(key)
		if !ok {
			continue
		}
		obligations = append(obligations, &Obligation{
			Key:     key,
			Amount:  Round2(amount),
			DueDate: DueDate(y, mo),
		})
	}
	sort.Slice(obligations, func(i, j int) bool {
		return obligations[i].DueDate.Before(obligations[j].DueDate)
	})
	return obligations
}
