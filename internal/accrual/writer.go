package accrual

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/ledger"
)

// Plan is the set of ledger mutations an accrual run produced. Building
// it is pure; applying it is the repository's job. The same rows and
// amounts always yield the same plan, so repeated runs converge to an
// empty one.
type Plan struct {
	Updates []ledger.Row
	Appends []ledger.RowInput
}

// Empty reports whether the plan changes anything.
func (p Plan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Appends) == 0
}

// BuildPlan reconciles the account's ledger against the computed
// amounts. Within each allowed month exactly one row carries the accrual
// (the lowest id), other rows are zeroed, and missing months are
// appended. Accruals on rows outside the allowed months are zeroed so
// the writer never leaves charges beyond the responsibility range.
func BuildPlan(abonentID int64, rows []ledger.Row, months []string, amounts map[string]decimal.Decimal) Plan {
	allowed := make(map[string]struct{}, len(months))
	for _, key := range months {
		allowed[key] = struct{}{}
	}

	var plan Plan
	byMonth := make(map[string][]ledger.Row)
	for _, row := range rows {
		if row.Month < 1 || row.Month > 12 {
			continue
		}
		key := calc.MonthKey(row.Year, time.Month(row.Month))
		if _, ok := allowed[key]; !ok {
			if row.Accrued.Sign() > 0 {
				row.Accrued = decimal.Zero
				plan.Updates = append(plan.Updates, row)
			}
			continue
		}
		byMonth[key] = append(byMonth[key], row)
	}

	for _, key := range months {
		amount := calc.Round2(amounts[key])
		monthRows := byMonth[key]
		if len(monthRows) == 0 {
			year, month, ok := calc.SplitMonthKey(key)
			if !ok {
				continue
			}
			plan.Appends = append(plan.Appends, ledger.RowInput{
				AbonentID: abonentID,
				Year:      year,
				Month:     int(month),
				Accrued:   amount,
				Source:    ledger.SourceAccrual,
			})
			continue
		}
		sort.Slice(monthRows, func(i, j int) bool { return monthRows[i].ID < monthRows[j].ID })
		if !monthRows[0].Accrued.Equal(amount) {
			monthRows[0].Accrued = amount
			plan.Updates = append(plan.Updates, monthRows[0])
		}
		for _, row := range monthRows[1:] {
			if !row.Accrued.IsZero() {
				row.Accrued = decimal.Zero
				plan.Updates = append(plan.Updates, row)
			}
		}
	}
	return plan
}
