package calc

import (
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// flatRate is a single-entry timeline effective from far in the past.
func flatRate(rate string) []Rate {
	return []Rate{{From: Day(2000, time.January, 1), Rate: dec(rate)}}
}

func accrualRow(id int64, year, month int, amount string) Row {
	return Row{ID: id, Year: year, Month: month, Accrued: dec(amount)}
}

func paymentRow(id int64, year, month int, amount string, date time.Time) Row {
	return Row{ID: id, Year: year, Month: month, Paid: dec(amount), PaidDate: date}
}
